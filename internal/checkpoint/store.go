// Package checkpoint implements the workspace snapshot and undo subsystem:
// a bounded, disk-backed LIFO stack of full-workspace checkpoints taken
// before every destructive batch operation.
package checkpoint

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cell-toolbox/internal/workspace"
)

// ErrMissingDirectory reports that a checkpoint's backing directory vanished
// between push and pop (manual deletion, prior cleanup race).
var ErrMissingDirectory = errors.New("checkpoint directory missing")

const serializedExt = ".tif"

// Entry is one serialized document inside a checkpoint directory.
type Entry struct {
	Path  string // Absolute path of the serialized file
	Title string // Recovered document title
}

// Checkpoint is an immutable-once-written record of every document open in
// the workspace at one instant.
type Checkpoint struct {
	ID      string  // Monotonic timestamp-derived identifier
	Dir     string  // Backing directory under the store root
	Entries []Entry // One per document open at snapshot time
}

// WarnFunc receives best-effort failures that are swallowed rather than
// propagated, so callers can surface or assert them.
type WarnFunc func(msg string, err error)

// Store owns the on-disk representation of checkpoints under a single
// process-scoped root directory. No other component may read or write
// inside the root.
type Store struct {
	root   string
	lastID int64
	warn   WarnFunc
}

// DefaultRoot returns the process-temp-scoped checkpoint root.
func DefaultRoot() string {
	return filepath.Join(os.TempDir(), "cell-toolbox-checkpoints")
}

// NewStore creates a store rooted at dir, or at DefaultRoot when dir is
// empty. The root is created lazily on the first Create.
func NewStore(dir string) *Store {
	if dir == "" {
		dir = DefaultRoot()
	}
	return &Store{
		root: dir,
		warn: func(msg string, err error) {
			log.Printf("checkpoint: %s: %v", msg, err)
		},
	}
}

// Root returns the checkpoint root directory.
func (s *Store) Root() string {
	return s.root
}

// SetWarnFunc replaces the handler for swallowed best-effort failures.
func (s *Store) SetWarnFunc(fn WarnFunc) {
	if fn != nil {
		s.warn = fn
	}
}

// Create allocates a fresh checkpoint directory and writes one serialized
// file per open document. Returns (nil, nil) when the workspace is empty:
// there is nothing to checkpoint. The returned entries carry each document's
// filesystem-safe title, one entry per input document in order; the caller
// applies the renames through the workspace so the title round-trips
// verbatim on restore. Create itself never mutates a document.
func (s *Store) Create(docs []*workspace.Document) (*Checkpoint, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint root: %w", err)
	}

	id := time.Now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id

	cp := &Checkpoint{
		ID:  fmt.Sprintf("chk_%d", id),
		Dir: filepath.Join(s.root, fmt.Sprintf("chk_%d", id)),
	}
	if err := os.Mkdir(cp.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
	}

	for _, doc := range docs {
		safe := SanitizeTitle(doc.Title)
		name := safe
		if !strings.HasSuffix(strings.ToLower(name), serializedExt) {
			name += serializedExt
		}
		path := filepath.Join(cp.Dir, name)
		if err := workspace.SaveTIFF(doc, path); err != nil {
			// A partial checkpoint must never be restorable.
			if rmErr := os.RemoveAll(cp.Dir); rmErr != nil {
				s.warn("failed to remove partial checkpoint "+cp.Dir, rmErr)
			}
			return nil, fmt.Errorf("failed to serialize %q: %w", doc.Title, err)
		}
		recovered := strings.TrimSuffix(name, serializedExt)
		cp.Entries = append(cp.Entries, Entry{Path: path, Title: recovered})
	}

	return cp, nil
}

// Materialize enumerates a checkpoint's directory and returns the serialized
// documents the caller can open back into the workspace. Returns
// ErrMissingDirectory if the directory no longer exists.
func (s *Store) Materialize(cp *Checkpoint) ([]Entry, error) {
	dirents, err := os.ReadDir(cp.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrMissingDirectory, cp.Dir)
		}
		return nil, fmt.Errorf("failed to read checkpoint directory: %w", err)
	}

	var entries []Entry
	for _, de := range dirents {
		if de.IsDir() {
			continue
		}
		name := de.Name()
		if !strings.HasSuffix(strings.ToLower(name), serializedExt) {
			continue
		}
		entries = append(entries, Entry{
			Path:  filepath.Join(cp.Dir, name),
			Title: strings.TrimSuffix(name, serializedExt),
		})
	}
	return entries, nil
}

// Delete removes a checkpoint's directory. Best effort: a checkpoint that
// cannot be deleted is leaked until the next full reset, never fatal.
func (s *Store) Delete(cp *Checkpoint) {
	if cp == nil {
		return
	}
	if err := os.RemoveAll(cp.Dir); err != nil {
		s.warn("failed to delete checkpoint "+cp.Dir, err)
	}
}

// DeleteRoot removes the entire checkpoint root. Best effort, used on full
// session reset.
func (s *Store) DeleteRoot() {
	if err := os.RemoveAll(s.root); err != nil {
		s.warn("failed to delete checkpoint root "+s.root, err)
	}
}

// SanitizeTitle replaces path-separator characters so a document title can
// be used as a filename. Two distinct titles can collide after substitution;
// this is a known, accepted limitation (last writer wins in the directory)
// rather than something silently worked around.
func SanitizeTitle(title string) string {
	title = strings.ReplaceAll(title, "/", "_")
	return strings.ReplaceAll(title, "\\", "_")
}
