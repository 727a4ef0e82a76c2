package checkpoint

import (
	"errors"
	"log"
	"sync"

	"cell-toolbox/internal/workspace"
)

// RestoreOutcome reports which recovery tier a restore request took.
type RestoreOutcome int

const (
	// NothingToRestore means no checkpoint and no source files were
	// available; the workspace was left unmodified.
	NothingToRestore RestoreOutcome = iota
	// Restored means the most recent checkpoint replaced the workspace.
	Restored
	// RestoredFromSource means the original source files were re-imported
	// because no usable checkpoint existed.
	RestoredFromSource
)

func (o RestoreOutcome) String() string {
	switch o {
	case Restored:
		return "restored"
	case RestoredFromSource:
		return "restored from source"
	default:
		return "nothing to restore"
	}
}

// UndoPlan describes which path an undo request will take, so the caller can
// present it to the user before invoking RestoreLast.
type UndoPlan int

const (
	// PlanNothing: no checkpoints and no source files; undo is refused.
	PlanNothing UndoPlan = iota
	// PlanStepBack: a checkpoint is available to pop.
	PlanStepBack
	// PlanReloadSource: the stack is empty but source files can be re-imported.
	PlanReloadSource
)

// SourceImporter re-imports an original source file as a fresh document.
// It is the last-resort restore tier when no checkpoint is usable.
type SourceImporter interface {
	Import(path string) (*workspace.Document, error)
}

// Controller orchestrates snapshots and restores for one session. All stack
// and checkpoint-root mutations are serialized behind its lock, so a
// foreground restore and a background import-triggered snapshot can never
// interleave.
type Controller struct {
	mu       sync.Mutex
	store    *Store
	stack    *Stack
	importer SourceImporter
	maxDepth func() int
}

// NewController creates a session-scoped controller. maxDepth is read fresh
// on every snapshot so settings changes apply immediately.
func NewController(store *Store, importer SourceImporter, maxDepth func() int) *Controller {
	return &Controller{
		store:    store,
		stack:    NewStack(),
		importer: importer,
		maxDepth: maxDepth,
	}
}

// SnapshotNow checkpoints the current workspace and trims the stack to the
// configured depth. Silent and unconditional: destructive operations call
// this before mutating anything, with no user interaction.
func (c *Controller) SnapshotNow(ws *workspace.Workspace) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	docs := ws.Documents()
	cp, err := c.store.Create(docs)
	if err != nil {
		return err
	}
	if cp == nil {
		return nil // nothing open, nothing to checkpoint
	}
	// Titles take their serialized form so they round-trip on restore. The
	// rename goes through the workspace lock; Create returns one entry per
	// document in order.
	for i, doc := range docs {
		ws.Rename(doc, cp.Entries[i].Title)
	}
	c.stack.Push(cp)
	for _, old := range c.stack.Trim(c.maxDepth()) {
		c.store.Delete(old)
	}
	return nil
}

// RestoreLast pops the most recent checkpoint and replaces the workspace
// with its documents, discarding any pending state. If the checkpoint's
// directory is missing, or the stack is empty, it falls back to re-importing
// sourcePaths. The workspace is either fully replaced or left untouched;
// there is no partially-restored state.
func (c *Controller) RestoreLast(ws *workspace.Workspace, sourcePaths []string) (RestoreOutcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cp, err := c.stack.Pop()
	if err != nil {
		if errors.Is(err, ErrStackEmpty) {
			return c.reloadSource(ws, sourcePaths)
		}
		return NothingToRestore, err
	}

	entries, err := c.store.Materialize(cp)
	if err != nil {
		if errors.Is(err, ErrMissingDirectory) {
			log.Printf("checkpoint: %s vanished, falling back to source reload", cp.Dir)
			return c.reloadSource(ws, sourcePaths)
		}
		return NothingToRestore, err
	}

	docs := make([]*workspace.Document, 0, len(entries))
	for _, e := range entries {
		doc, err := workspace.LoadTIFF(e.Path)
		if err != nil {
			log.Printf("checkpoint: failed to reopen %s: %v", e.Path, err)
			continue
		}
		doc.Title = e.Title
		docs = append(docs, doc)
	}
	ws.Replace(docs)
	c.store.Delete(cp)
	return Restored, nil
}

// reloadSource replaces the workspace with fresh imports of sourcePaths.
// Caller must hold the lock.
func (c *Controller) reloadSource(ws *workspace.Workspace, sourcePaths []string) (RestoreOutcome, error) {
	if len(sourcePaths) == 0 {
		return NothingToRestore, nil
	}
	var docs []*workspace.Document
	for _, path := range sourcePaths {
		doc, err := c.importer.Import(path)
		if err != nil {
			log.Printf("checkpoint: source reload skipped %s: %v", path, err)
			continue
		}
		docs = append(docs, doc)
	}
	ws.Replace(docs)
	return RestoredFromSource, nil
}

// Plan reports which path an undo request will take given the current stack
// and the number of known source files, plus the current stack depth.
func (c *Controller) Plan(sourceCount int) (UndoPlan, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	depth := c.stack.Len()
	switch {
	case depth > 0:
		return PlanStepBack, depth
	case sourceCount > 0:
		return PlanReloadSource, 0
	default:
		return PlanNothing, 0
	}
}

// Depth returns the current stack depth.
func (c *Controller) Depth() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stack.Len()
}

// Reset deletes the entire checkpoint root and empties the stack. Called at
// session start, on every new import event, and at panel shutdown.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.DeleteRoot()
	c.stack.Clear()
}
