package workspace

import (
	"fmt"
	"sync"
)

// Workspace is the ordered set of documents currently open in the session.
// The snapshot subsystem enumerates, serializes, replaces wholesale, and
// closes documents; it never touches their pixel content.
type Workspace struct {
	mu   sync.RWMutex
	docs []*Document
}

// New creates an empty workspace.
func New() *Workspace {
	return &Workspace{}
}

// Add opens a document in the workspace. If the title collides with an open
// document, a numeric suffix is appended so titles stay unique.
func (w *Workspace) Add(doc *Document) {
	w.mu.Lock()
	defer w.mu.Unlock()
	doc.Title = w.uniqueTitleLocked(doc.Title)
	w.docs = append(w.docs, doc)
}

// Documents returns a snapshot of the open documents in order.
func (w *Workspace) Documents() []*Document {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]*Document, len(w.docs))
	copy(out, w.docs)
	return out
}

// Titles returns the titles of all open documents in order.
func (w *Workspace) Titles() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	titles := make([]string, len(w.docs))
	for i, d := range w.docs {
		titles[i] = d.Title
	}
	return titles
}

// Len returns the number of open documents.
func (w *Workspace) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.docs)
}

// Active returns the frontmost document (most recently opened), or nil.
func (w *Workspace) Active() *Document {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if len(w.docs) == 0 {
		return nil
	}
	return w.docs[len(w.docs)-1]
}

// ByTitle returns the open document with the given title, or nil.
func (w *Workspace) ByTitle(title string) *Document {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, d := range w.docs {
		if d.Title == title {
			return d
		}
	}
	return nil
}

// Rename retitles a document under the workspace lock, keeping titles
// unique. Retitling to the current title is a no-op. All title writes go
// through here so concurrent readers never observe a torn title.
func (w *Workspace) Rename(doc *Document, title string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if doc.Title == title {
		return
	}
	doc.Title = w.uniqueTitleLocked(title)
}

// Close removes a single document, discarding any unsaved changes.
func (w *Workspace) Close(doc *Document) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, d := range w.docs {
		if d == doc {
			d.Dirty = false
			w.docs = append(w.docs[:i], w.docs[i+1:]...)
			return
		}
	}
}

// CloseAll removes every document, discarding any unsaved changes.
func (w *Workspace) CloseAll() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, d := range w.docs {
		d.Dirty = false
	}
	w.docs = nil
}

// Replace closes every open document and opens the given ones in their
// place, as a single operation. Used by restore and source reload.
func (w *Workspace) Replace(docs []*Document) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, d := range w.docs {
		d.Dirty = false
	}
	w.docs = nil
	for _, doc := range docs {
		doc.Title = w.uniqueTitleLocked(doc.Title)
		w.docs = append(w.docs, doc)
	}
}

// uniqueTitleLocked returns title, or title with a numeric suffix if an open
// document already uses it. Caller must hold the lock.
func (w *Workspace) uniqueTitleLocked(title string) string {
	if !w.titleTakenLocked(title) {
		return title
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s-%d", title, n)
		if !w.titleTakenLocked(candidate) {
			return candidate
		}
	}
}

func (w *Workspace) titleTakenLocked(title string) bool {
	for _, d := range w.docs {
		if d.Title == title {
			return true
		}
	}
	return false
}
