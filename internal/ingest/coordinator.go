package ingest

import (
	"log"
	"sync"
	"time"

	"cell-toolbox/internal/checkpoint"
	"cell-toolbox/internal/workspace"
)

// DefaultSettleDelay is the wait between finishing an import batch and
// taking the trailing snapshot. It stands in for a completion signal the
// engine does not expose: a pragmatic wait, not a guarantee.
const DefaultSettleDelay = time.Second

// Coordinator records dropped-file sets and runs import plus a trailing
// snapshot on a background execution path, concurrent with foreground
// snapshot and restore requests. Background runs are serialized with each
// other so overlapping drop events cannot interleave their stack work.
type Coordinator struct {
	ws       *workspace.Workspace
	ctrl     *checkpoint.Controller
	importer Importer
	settle   time.Duration

	mu    sync.Mutex // guards paths
	paths []string

	runMu sync.Mutex // serializes background runs
	wg    sync.WaitGroup

	// OnSettled, when set, is called after the trailing snapshot with the
	// counts of imported and failed paths.
	OnSettled func(imported, failed int)
}

// NewCoordinator creates a coordinator. A non-positive settle duration
// falls back to DefaultSettleDelay.
func NewCoordinator(ws *workspace.Workspace, ctrl *checkpoint.Controller, importer Importer, settle time.Duration) *Coordinator {
	if settle <= 0 {
		settle = DefaultSettleDelay
	}
	return &Coordinator{
		ws:       ws,
		ctrl:     ctrl,
		importer: importer,
		settle:   settle,
	}
}

// OnImportEvent handles a drop or explicit reload: it replaces the recorded
// source-file set wholesale, resets all checkpoints, then imports each path
// and takes one snapshot of the freshly imported state, all off the calling
// path. Per-path failures are skipped and counted, never fatal.
func (c *Coordinator) OnImportEvent(paths []string) {
	c.mu.Lock()
	c.paths = append([]string(nil), paths...)
	c.mu.Unlock()

	batch := append([]string(nil), paths...)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.runMu.Lock()
		defer c.runMu.Unlock()

		// Reset inside the serialized section. Resetting on the calling
		// path would let a prior run's trailing snapshot land after the
		// reset, leaving two checkpoints once this batch settles.
		c.ctrl.Reset()

		failed := 0
		for _, path := range batch {
			doc, err := c.importer.Import(path)
			if err != nil {
				failed++
				log.Printf("import: skipping %s: %v", path, err)
				continue
			}
			c.ws.Add(doc)
		}
		if failed > 0 {
			log.Printf("import: %d of %d files failed", failed, len(batch))
		}

		// Let the engine finish asynchronous window materialization
		// before checkpointing the imported state.
		time.Sleep(c.settle)

		if err := c.ctrl.SnapshotNow(c.ws); err != nil {
			log.Printf("import: trailing snapshot failed: %v", err)
		}
		if c.OnSettled != nil {
			c.OnSettled(len(batch)-failed, failed)
		}
	}()
}

// SourcePaths returns a copy of the most recent dropped-file set.
func (c *Coordinator) SourcePaths() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.paths...)
}

// Wait blocks until all in-flight background import runs have finished,
// including their trailing snapshots.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}
