package checkpoint

import (
	"fmt"
	"os"
	"sync"
	"testing"

	"cell-toolbox/internal/workspace"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeImporter serves the source-reload tier from memory.
type fakeImporter struct {
	fail map[string]bool
}

func (f *fakeImporter) Import(path string) (*workspace.Document, error) {
	if f.fail[path] {
		return nil, fmt.Errorf("unreadable %s", path)
	}
	return testDoc("src_" + path), nil
}

func newTestController(t *testing.T, maxDepth int) (*Controller, *Store) {
	t.Helper()
	store := NewStore(t.TempDir() + "/checkpoints")
	ctrl := NewController(store, &fakeImporter{}, func() int { return maxDepth })
	return ctrl, store
}

func rootDirCount(t *testing.T, store *Store) int {
	t.Helper()
	dirents, err := os.ReadDir(store.Root())
	if os.IsNotExist(err) {
		return 0
	}
	require.NoError(t, err)
	return len(dirents)
}

func TestControllerSnapshotAndRestore(t *testing.T) {
	ctrl, store := newTestController(t, 5)
	ws := workspace.New()
	for _, title := range []string{"A", "B", "C"} {
		ws.Add(testDoc(title))
	}

	require.NoError(t, ctrl.SnapshotNow(ws))
	assert.Equal(t, 1, ctrl.Depth())

	// Simulate a destructive batch operation.
	for _, doc := range ws.Documents() {
		ws.Rename(doc, "mangled_"+doc.Title)
	}

	outcome, err := ctrl.RestoreLast(ws, nil)
	require.NoError(t, err)
	assert.Equal(t, Restored, outcome)
	assert.ElementsMatch(t, []string{"A", "B", "C"}, ws.Titles())

	// The consumed checkpoint is gone from disk and from the stack.
	assert.Equal(t, 0, ctrl.Depth())
	assert.Equal(t, 0, rootDirCount(t, store))
}

func TestControllerSnapshotEmptyWorkspace(t *testing.T) {
	ctrl, store := newTestController(t, 5)
	ws := workspace.New()

	require.NoError(t, ctrl.SnapshotNow(ws))
	assert.Equal(t, 0, ctrl.Depth())
	assert.Equal(t, 0, rootDirCount(t, store))
}

func TestControllerDepthBounded(t *testing.T) {
	ctrl, store := newTestController(t, 2)
	ws := workspace.New()
	ws.Add(testDoc("a"))

	for i := 0; i < 3; i++ {
		require.NoError(t, ctrl.SnapshotNow(ws))
	}

	// Oldest checkpoint was evicted and its directory deleted.
	assert.Equal(t, 2, ctrl.Depth())
	assert.Equal(t, 2, rootDirCount(t, store))

	// Only the retained snapshots can be stepped back through.
	for i := 0; i < 2; i++ {
		outcome, err := ctrl.RestoreLast(ws, nil)
		require.NoError(t, err)
		assert.Equal(t, Restored, outcome)
	}
	outcome, err := ctrl.RestoreLast(ws, nil)
	require.NoError(t, err)
	assert.Equal(t, NothingToRestore, outcome)
}

func TestControllerMaxDepthReadPerSnapshot(t *testing.T) {
	depth := 5
	store := NewStore(t.TempDir() + "/checkpoints")
	ctrl := NewController(store, &fakeImporter{}, func() int { return depth })
	ws := workspace.New()
	ws.Add(testDoc("a"))

	for i := 0; i < 4; i++ {
		require.NoError(t, ctrl.SnapshotNow(ws))
	}
	require.Equal(t, 4, ctrl.Depth())

	// Tightening the setting takes effect on the very next snapshot.
	depth = 2
	require.NoError(t, ctrl.SnapshotNow(ws))
	assert.Equal(t, 2, ctrl.Depth())
	assert.Equal(t, 2, rootDirCount(t, store))
}

func TestControllerMissingDirFallsBackToSource(t *testing.T) {
	ctrl, store := newTestController(t, 5)
	ws := workspace.New()
	ws.Add(testDoc("a"))

	require.NoError(t, ctrl.SnapshotNow(ws))
	store.DeleteRoot()

	outcome, err := ctrl.RestoreLast(ws, []string{"p1", "p2"})
	require.NoError(t, err)
	assert.Equal(t, RestoredFromSource, outcome)
	assert.ElementsMatch(t, []string{"src_p1", "src_p2"}, ws.Titles())
}

func TestControllerEmptyStackReloadsSource(t *testing.T) {
	ctrl, _ := newTestController(t, 5)
	ws := workspace.New()
	ws.Add(testDoc("stale"))

	outcome, err := ctrl.RestoreLast(ws, []string{"p1"})
	require.NoError(t, err)
	assert.Equal(t, RestoredFromSource, outcome)
	assert.Equal(t, []string{"src_p1"}, ws.Titles())
}

func TestControllerNothingToRestoreLeavesWorkspaceAlone(t *testing.T) {
	ctrl, _ := newTestController(t, 5)
	ws := workspace.New()
	ws.Add(testDoc("untouched"))

	outcome, err := ctrl.RestoreLast(ws, nil)
	require.NoError(t, err)
	assert.Equal(t, NothingToRestore, outcome)
	assert.Equal(t, []string{"untouched"}, ws.Titles())
}

func TestControllerSourceReloadSkipsFailures(t *testing.T) {
	store := NewStore(t.TempDir() + "/checkpoints")
	imp := &fakeImporter{fail: map[string]bool{"bad": true}}
	ctrl := NewController(store, imp, func() int { return 5 })
	ws := workspace.New()

	outcome, err := ctrl.RestoreLast(ws, []string{"good", "bad"})
	require.NoError(t, err)
	assert.Equal(t, RestoredFromSource, outcome)
	assert.Equal(t, []string{"src_good"}, ws.Titles())
}

func TestControllerPlan(t *testing.T) {
	ctrl, _ := newTestController(t, 5)
	ws := workspace.New()
	ws.Add(testDoc("a"))

	plan, depth := ctrl.Plan(0)
	assert.Equal(t, PlanNothing, plan)
	assert.Equal(t, 0, depth)

	plan, _ = ctrl.Plan(3)
	assert.Equal(t, PlanReloadSource, plan)

	require.NoError(t, ctrl.SnapshotNow(ws))
	plan, depth = ctrl.Plan(3)
	assert.Equal(t, PlanStepBack, plan)
	assert.Equal(t, 1, depth)
}

func TestControllerReset(t *testing.T) {
	ctrl, store := newTestController(t, 5)
	ws := workspace.New()
	ws.Add(testDoc("a"))

	require.NoError(t, ctrl.SnapshotNow(ws))
	require.NoError(t, ctrl.SnapshotNow(ws))

	ctrl.Reset()
	assert.Equal(t, 0, ctrl.Depth())
	assert.NoDirExists(t, store.Root())

	// The root is recreated lazily on the next snapshot.
	require.NoError(t, ctrl.SnapshotNow(ws))
	assert.Equal(t, 1, ctrl.Depth())
	assert.Equal(t, 1, rootDirCount(t, store))
}

func TestControllerSnapshotRenamesTitles(t *testing.T) {
	ctrl, _ := newTestController(t, 5)
	ws := workspace.New()
	ws.Add(testDoc(`plate/A1\well`))

	require.NoError(t, ctrl.SnapshotNow(ws))

	// Snapshot applies the filesystem-safe title to the live document so
	// a later restore round-trips it verbatim.
	assert.Equal(t, []string{"plate_A1_well"}, ws.Titles())

	outcome, err := ctrl.RestoreLast(ws, nil)
	require.NoError(t, err)
	assert.Equal(t, Restored, outcome)
	assert.Equal(t, []string{"plate_A1_well"}, ws.Titles())
}

func TestControllerSnapshotConcurrentWithTitleReads(t *testing.T) {
	ctrl, _ := newTestController(t, 5)
	ws := workspace.New()
	ws.Add(testDoc(`run/1`))
	ws.Add(testDoc(`run/2`))

	// An import-triggered snapshot runs on a background goroutine while
	// the panel keeps reading titles. The renames go through the
	// workspace lock, so the race detector stays quiet.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			_ = ctrl.SnapshotNow(ws)
		}
	}()
	for i := 0; i < 200; i++ {
		_ = ws.Titles()
		_ = ws.ByTitle("run_1")
		_ = ws.Active()
	}
	<-done

	assert.ElementsMatch(t, []string{"run_1", "run_2"}, ws.Titles())
}

func TestControllerConcurrentSnapshotRestore(t *testing.T) {
	ctrl, _ := newTestController(t, 3)
	ws := workspace.New()
	ws.Add(testDoc("a"))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = ctrl.SnapshotNow(ws)
		}()
		go func() {
			defer wg.Done()
			_, _ = ctrl.RestoreLast(ws, nil)
		}()
	}
	wg.Wait()

	depth := ctrl.Depth()
	assert.GreaterOrEqual(t, depth, 0)
	assert.LessOrEqual(t, depth, 3)
}
