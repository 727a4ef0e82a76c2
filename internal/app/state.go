// Package app provides session lifecycle wiring and events.
package app

import (
	"log"
	"sync"

	"cell-toolbox/internal/checkpoint"
	"cell-toolbox/internal/engine"
	"cell-toolbox/internal/ingest"
	"cell-toolbox/internal/toolbox"
	"cell-toolbox/internal/workspace"
	"cell-toolbox/ui/prefs"
)

// EventType identifies different application events.
type EventType int

const (
	EventDocumentsChanged EventType = iota
	EventImportSettled
	EventRestored
	EventWarning
	EventStatus
)

// EventListener is called when an event occurs.
type EventListener func(data interface{})

// ImportResult is the payload of EventImportSettled.
type ImportResult struct {
	Imported int
	Failed   int
}

// State wires one session together: the live workspace, the snapshot
// controller with its disk store, the import coordinator, the engine, and
// the toolbox actions. The controller's lock is the single serialization
// point for all checkpoint mutations; State adds the event fan-out the
// panel listens on.
type State struct {
	mu sync.RWMutex

	Prefs       *prefs.Prefs
	Workspace   *workspace.Workspace
	Store       *checkpoint.Store
	Controller  *checkpoint.Controller
	Coordinator *ingest.Coordinator
	Engine      engine.Engine
	Toolbox     *toolbox.Toolbox

	listeners map[EventType][]EventListener
}

// NewState builds a session. checkpointRoot may be empty to use the
// process-temp default.
func NewState(p *prefs.Prefs, checkpointRoot string) *State {
	ws := workspace.New()
	store := checkpoint.NewStore(checkpointRoot)
	importer := ingest.NewFileImporter(ingest.DefaultOptions())
	ctrl := checkpoint.NewController(store, importer, func() int {
		return p.Undo().MaxSteps
	})
	coord := ingest.NewCoordinator(ws, ctrl, importer, p.ImportSettle())
	eng := engine.NewOpenCV()

	s := &State{
		Prefs:       p,
		Workspace:   ws,
		Store:       store,
		Controller:  ctrl,
		Coordinator: coord,
		Engine:      eng,
		Toolbox:     toolbox.New(ws, ctrl, eng, p, coord),
		listeners:   make(map[EventType][]EventListener),
	}

	store.SetWarnFunc(func(msg string, err error) {
		log.Printf("checkpoint: %s: %v", msg, err)
		s.Emit(EventWarning, msg)
	})
	coord.OnSettled = func(imported, failed int) {
		s.Emit(EventImportSettled, ImportResult{Imported: imported, Failed: failed})
		s.Emit(EventDocumentsChanged, nil)
	}

	return s
}

// On registers an event listener for the specified event type.
func (s *State) On(event EventType, listener EventListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[event] = append(s.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type.
func (s *State) Emit(event EventType, data interface{}) {
	s.mu.RLock()
	listeners := s.listeners[event]
	s.mu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}

// DropFiles handles a drag-and-drop of files onto the panel: unsupported
// types are filtered out, then the remaining paths go to the import
// coordinator as one event.
func (s *State) DropFiles(paths []string) {
	var accepted []string
	for _, p := range paths {
		if workspace.IsSupportedFormat(p) {
			accepted = append(accepted, p)
		} else {
			log.Printf("drop: ignoring %s", p)
		}
	}
	if len(accepted) == 0 {
		s.Emit(EventStatus, "No supported image files in drop")
		return
	}
	s.Coordinator.OnImportEvent(accepted)
	s.Emit(EventStatus, "Importing...")
}
