// Package main provides the entry point for the Cell Toolbox application.
package main

import (
	"log"
	"os"

	"cell-toolbox/internal/app"
	"cell-toolbox/internal/version"
	"cell-toolbox/ui/panel"
	"cell-toolbox/ui/prefs"

	fyneapp "fyne.io/fyne/v2/app"
)

const appTitle = "Cell Toolbox"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Printf("Starting %s v%s", appTitle, version.Version)

	fyneApp := fyneapp.NewWithID("cell-toolbox")

	appPrefs := prefs.Load()
	appState := app.NewState(appPrefs, "")

	// Clear out anything left behind by a previous session.
	appState.Controller.Reset()

	win := panel.New(fyneApp, appState)

	// Image paths given on the command line are imported as if dropped.
	if len(os.Args) > 1 {
		appState.DropFiles(os.Args[1:])
	}

	win.Show()
	fyneApp.Run()
}
