// Package main provides the entry point for the PDF Touch-Up application.
package main

import (
	"log"
	"os"

	"pdf-touchup/internal/app"
	"pdf-touchup/internal/document"
	"pdf-touchup/internal/flatten"
	"pdf-touchup/internal/textrun"
	"pdf-touchup/internal/version"
	"pdf-touchup/ui/mainwindow"
	"pdf-touchup/ui/prefs"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
)

const appID = "io.github.pdftouchup"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Printf("Starting PDF Touch-Up %s", version.String())

	fyneApp := fyneapp.NewWithID(appID)
	fyneApp.Settings().SetTheme(&app.TouchUpTheme{})

	appPrefs := prefs.Load()
	deps := app.Deps{
		Opener:   document.FitzOpener{},
		Loader:   flatten.PDFLoader{},
		Dispatch: fyne.Do,
	}
	if det, err := textrun.NewTesseractDetector("eng"); err != nil {
		log.Printf("Text detection disabled: %v", err)
	} else {
		deps.Detector = det
	}

	session := app.NewSession(appPrefs.SessionConfig(), deps)
	defer func() {
		if err := session.Close(); err != nil {
			log.Printf("Failed to close session: %v", err)
		}
	}()

	win := mainwindow.New(fyneApp, session, appPrefs)
	win.SetCloseIntercept(func() {
		if err := appPrefs.SaveIfChanged(); err != nil {
			log.Printf("Failed to save preferences: %v", err)
		}
		win.Close()
	})

	// Handle command line arguments
	if len(os.Args) > 1 {
		path := os.Args[1]
		if err := win.OpenFile(path); err != nil {
			log.Printf("Failed to open %s: %v", path, err)
		}
	}

	win.ShowAndRun()
}
