// Package logging routes diagnostics away from the terminal while the
// full-screen browser owns it.
package logging

import (
	"io"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"
)

// Setup points the standard logger at filename. An empty filename discards
// log output entirely (log.Fatal and panics still surface). With a file, Bubble
// Tea's own debug log is written there as well. The returned cleanup closes
// whatever was opened.
func Setup(filename string) (cleanup func(), err error) {
	if filename == "" {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
		log.SetOutput(io.Discard)
		return func() {}, nil
	}

	f, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	log.SetOutput(f)
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	tf, err := tea.LogToFile(filename, "tui")
	if err != nil {
		f.Close()
		return nil, err
	}

	return func() {
		tf.Close()
		f.Close()
		log.SetOutput(os.Stderr)
	}, nil
}
