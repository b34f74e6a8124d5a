package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const spinnerInterval = 80 * time.Millisecond

// withSpinner runs fn while animating msg on w, then clears the line. It
// returns fn's error unchanged.
func withSpinner(w io.Writer, msg string, fn func() error) error {
	stop := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(spinnerInterval)
		defer ticker.Stop()
		for i := 0; ; i++ {
			frame := spinnerFrames[i%len(spinnerFrames)]
			fmt.Fprintf(w, "\r%s %s", styleIconSpinner.Render(frame), StyleDim.Render(msg))
			select {
			case <-stop:
				fmt.Fprintf(w, "\r%s\r", strings.Repeat(" ", lipgloss.Width(msg)+2))
				return
			case <-ticker.C:
			}
		}
	}()

	err := fn()
	close(stop)
	<-done
	return err
}
