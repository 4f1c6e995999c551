package main

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"clipcast/internal/pipeline"
)

// statusRenderer turns pipeline snapshots into terminal output: a live
// progress bar on a TTY, plain status lines otherwise.
type statusRenderer struct {
	interactive bool
	bar         *progressbar.ProgressBar
	lastStatus  pipeline.Status
}

func newStatusRenderer() *statusRenderer {
	return &statusRenderer{
		interactive: isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()),
	}
}

func (r *statusRenderer) observe(snapshot pipeline.Snapshot) {
	if snapshot.Status != r.lastStatus {
		r.finishBar()
		r.lastStatus = snapshot.Status
		switch snapshot.Status {
		case pipeline.StatusConverting, pipeline.StatusUploading:
			if r.interactive {
				r.bar = progressbar.NewOptions(100,
					progressbar.OptionSetDescription(snapshot.Message),
					progressbar.OptionSetWriter(os.Stderr),
					progressbar.OptionSetWidth(30),
					progressbar.OptionClearOnFinish(),
				)
			} else {
				fmt.Fprintf(os.Stderr, "%s...\n", snapshot.Message)
			}
		case pipeline.StatusLoadingEngine, pipeline.StatusAuthenticating:
			fmt.Fprintf(os.Stderr, "%s...\n", snapshot.Message)
		case pipeline.StatusFailed:
			fmt.Fprintf(os.Stderr, "Failed: %s\n", snapshot.Message)
		}
		return
	}

	if r.bar != nil && snapshot.Status.Active() {
		_ = r.bar.Set(snapshot.Percent)
	}
}

func (r *statusRenderer) finishBar() {
	if r.bar != nil {
		_ = r.bar.Finish()
		r.bar = nil
	}
}
