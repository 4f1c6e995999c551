package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		// Cancellation already surfaced through the renderer.
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "clipcast:", err)
		}
		os.Exit(1)
	}
}
