//go:build !windows
// +build !windows

package terminal

import (
	"context"
	"os"
	"os/signal"

	"golang.org/x/sys/unix"
)

// watchResize calls onResize whenever the controlling terminal is resized.
func watchResize(ctx context.Context, onResize func()) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, unix.SIGWINCH)
	defer signal.Stop(sigCh)

	for {
		select {
		case <-ctx.Done():
			return
		case <-sigCh:
			onResize()
		}
	}
}
