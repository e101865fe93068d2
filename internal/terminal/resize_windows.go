//go:build windows
// +build windows

package terminal

import "context"

// watchResize is a no-op on Windows, which has no SIGWINCH; the size is
// still reported each time keyboard capture is installed.
func watchResize(ctx context.Context, onResize func()) {
	<-ctx.Done()
}
