package terminal

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/remote-agent-terminal/ttyclient/internal/bridge"
)

var (
	_ bridge.Terminal = (*Local)(nil)
	_ bridge.Terminal = (*Memory)(nil)
)

func TestMemoryRecordsSinkCalls(t *testing.T) {
	m := NewMemory()

	m.WriteUTF8("foo")
	m.WriteUTF8("bar")
	m.SetWindowTitle("bash")
	m.SetPreference("font-size", 12.0)
	m.SetPreference("font-size", 14.0)
	m.SetPreference("cursor-blink", true)
	m.ShowOverlay(bridge.OverlayConnectionClosed)

	if m.Output() != "foobar" {
		t.Errorf("unexpected output %q", m.Output())
	}
	if m.Title() != "bash" {
		t.Errorf("unexpected title %q", m.Title())
	}
	prefs := m.Preferences()
	if prefs["font-size"] != 14.0 || prefs["cursor-blink"] != true {
		t.Errorf("preferences were not merged: %v", prefs)
	}
	if overlays := m.Overlays(); len(overlays) != 1 || overlays[0] != bridge.OverlayConnectionClosed {
		t.Errorf("unexpected overlays %v", overlays)
	}
}

func TestLocalWritesAndPreview(t *testing.T) {
	in, err := os.Open(os.DevNull)
	if err != nil {
		t.Fatalf("open devnull: %v", err)
	}
	defer in.Close()

	var out bytes.Buffer
	local := NewLocal(in, &out)

	local.WriteUTF8("total 0\r\n")
	local.WriteUTF8("root@abc:/# ")
	local.SetWindowTitle("root@abc")
	local.ShowOverlay(bridge.OverlayConnectionClosed)

	got := out.String()
	if !strings.HasPrefix(got, "total 0\r\nroot@abc:/# ") {
		t.Errorf("output not passed through: %q", got)
	}
	if !strings.Contains(got, "\x1b]0;root@abc\x07") {
		t.Errorf("missing title sequence: %q", got)
	}
	if !strings.Contains(got, bridge.OverlayConnectionClosed) {
		t.Errorf("missing overlay: %q", got)
	}
	if local.PreviewLine() != "root@abc:/#" {
		t.Errorf("unexpected preview %q", local.PreviewLine())
	}
	if local.Title() != "root@abc" {
		t.Errorf("unexpected title %q", local.Title())
	}
	if local.Preferences()["send-encoding"] != "raw" {
		t.Errorf("missing default preference: %v", local.Preferences())
	}
}

func TestLocalStartMarksReady(t *testing.T) {
	in, err := os.Open(os.DevNull)
	if err != nil {
		t.Fatalf("open devnull: %v", err)
	}
	defer in.Close()

	local := NewLocal(in, &bytes.Buffer{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	local.Start(ctx)
	select {
	case <-local.Ready():
	case <-time.After(time.Second):
		t.Fatal("terminal never became ready")
	}

	// Keyboard capture on a non-TTY is a no-op but must not fail.
	local.InstallKeyboard()
	local.UninstallKeyboard()
	if err := local.Close(); err != nil {
		t.Errorf("close: %v", err)
	}
}
