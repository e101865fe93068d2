package bridge_test

import (
	"sync"
	"testing"
	"time"

	"github.com/remote-agent-terminal/ttyclient/internal/bridge"
	"github.com/remote-agent-terminal/ttyclient/internal/terminal"
)

type recordingOutbound struct {
	mu      sync.Mutex
	inputs  []string
	resizes [][2]int
	notify  chan struct{}
}

func newRecordingOutbound() *recordingOutbound {
	return &recordingOutbound{notify: make(chan struct{}, 64)}
}

func (o *recordingOutbound) SendInput(text string) {
	o.mu.Lock()
	o.inputs = append(o.inputs, text)
	o.mu.Unlock()
	o.notify <- struct{}{}
}

func (o *recordingOutbound) SendResize(columns, rows int) {
	o.mu.Lock()
	o.resizes = append(o.resizes, [2]int{columns, rows})
	o.mu.Unlock()
	o.notify <- struct{}{}
}

func (o *recordingOutbound) wait(t *testing.T) {
	t.Helper()
	select {
	case <-o.notify:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for outbound event")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestAdapterForwardsEventsWhileActive(t *testing.T) {
	term := terminal.NewMemory()
	term.MarkReady()

	var tapped []bridge.Event
	adapter := bridge.NewAdapter(term, bridge.WithEventTap(func(ev bridge.Event) {
		tapped = append(tapped, ev)
	}))
	out := newRecordingOutbound()

	adapter.OnActive(out)
	waitFor(t, term.KeyboardInstalled)

	term.Type("ls\r")
	out.wait(t)
	term.Resize(80, 24)
	out.wait(t)

	adapter.OnClosed()

	out.mu.Lock()
	defer out.mu.Unlock()
	if len(out.inputs) != 1 || out.inputs[0] != "ls\r" {
		t.Errorf("unexpected inputs %v", out.inputs)
	}
	if len(out.resizes) != 1 || out.resizes[0] != [2]int{80, 24} {
		t.Errorf("unexpected resizes %v", out.resizes)
	}
	if len(tapped) != 2 || tapped[0] != bridge.InputEvent("ls\r") || tapped[1] != bridge.ResizeEvent(80, 24) {
		t.Errorf("event tap saw %v", tapped)
	}
}

func TestAdapterWaitsForReady(t *testing.T) {
	term := terminal.NewMemory()
	adapter := bridge.NewAdapter(term)

	adapter.OnActive(newRecordingOutbound())
	time.Sleep(20 * time.Millisecond)
	if term.KeyboardInstalled() {
		t.Fatal("keyboard installed before terminal was ready")
	}

	term.MarkReady()
	waitFor(t, term.KeyboardInstalled)
	adapter.OnClosed()
}

func TestAdapterOnClosedDetaches(t *testing.T) {
	term := terminal.NewMemory()
	term.MarkReady()
	adapter := bridge.NewAdapter(term)
	out := newRecordingOutbound()

	adapter.OnActive(out)
	waitFor(t, term.KeyboardInstalled)
	adapter.OnClosed()

	if term.KeyboardInstalled() {
		t.Error("keyboard still installed after close")
	}
	overlays := term.Overlays()
	if len(overlays) != 1 || overlays[0] != bridge.OverlayConnectionClosed {
		t.Errorf("expected connection closed overlay, got %v", overlays)
	}

	term.Type("ignored")
	select {
	case <-out.notify:
		t.Fatal("input delivered after close")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestAdapterReattach(t *testing.T) {
	term := terminal.NewMemory()
	term.MarkReady()
	adapter := bridge.NewAdapter(term)

	first := newRecordingOutbound()
	adapter.OnActive(first)
	waitFor(t, term.KeyboardInstalled)
	adapter.OnClosed()

	second := newRecordingOutbound()
	adapter.OnActive(second)
	waitFor(t, func() bool { return term.KeyboardInstalls() == 2 })

	term.Type("pwd\r")
	second.wait(t)
	adapter.OnClosed()

	if len(first.inputs) != 0 {
		t.Errorf("first session received input after detach: %v", first.inputs)
	}
}
