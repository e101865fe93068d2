package terminal

import (
	"strings"
	"sync"

	"github.com/remote-agent-terminal/ttyclient/internal/bridge"
)

// Memory is a headless terminal that records everything it is asked to do.
// Input is injected with Type and Resize.
type Memory struct {
	mu       sync.Mutex
	output   strings.Builder
	title    string
	prefs    map[string]any
	overlays []string
	keyboard bool
	installs int

	events    chan bridge.Event
	ready     chan struct{}
	readyOnce sync.Once
}

// NewMemory creates a Memory terminal. It is not ready until MarkReady.
func NewMemory() *Memory {
	return &Memory{
		prefs:  make(map[string]any),
		events: make(chan bridge.Event, 64),
		ready:  make(chan struct{}),
	}
}

// MarkReady signals that the terminal can accept keyboard capture.
func (m *Memory) MarkReady() {
	m.readyOnce.Do(func() { close(m.ready) })
}

// Type queues keystroke input.
func (m *Memory) Type(text string) {
	m.events <- bridge.InputEvent(text)
}

// Resize queues a resize event.
func (m *Memory) Resize(columns, rows int) {
	m.events <- bridge.ResizeEvent(columns, rows)
}

func (m *Memory) WriteUTF8(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.output.WriteString(text)
}

func (m *Memory) SetWindowTitle(title string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.title = title
}

func (m *Memory) SetPreference(key string, value any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefs[key] = value
}

func (m *Memory) ShowOverlay(message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overlays = append(m.overlays, message)
}

func (m *Memory) InstallKeyboard() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keyboard = true
	m.installs++
}

func (m *Memory) UninstallKeyboard() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keyboard = false
}

func (m *Memory) Events() <-chan bridge.Event {
	return m.events
}

func (m *Memory) Ready() <-chan struct{} {
	return m.ready
}

// Output returns everything written so far.
func (m *Memory) Output() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.output.String()
}

// Title returns the current window title.
func (m *Memory) Title() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.title
}

// Preferences returns a copy of the preference state.
func (m *Memory) Preferences() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]any, len(m.prefs))
	for k, v := range m.prefs {
		out[k] = v
	}
	return out
}

// Overlays returns the overlays shown so far.
func (m *Memory) Overlays() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.overlays...)
}

// KeyboardInstalled reports whether keyboard capture is enabled.
func (m *Memory) KeyboardInstalled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.keyboard
}

// KeyboardInstalls returns how many times keyboard capture was enabled.
func (m *Memory) KeyboardInstalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.installs
}
