package buffer

import "testing"

func TestStripANSI(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "no ANSI", input: "hello world", expected: "hello world"},
		{name: "color codes", input: "\x1b[31mRed\x1b[0m Text", expected: "Red Text"},
		{name: "cursor movement", input: "\x1b[2J\x1b[HClear screen", expected: "Clear screen"},
		{name: "private mode", input: "\x1b[?1049hfull\x1b[?1049l", expected: "full"},
		{name: "OSC title", input: "\x1b]0;Title\x07Text", expected: "Text"},
		{name: "OSC with ST", input: "\x1b]2;Title\x1b\\Text", expected: "Text"},
		{name: "charset", input: "\x1b(Bplain", expected: "plain"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := string(StripANSI([]byte(tt.input))); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}
