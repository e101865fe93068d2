package protocol

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestEncodeResize(t *testing.T) {
	content, err := EncodeResize(80, 24)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if content != `{"columns":80,"rows":24}` {
		t.Errorf("unexpected resize payload: %s", content)
	}
}

func TestEncodeInit(t *testing.T) {
	content, err := EncodeInit("?container=abc", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if content != `{"Arguments":"?container=abc","AuthToken":""}` {
		t.Errorf("unexpected init payload: %s", content)
	}
}

func TestOutputPayloadProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("output payloads decode to the original text", prop.ForAll(
		func(text string) bool {
			got, err := DecodeOutput(EncodeOutput(text))
			return err == nil && got == text
		},
		gen.AnyString(),
	))

	properties.Property("resize payloads carry columns and rows", prop.ForAll(
		func(cols, rows int) bool {
			content, err := EncodeResize(cols, rows)
			if err != nil {
				return false
			}
			var parsed ResizePayload
			if err := json.Unmarshal([]byte(content), &parsed); err != nil {
				return false
			}
			return parsed.Columns == cols && parsed.Rows == rows
		},
		gen.IntRange(1, 1000),
		gen.IntRange(1, 1000),
	))

	properties.TestingRun(t)
}

func TestDecodeOutput(t *testing.T) {
	got, err := DecodeOutput("aGVsbG8=")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "hello" {
		t.Errorf("expected hello, got %q", got)
	}

	if _, err := DecodeOutput("not base64!"); err == nil {
		t.Error("expected error for invalid base64")
	}
}

func TestParsePreferences(t *testing.T) {
	prefs, err := ParsePreferences(`{"font-size":14,"background-color":"#000"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if prefs["font-size"] != float64(14) || prefs["background-color"] != "#000" {
		t.Errorf("unexpected preferences: %v", prefs)
	}

	if _, err := ParsePreferences(`[1,2]`); err == nil {
		t.Error("expected error for non-object preferences")
	}
}

func TestParseReconnectDelay(t *testing.T) {
	tests := []struct {
		content string
		want    time.Duration
		wantErr bool
	}{
		{content: "5", want: 5 * time.Second},
		{content: "0.5", want: 500 * time.Millisecond},
		{content: "0", want: 0},
		{content: "-1", want: 0},
		{content: "9300000000", want: time.Duration(math.MaxInt64)},
		{content: "1e10", want: time.Duration(math.MaxInt64)},
		{content: "1e300", want: time.Duration(math.MaxInt64)},
		{content: "-1e300", want: 0},
		{content: "soon", wantErr: true},
		{content: `"5"`, wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseReconnectDelay(tt.content)
		if tt.wantErr {
			if err == nil {
				t.Errorf("%q: expected error", tt.content)
			}
			continue
		}
		if err != nil {
			t.Errorf("%q: unexpected error: %v", tt.content, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%q: expected %v, got %v", tt.content, tt.want, got)
		}
	}
}
