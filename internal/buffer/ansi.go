package buffer

import "regexp"

// ansiPattern matches ANSI escape sequences: CSI, OSC (BEL or ST
// terminated), DCS/SOS/PM/APC strings and charset selection.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]|\x1b\][^\x07\x1b]*(?:\x07|\x1b\\)|\x1b[PX^_][^\x1b]*\x1b\\|\x1b[()][0-9A-Za-z]`)

// StripANSI removes ANSI escape sequences from data.
func StripANSI(data []byte) []byte {
	return ansiPattern.ReplaceAll(data, nil)
}
