package model

// CardID is the digit sequence read from an RFID card between two
// terminator keys. Equality is exact string match.
type CardID string

// RawKeyEvent is a single key event reported by a keyboard-emulation
// reader. Only key-down events carry meaning.
type RawKeyEvent struct {
	Code uint16
	Down bool
}
