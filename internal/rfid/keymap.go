package rfid

// Linux input keycodes (linux/input-event-codes.h) used by keyboard
// emulation readers.
const (
	KeyEnter   uint16 = 28
	KeyKPEnter uint16 = 96
)

// keyRunes maps keycodes to the character printed on an unshifted US
// keyboard. Top-row and keypad digits both resolve to '0'..'9'.
var keyRunes = map[uint16]rune{
	2: '1', 3: '2', 4: '3', 5: '4', 6: '5', 7: '6', 8: '7', 9: '8', 10: '9', 11: '0',
	12: '-', 13: '=',
	16: 'q', 17: 'w', 18: 'e', 19: 'r', 20: 't', 21: 'y', 22: 'u', 23: 'i', 24: 'o', 25: 'p',
	26: '[', 27: ']',
	30: 'a', 31: 's', 32: 'd', 33: 'f', 34: 'g', 35: 'h', 36: 'j', 37: 'k', 38: 'l',
	39: ';', 40: '\'', 41: '`', 43: '\\',
	44: 'z', 45: 'x', 46: 'c', 47: 'v', 48: 'b', 49: 'n', 50: 'm',
	51: ',', 52: '.', 53: '/', 55: '*', 57: ' ',
	71: '7', 72: '8', 73: '9', 74: '-',
	75: '4', 76: '5', 77: '6', 78: '+',
	79: '1', 80: '2', 81: '3', 82: '0', 83: '.',
}

// ResolveKey returns the character a keycode represents. Modifier,
// function and unknown keys do not resolve.
func ResolveKey(code uint16) (rune, bool) {
	r, ok := keyRunes[code]
	return r, ok
}
