// Package rfid turns key events from a keyboard-emulation RFID reader
// into card ids and keeps the reader attached across unplugs.
package rfid

import "github.com/Riboost-Studio/perfect-scale-station/internal/model"

// Decoder accumulates digit key presses until the terminator key and
// then emits them as one card id. Keys that do not resolve to a digit
// are dropped without interrupting the card being read.
type Decoder struct {
	terminator uint16
	maxDigits  int
	resolve    func(uint16) (rune, bool)
	buffer     []byte
}

// NewDecoder returns a Decoder ending cards on terminator. maxDigits
// caps the card length; 0 leaves it unbounded. Digits past the cap are
// dropped until the next terminator.
func NewDecoder(terminator uint16, maxDigits int) *Decoder {
	return &Decoder{
		terminator: terminator,
		maxDigits:  maxDigits,
		resolve:    ResolveKey,
	}
}

// Feed consumes one event. It returns the card id and true when event
// completes a card.
func (d *Decoder) Feed(event model.RawKeyEvent) (model.CardID, bool) {
	if !event.Down {
		return "", false
	}

	if event.Code == d.terminator {
		if len(d.buffer) == 0 {
			return "", false
		}
		card := model.CardID(d.buffer)
		d.buffer = d.buffer[:0]
		return card, true
	}

	r, ok := d.resolve(event.Code)
	if !ok || r < '0' || r > '9' {
		return "", false
	}
	if d.maxDigits > 0 && len(d.buffer) >= d.maxDigits {
		return "", false
	}
	d.buffer = append(d.buffer, byte(r))
	return "", false
}

// Pending returns the number of digits collected since the last card.
func (d *Decoder) Pending() int { return len(d.buffer) }

// Reset discards a partially read card.
func (d *Decoder) Reset() { d.buffer = d.buffer[:0] }
