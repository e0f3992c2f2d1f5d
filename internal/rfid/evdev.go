package rfid

import (
	"encoding/binary"
	"fmt"

	"github.com/Riboost-Studio/perfect-scale-station/internal/model"
)

const (
	evKey = 0x01

	keyReleased = 0
	keyPressed  = 1
	keyRepeated = 2
)

// parseInputEvent decodes one kernel input_event record. The record
// starts with a struct timeval whose size depends on the architecture;
// type, code and value are always its last eight bytes.
func parseInputEvent(record []byte) (eventType, code uint16, value int32, err error) {
	if len(record) < 8 {
		return 0, 0, 0, fmt.Errorf("short input_event record: %d bytes", len(record))
	}
	tail := record[len(record)-8:]
	eventType = binary.NativeEndian.Uint16(tail[0:2])
	code = binary.NativeEndian.Uint16(tail[2:4])
	value = int32(binary.NativeEndian.Uint32(tail[4:8]))
	return eventType, code, value, nil
}

// keyEvent converts a decoded record to a RawKeyEvent. Non-key events
// report false. Auto-repeat is reported as not-down so held keys never
// produce extra digits.
func keyEvent(eventType, code uint16, value int32) (model.RawKeyEvent, bool) {
	if eventType != evKey {
		return model.RawKeyEvent{}, false
	}
	return model.RawKeyEvent{Code: code, Down: value == keyPressed}, true
}
