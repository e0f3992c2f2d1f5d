//go:build linux

package rfid

import (
	"fmt"
	"io"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/Riboost-Studio/perfect-scale-station/internal/model"
)

// EVIOCGRAB is _IOW('E', 0x90, int).
const eviocgrab = 0x40044590

var inputEventSize = int(unsafe.Sizeof(unix.Timeval{})) + 8

type evdevDevice struct {
	name   string
	file   *os.File
	record []byte
}

func openEvdev(info DeviceInfo, grab bool) (Device, error) {
	// os.OpenFile registers the node with the runtime poller, so Close
	// interrupts a blocked Read.
	file, err := os.OpenFile(info.Path, os.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}
	if grab {
		if err := grabDevice(file); err != nil {
			file.Close()
			return nil, fmt.Errorf("grabbing %s: %w", info.Path, err)
		}
	}
	return &evdevDevice{
		name:   info.Name,
		file:   file,
		record: make([]byte, inputEventSize),
	}, nil
}

func grabDevice(file *os.File) error {
	raw, err := file.SyscallConn()
	if err != nil {
		return err
	}
	var ioctlErr error
	if err := raw.Control(func(fd uintptr) {
		ioctlErr = unix.IoctlSetInt(int(fd), eviocgrab, 1)
	}); err != nil {
		return err
	}
	return ioctlErr
}

func (d *evdevDevice) Name() string { return d.name }

func (d *evdevDevice) ReadEvent() (model.RawKeyEvent, error) {
	for {
		if _, err := io.ReadFull(d.file, d.record); err != nil {
			return model.RawKeyEvent{}, err
		}
		eventType, code, value, err := parseInputEvent(d.record)
		if err != nil {
			return model.RawKeyEvent{}, err
		}
		if event, ok := keyEvent(eventType, code, value); ok {
			return event, nil
		}
	}
}

func (d *evdevDevice) Close() error { return d.file.Close() }
