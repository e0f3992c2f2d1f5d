//go:build !linux

package rfid

import "errors"

func openEvdev(info DeviceInfo, grab bool) (Device, error) {
	return nil, errors.New("evdev input devices are only supported on linux")
}
