package rfid

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/Riboost-Studio/perfect-scale-station/internal/model"
)

// DeviceInfo identifies an input device before it is opened.
type DeviceInfo struct {
	Name string
	Path string
}

// Device is an opened input device. ReadEvent blocks until a key event
// arrives; Close unblocks a pending ReadEvent.
type Device interface {
	Name() string
	ReadEvent() (model.RawKeyEvent, error)
	Close() error
}

// Enumerator lists and opens input devices.
type Enumerator interface {
	Devices() ([]DeviceInfo, error)
	Open(info DeviceInfo) (Device, error)
}

// Discover opens the first device whose name contains match, ignoring
// case. It returns model.ErrDeviceNotFound when nothing matches.
func Discover(enumerator Enumerator, match string) (Device, error) {
	devices, err := enumerator.Devices()
	if err != nil {
		return nil, fmt.Errorf("listing input devices: %w", err)
	}
	needle := strings.ToUpper(match)
	for _, info := range devices {
		if !strings.Contains(strings.ToUpper(info.Name), needle) {
			continue
		}
		device, err := enumerator.Open(info)
		if err != nil {
			return nil, fmt.Errorf("opening %s (%s): %w", info.Path, info.Name, err)
		}
		return device, nil
	}
	return nil, model.ErrDeviceNotFound
}

// SysfsEnumerator finds evdev nodes through /sys/class/input. The roots
// are configurable so tests can point at a synthetic tree.
type SysfsEnumerator struct {
	SysRoot string
	DevRoot string
	// Grab requests exclusive access so card digits do not also reach
	// the console.
	Grab bool
}

func NewSysfsEnumerator(grab bool) *SysfsEnumerator {
	return &SysfsEnumerator{SysRoot: "/sys", DevRoot: "/dev/input", Grab: grab}
}

// Devices returns the event devices in kernel order (event0, event1, ...).
// Nodes whose name cannot be read are skipped.
func (e *SysfsEnumerator) Devices() ([]DeviceInfo, error) {
	matches, err := filepath.Glob(filepath.Join(e.SysRoot, "class/input/event*"))
	if err != nil {
		return nil, err
	}
	sort.Slice(matches, func(i, j int) bool {
		return eventNumber(matches[i]) < eventNumber(matches[j])
	})

	var devices []DeviceInfo
	for _, node := range matches {
		name, err := os.ReadFile(filepath.Join(node, "device/name"))
		if err != nil {
			continue
		}
		devices = append(devices, DeviceInfo{
			Name: strings.TrimSpace(string(name)),
			Path: filepath.Join(e.DevRoot, filepath.Base(node)),
		})
	}
	return devices, nil
}

func (e *SysfsEnumerator) Open(info DeviceInfo) (Device, error) {
	return openEvdev(info, e.Grab)
}

// eventNumber extracts N from a path ending in "eventN", or -1.
func eventNumber(path string) int {
	n, err := strconv.Atoi(strings.TrimPrefix(filepath.Base(path), "event"))
	if err != nil {
		return -1
	}
	return n
}
