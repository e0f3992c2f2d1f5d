package rfid

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Riboost-Studio/perfect-scale-station/internal/model"
)

// writeInputNode creates <sysRoot>/class/input/<node>/device/name.
func writeInputNode(t *testing.T, sysRoot, node, name string) {
	t.Helper()
	dir := filepath.Join(sysRoot, "class/input", node, "device")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "name"), []byte(name+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestSysfsEnumeratorDevices(t *testing.T) {
	sysRoot := t.TempDir()
	writeInputNode(t, sysRoot, "event10", "Sycreader RFID Technology Co., Ltd SYC ID&IC USB Reader")
	writeInputNode(t, sysRoot, "event2", "AT Translated Set 2 keyboard")
	writeInputNode(t, sysRoot, "event0", "Power Button")
	if err := os.MkdirAll(filepath.Join(sysRoot, "class/input/event5"), 0o755); err != nil {
		t.Fatal(err)
	}

	enumerator := &SysfsEnumerator{SysRoot: sysRoot, DevRoot: "/dev/input"}
	devices, err := enumerator.Devices()
	if err != nil {
		t.Fatalf("Devices: %v", err)
	}

	want := []DeviceInfo{
		{Name: "Power Button", Path: "/dev/input/event0"},
		{Name: "AT Translated Set 2 keyboard", Path: "/dev/input/event2"},
		{Name: "Sycreader RFID Technology Co., Ltd SYC ID&IC USB Reader", Path: "/dev/input/event10"},
	}
	if len(devices) != len(want) {
		t.Fatalf("got %d devices, want %d: %+v", len(devices), len(want), devices)
	}
	for i := range want {
		if devices[i] != want[i] {
			t.Errorf("device %d = %+v, want %+v", i, devices[i], want[i])
		}
	}
}

func TestDiscover(t *testing.T) {
	t.Run("matches name case-insensitively", func(t *testing.T) {
		enumerator := newFakeEnumerator(
			DeviceInfo{Name: "USB Keyboard", Path: "k"},
			DeviceInfo{Name: "Generic rfid Reader", Path: "r1"},
			DeviceInfo{Name: "Second RFID", Path: "r2"},
		)
		device, err := Discover(enumerator, "RFID")
		if err != nil {
			t.Fatalf("Discover: %v", err)
		}
		if device.Name() != "Generic rfid Reader" {
			t.Errorf("picked %q, want the first match", device.Name())
		}
	})

	t.Run("no match", func(t *testing.T) {
		enumerator := newFakeEnumerator(DeviceInfo{Name: "USB Keyboard", Path: "k"})
		if _, err := Discover(enumerator, "RFID"); !errors.Is(err, model.ErrDeviceNotFound) {
			t.Fatalf("err = %v, want ErrDeviceNotFound", err)
		}
	})

	t.Run("open failure is reported", func(t *testing.T) {
		enumerator := newFakeEnumerator(DeviceInfo{Name: "RFID", Path: "r"})
		enumerator.openErr = errors.New("permission denied")
		_, err := Discover(enumerator, "RFID")
		if err == nil || errors.Is(err, model.ErrDeviceNotFound) {
			t.Fatalf("err = %v, want the open error", err)
		}
	})
}

func TestParseInputEvent(t *testing.T) {
	for _, size := range []int{16, 24} {
		record := make([]byte, size)
		tail := record[size-8:]
		binary.NativeEndian.PutUint16(tail[0:2], evKey)
		binary.NativeEndian.PutUint16(tail[2:4], 28)
		binary.NativeEndian.PutUint32(tail[4:8], keyPressed)

		eventType, code, value, err := parseInputEvent(record)
		if err != nil {
			t.Fatalf("size %d: %v", size, err)
		}
		event, ok := keyEvent(eventType, code, value)
		if !ok || event != (model.RawKeyEvent{Code: 28, Down: true}) {
			t.Errorf("size %d: got %+v %v", size, event, ok)
		}
	}

	if _, _, _, err := parseInputEvent(make([]byte, 4)); err == nil {
		t.Error("short record parsed without error")
	}
}

func TestKeyEvent(t *testing.T) {
	tests := []struct {
		name      string
		eventType uint16
		value     int32
		wantOK    bool
		wantDown  bool
	}{
		{"press", evKey, keyPressed, true, true},
		{"release", evKey, keyReleased, true, false},
		{"auto-repeat", evKey, keyRepeated, true, false},
		{"sync event", 0x00, 0, false, false},
		{"misc scan code", 0x04, 458782, false, false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			event, ok := keyEvent(test.eventType, 30, test.value)
			if ok != test.wantOK || event.Down != test.wantDown {
				t.Errorf("got %+v %v, want ok=%v down=%v", event, ok, test.wantOK, test.wantDown)
			}
		})
	}
}
