package utils

import (
	"bytes"
	"os/exec"
	"strings"
	"testing"

	"github.com/Riboost-Studio/perfect-scale-station/internal/model"
)

func stubLookPath(t *testing.T, found map[string]string) {
	t.Helper()
	previous := lookPath
	lookPath = func(name string) (string, error) {
		if path, ok := found[name]; ok {
			return path, nil
		}
		return "", exec.ErrNotFound
	}
	t.Cleanup(func() { lookPath = previous })
}

func TestCheckLP(t *testing.T) {
	stubLookPath(t, map[string]string{"lp": "/usr/bin/lp", "/opt/cups/lp": "/opt/cups/lp"})

	if ok, path := CheckLP(""); !ok || path != "/usr/bin/lp" {
		t.Errorf("CheckLP(\"\") = %v, %q", ok, path)
	}
	if ok, path := CheckLP("/opt/cups/lp"); !ok || path != "/opt/cups/lp" {
		t.Errorf("CheckLP(configured) = %v, %q", ok, path)
	}
	if ok, _ := CheckLP("lpr"); ok {
		t.Error("CheckLP(lpr) should fail")
	}
}

func TestValidateSystemRequirements(t *testing.T) {
	stubLookPath(t, nil)

	textOnly := model.Config{}
	ApplyDefaults(&textOnly)

	t.Run("raw spooler needs nothing", func(t *testing.T) {
		config := textOnly
		config.Printer.Spooler = model.SpoolerRaw
		var out bytes.Buffer
		if err := ValidateSystemRequirements(config, &out); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("cups without lp", func(t *testing.T) {
		var out bytes.Buffer
		err := ValidateSystemRequirements(textOnly, &out)
		if err == nil || !strings.Contains(err.Error(), "lp") {
			t.Errorf("error = %v, want missing lp", err)
		}
		if !strings.Contains(out.String(), "lp not found") {
			t.Errorf("report = %q", out.String())
		}
	})

	t.Run("cups with lp", func(t *testing.T) {
		stubLookPath(t, map[string]string{"lp": "/usr/bin/lp"})
		var out bytes.Buffer
		if err := ValidateSystemRequirements(textOnly, &out); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestUsesRaster(t *testing.T) {
	config := model.Config{}
	ApplyDefaults(&config)
	if usesRaster(config) {
		t.Error("default profiles should be text")
	}

	label := config.Profiles["label"]
	label.Mode = model.ModeRaster
	config.Profiles["label"] = label
	if !usesRaster(config) {
		t.Error("raster label profile not detected")
	}
}
