package utils

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/Riboost-Studio/perfect-scale-station/internal/model"
)

// SystemInfo holds information about the current system
type SystemInfo struct {
	OS            string
	Architecture  string
	ChromePresent bool
	ChromePath    string
	LPPresent     bool
	LPPath        string
}

// DetectSystem returns information about the current operating system and architecture
func DetectSystem() SystemInfo {
	return SystemInfo{
		OS:           runtime.GOOS,
		Architecture: runtime.GOARCH,
	}
}

// lookPath is swapped in tests.
var lookPath = exec.LookPath

// --------------------------------------
// CHROME CHECK
// --------------------------------------

// CheckChrome checks if google-chrome or chromium is installed
func CheckChrome() (bool, string) {
	binaries := []string{
		"google-chrome",
		"google-chrome-stable",
		"chromium",
		"chromium-browser",
	}

	for _, bin := range binaries {
		path, err := lookPath(bin)
		if err == nil {
			return true, path
		}
	}

	for _, path := range getCommonChromePaths() {
		if _, err := os.Stat(path); err == nil {
			return true, path
		}
	}

	return false, ""
}

// getCommonChromePaths returns common Chrome/Chromium installation paths
func getCommonChromePaths() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
			"/Applications/Chromium.app/Contents/MacOS/Chromium",
		}

	case "linux":
		return []string{
			"/usr/bin/google-chrome",
			"/usr/bin/google-chrome-stable",
			"/usr/bin/chromium",
			"/usr/bin/chromium-browser",
			"/snap/bin/chromium",
		}

	default:
		return []string{}
	}
}

// --------------------------------------
// CUPS CHECK
// --------------------------------------

// CheckLP looks for the CUPS lp client. A configured path wins.
func CheckLP(configured string) (bool, string) {
	name := configured
	if name == "" {
		name = "lp"
	}
	path, err := lookPath(name)
	if err != nil {
		return false, ""
	}
	return true, path
}

// --------------------------------------
// VALIDATION
// --------------------------------------

// ValidateSystemRequirements checks the external programs config relies
// on: lp for the CUPS spooler and Chrome for raster profiles. The report
// goes to out.
func ValidateSystemRequirements(config model.Config, out io.Writer) error {
	sysInfo := DetectSystem()

	fmt.Fprintf(out, "System Information:\n")
	fmt.Fprintf(out, "  OS: %s\n", sysInfo.OS)
	fmt.Fprintf(out, "  Architecture: %s\n", sysInfo.Architecture)
	fmt.Fprintln(out)

	var errs []error

	if config.Printer.Spooler == model.SpoolerCUPS {
		sysInfo.LPPresent, sysInfo.LPPath = CheckLP(config.Printer.LPPath)
		if sysInfo.LPPresent {
			fmt.Fprintf(out, "✓ lp found at: %s\n", sysInfo.LPPath)
		} else {
			fmt.Fprintln(out, "✗ lp not found!")
			fmt.Fprintln(out, "  Install CUPS (e.g. sudo apt install cups-client) or use the raw spooler.")
			errs = append(errs, errors.New("lp is required for the cups spooler but not installed"))
		}
	}

	if usesRaster(config) {
		sysInfo.ChromePresent, sysInfo.ChromePath = CheckChrome()
		if sysInfo.ChromePresent {
			fmt.Fprintf(out, "✓ Chrome/Chromium found at: %s\n", sysInfo.ChromePath)
			fmt.Fprintf(out, "  Version: %s\n", getChromeVersion(sysInfo.ChromePath))
		} else {
			fmt.Fprintln(out, "✗ Chrome / Chromium not found!")
			fmt.Fprintln(out, "  It is required for raster receipts rendered with headless Chrome.")
			showChromeInstallationInstructions(out, sysInfo.OS)
			errs = append(errs, errors.New("chrome/chromium is required but not installed"))
		}
	}

	fmt.Fprintln(out)
	return errors.Join(errs...)
}

func usesRaster(config model.Config) bool {
	for _, name := range []string{config.Printer.TicketProfile, config.Printer.LabelProfile} {
		if config.Profiles[name].Mode == model.ModeRaster {
			return true
		}
	}
	return false
}

// getChromeVersion attempts to get the version of Chrome/Chromium
func getChromeVersion(path string) string {
	output, err := exec.Command(path, "--version").Output()
	if err != nil {
		return "unknown"
	}
	return strings.TrimSpace(string(output))
}

// --------------------------------------
// INSTALLATION INSTRUCTIONS
// --------------------------------------

func showChromeInstallationInstructions(out io.Writer, osType string) {
	fmt.Fprintln(out, "Installation Instructions:")
	fmt.Fprintln(out)

	switch osType {
	case "linux":
		fmt.Fprintln(out, "Ubuntu / Debian:")
		fmt.Fprintln(out, "  sudo apt update")
		fmt.Fprintln(out, "  sudo apt install chromium-browser")
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Fedora:")
		fmt.Fprintln(out, "  sudo dnf install chromium")

	case "darwin":
		fmt.Fprintln(out, "Using Homebrew:")
		fmt.Fprintln(out, "  brew install --cask google-chrome")

	default:
		fmt.Fprintln(out, "Please install Chrome or Chromium for your OS.")
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "After installation, restart this application.")
}
