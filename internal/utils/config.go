package utils

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/Riboost-Studio/perfect-scale-station/internal/model"
)

const (
	DefaultApiUrl = "https://api.perfect-menu.it"
	DefaultWsUrl  = "wss://ws.perfect-menu.it/station"

	DefaultMedia = "custom_2x3in_2x3in"
)

// LoadOrSetupConfig reads the config file named in ctx. When the file does
// not exist yet it runs the interactive setup on in/out and saves the
// answers.
func LoadOrSetupConfig(ctx context.Context, in io.Reader, out io.Writer) (model.Config, error) {
	configFile := model.ContextString(ctx, model.ContextConfigFile)
	if configFile == "" {
		return model.Config{}, errors.New("no config file configured")
	}

	config, err := LoadConfig(configFile)
	if err == nil {
		return config, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return model.Config{}, err
	}

	config = SetupConfig(in, out)
	config.AppVersion = model.ContextString(ctx, model.ContextAppVersion)
	ApplyDefaults(&config)
	if err := SaveConfig(configFile, config); err != nil {
		return config, err
	}
	fmt.Fprintln(out, "Configuration saved.")
	return config, nil
}

// LoadConfig parses a JSON config file. Comments and trailing commas are
// accepted. Defaults are applied to every field left unset.
func LoadConfig(path string) (model.Config, error) {
	var config model.Config
	data, err := os.ReadFile(path)
	if err != nil {
		return config, err
	}
	if err := json.Unmarshal(jsonc.ToJSON(data), &config); err != nil {
		return config, fmt.Errorf("parsing config %s: %w", path, err)
	}
	ApplyDefaults(&config)
	return config, nil
}

func SaveConfig(path string, config model.Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// SetupConfig asks for the settings that have no usable default.
func SetupConfig(in io.Reader, out io.Writer) model.Config {
	var config model.Config
	reader := bufio.NewReader(in)

	fmt.Fprintln(out, "--- Initial Setup ---")
	config.Station = prompt(reader, out, "Station name", "station-1")
	config.ApiUrl = prompt(reader, out, "API URL", DefaultApiUrl)
	config.WsUrl = prompt(reader, out, "WebSocket URL", DefaultWsUrl)
	config.APIKey = prompt(reader, out, "Server API Key", "")
	config.Printer.Name = prompt(reader, out, "Printer queue", "")
	return config
}

func prompt(reader *bufio.Reader, out io.Writer, label, fallback string) string {
	if fallback != "" {
		fmt.Fprintf(out, "Enter %s (default: %s): ", label, fallback)
	} else {
		fmt.Fprintf(out, "Enter %s: ", label)
	}
	answer, _ := reader.ReadString('\n')
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return fallback
	}
	return answer
}

// ApplyDefaults fills every unset field of config.
func ApplyDefaults(config *model.Config) {
	if config.ApiUrl == "" {
		config.ApiUrl = DefaultApiUrl
	}
	if config.WsUrl == "" {
		config.WsUrl = DefaultWsUrl
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.Unit == "" {
		config.Unit = "kg"
	}

	reader := &config.Reader
	if reader.Match == "" {
		reader.Match = "RFID"
	}
	if reader.Terminator == 0 {
		reader.Terminator = 28
	}
	if reader.Backoff <= 0 {
		reader.Backoff = model.Duration(time.Second)
	}

	printer := &config.Printer
	if printer.Spooler == "" {
		printer.Spooler = model.SpoolerCUPS
	}
	if printer.Port == 0 {
		printer.Port = 9100
	}
	if printer.TicketProfile == "" {
		printer.TicketProfile = "receipt"
	}
	if printer.LabelProfile == "" {
		printer.LabelProfile = "label"
	}

	if config.Profiles == nil {
		config.Profiles = map[string]model.MediaProfile{}
	}
	for _, name := range []string{printer.TicketProfile, printer.LabelProfile} {
		profile := config.Profiles[name]
		if profile.Media == "" {
			profile.Media = DefaultMedia
		}
		if profile.CodePage == "" {
			profile.CodePage = "PC437"
		}
		if profile.Columns == 0 {
			profile.Columns = 24
		}
		if profile.FeedLines == 0 {
			profile.FeedLines = 3
		}
		if profile.Mode == "" {
			profile.Mode = model.ModeText
		}
		if profile.Width == 0 {
			profile.Width = 384
		}
		config.Profiles[name] = profile
	}
}

// LoadCustomers reads the customer registry, a YAML list of
// {id, name, card}. A missing file is an empty registry.
func LoadCustomers(path string) ([]model.Customer, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var customers []model.Customer
	if err := yaml.Unmarshal(data, &customers); err != nil {
		return nil, fmt.Errorf("parsing customers %s: %w", path, err)
	}
	for i, customer := range customers {
		if customer.ID == 0 || customer.CardID == "" {
			return nil, fmt.Errorf("customer entry %d: id and card are required", i+1)
		}
	}
	return customers, nil
}
