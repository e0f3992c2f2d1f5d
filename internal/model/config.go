package model

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	SpoolerCUPS = "cups"
	SpoolerRaw  = "raw"

	ModeText   = "text"
	ModeRaster = "raster"
)

// --- Configuration Structures ---

type Config struct {
	AppVersion string                  `json:"appVersion"`
	Station    string                  `json:"station"`
	ApiUrl     string                  `json:"apiUrl"`
	WsUrl      string                  `json:"wsUrl"`
	APIKey     string                  `json:"apiKey"`
	AgentKey   string                  `json:"agent_key,omitempty"` // Assigned by server
	LogLevel   string                  `json:"logLevel"`
	Unit       string                  `json:"unit"`
	Reader     ReaderConfig            `json:"reader"`
	Printer    PrinterConfig           `json:"printer"`
	Profiles   map[string]MediaProfile `json:"profiles"`
}

type ReaderConfig struct {
	Match      string   `json:"match"`
	Terminator uint16   `json:"terminator"`
	MaxDigits  int      `json:"maxDigits"`
	Backoff    Duration `json:"backoff"`
	Grab       bool     `json:"grab"`
	SysRoot    string   `json:"sysRoot"`
	DevRoot    string   `json:"devRoot"`
}

type PrinterConfig struct {
	Name          string `json:"name"`    // CUPS queue name
	Spooler       string `json:"spooler"` // "cups" or "raw"
	IP            string `json:"ip"`
	Port          int    `json:"port"`
	LPPath        string `json:"lpPath"`
	TicketProfile string `json:"ticketProfile"`
	LabelProfile  string `json:"labelProfile"`
}

// MediaProfile describes one kind of paper stock loaded in the printer.
type MediaProfile struct {
	Media     string `json:"media"`
	CodePage  string `json:"codePage"`
	Columns   int    `json:"columns"`
	FeedLines int    `json:"feedLines"`
	Mode      string `json:"mode"`
	Width     int    `json:"width"` // raster width in dots
	Barcode   bool   `json:"barcode"`
	Template  string `json:"template,omitempty"`
	Title     string `json:"title,omitempty"`
	Footer    string `json:"footer,omitempty"`
}

// Duration is a time.Duration written as "1s" in config files.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch value := raw.(type) {
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value, err)
		}
		*d = Duration(parsed)
	case float64:
		*d = Duration(time.Duration(value) * time.Millisecond)
	default:
		return fmt.Errorf("invalid duration %s", string(data))
	}
	return nil
}
