package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/Riboost-Studio/perfect-scale-station/internal/clock"
	"github.com/Riboost-Studio/perfect-scale-station/internal/model"
	"github.com/Riboost-Studio/perfect-scale-station/internal/rfid"
	"github.com/Riboost-Studio/perfect-scale-station/internal/services"
	"github.com/Riboost-Studio/perfect-scale-station/internal/ticket"
	"github.com/Riboost-Studio/perfect-scale-station/internal/utils"
)

const (
	appName       = "Perfect Scale Station"
	appVersion    = "1.0.0"
	configFile    = "config/config.json"
	customersFile = "config/customers.yaml"
)

// --- Main ---

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath       string
		customersPath    string
		logLevel         string
		discoverPrinters bool
		printLabel       int64
		showVersion      bool
	)

	flagSet := pflag.NewFlagSet("scale-station", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", configFile, "path to the station config file")
	flagSet.StringVar(&customersPath, "customers", customersFile, "path to the customer registry (YAML)")
	flagSet.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error (overrides config)")
	flagSet.BoolVar(&discoverPrinters, "discover-printers", false, "scan the local network for raw (port 9100) printers and exit")
	flagSet.Int64Var(&printLabel, "print-label", 0, "print the card label of the customer with this id and exit")
	flagSet.BoolVar(&showVersion, "version", false, "print the version and exit")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if showVersion {
		fmt.Printf("%s %s\n", appName, appVersion)
		return nil
	}

	ctx := context.Background()
	ctx = context.WithValue(ctx, model.ContextAppName, appName)
	ctx = context.WithValue(ctx, model.ContextAppVersion, appVersion)
	ctx = context.WithValue(ctx, model.ContextAppAuthor, "Riboost Studio")
	ctx = context.WithValue(ctx, model.ContextConfigFile, configPath)
	ctx = context.WithValue(ctx, model.ContextCustomersFile, customersPath)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if discoverPrinters {
		logger := newLogger(logLevel)
		found, err := services.DiscoverPrinters(ctx, 9100, 50, logger)
		if err != nil {
			return err
		}
		if len(found) == 0 {
			fmt.Println("No printers found.")
		}
		for _, ip := range found {
			fmt.Printf("Found printer at %s:9100\n", ip)
		}
		return nil
	}

	// 1. Load Configuration
	config, err := utils.LoadOrSetupConfig(ctx, os.Stdin, os.Stdout)
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if logLevel == "" {
		logLevel = config.LogLevel
	}
	logger := newLogger(logLevel).With("station", config.Station)
	logger.Info("configuration loaded", "version", config.AppVersion, "api", config.ApiUrl, "ws", config.WsUrl)

	if err := utils.ValidateSystemRequirements(config, os.Stdout); err != nil {
		return err
	}

	// 2. Load Customers
	customers, err := utils.LoadCustomers(customersPath)
	if err != nil {
		return err
	}
	store, err := ticket.NewMemoryStore(customers...)
	if err != nil {
		return fmt.Errorf("customer registry: %w", err)
	}
	tickets := ticket.NewService(store, clock.Real(), config.Unit)
	logger.Info("customers loaded", "count", len(customers))

	// 3. Printer
	dispatcher := services.NewDispatcher(services.DispatcherConfig{
		Spooler:       newSpooler(config.Printer),
		Queue:         config.Printer.Name,
		Profiles:      config.Profiles,
		TicketProfile: config.Printer.TicketProfile,
		LabelProfile:  config.Printer.LabelProfile,
		Renderer:      services.ChromeRenderer{Logger: logger},
		Logger:        logger,
	})

	if printLabel != 0 {
		record, err := tickets.LabelRecord(ctx, printLabel)
		if err != nil {
			return fmt.Errorf("customer %d: %w", printLabel, err)
		}
		jobID, err := dispatcher.PrintLabel(ctx, record)
		if err != nil {
			return err
		}
		fmt.Printf("Label for %s sent (job %s)\n", record.Name, jobID)
		return nil
	}

	// 4. Register Station (Get Agent Key)
	if config.AgentKey == "" {
		logger.Info("registering station with server")
		key, err := services.RegisterStation(ctx, config.ApiUrl, config.APIKey, config.Station, config.Printer.Name)
		if err != nil {
			return fmt.Errorf("failed to register station: %w", err)
		}
		config.AgentKey = key
		if err := utils.SaveConfig(configPath, config); err != nil {
			logger.Warn("agent key not saved", "error", err)
		}
	}

	// 5. Start RFID Reader
	enumerator := rfid.NewSysfsEnumerator(config.Reader.Grab)
	if config.Reader.SysRoot != "" {
		enumerator.SysRoot = config.Reader.SysRoot
	}
	if config.Reader.DevRoot != "" {
		enumerator.DevRoot = config.Reader.DevRoot
	}
	cards := rfid.NewCardQueue()
	loop := rfid.NewLoop(rfid.LoopConfig{
		Enumerator: enumerator,
		Queue:      cards,
		Match:      config.Reader.Match,
		Terminator: config.Reader.Terminator,
		MaxDigits:  config.Reader.MaxDigits,
		Backoff:    time.Duration(config.Reader.Backoff),
		Logger:     logger,
	})
	if err := loop.Start(ctx); err != nil {
		return fmt.Errorf("starting rfid reader (match %q): %w", config.Reader.Match, err)
	}

	// 6. Start Agent
	agent := services.NewAgent(services.AgentConfig{
		URL:      config.WsUrl,
		APIKey:   config.APIKey,
		AgentKey: config.AgentKey,
		Station:  config.Station,
		Tickets:  tickets,
		Printer:  dispatcher,
		Cards:    cards,
		Logger:   logger,
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		agent.Run(ctx)
	}()

	logger.Info("system running", "reader", config.Reader.Match, "printer", config.Printer.Name)

	<-ctx.Done()
	logger.Info("shutting down")
	loop.Stop()
	wg.Wait()
	return nil
}

func newSpooler(printer model.PrinterConfig) services.Spooler {
	if printer.Spooler == model.SpoolerRaw {
		return services.RawSpooler{
			Addr:   net.JoinHostPort(printer.IP, strconv.Itoa(printer.Port)),
			Settle: 500 * time.Millisecond,
		}
	}
	return services.LPSpooler{Path: printer.LPPath}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
