package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Riboost-Studio/perfect-scale-station/internal/escpos"
	"github.com/Riboost-Studio/perfect-scale-station/internal/model"
	"github.com/Riboost-Studio/perfect-scale-station/internal/utils"
)

// --- Spoolers ---

// Spooler hands a file to a named print queue.
type Spooler interface {
	Submit(ctx context.Context, queue, path, title string, options map[string]string) error
}

// LPSpooler submits through the CUPS lp command.
type LPSpooler struct {
	Path string
}

func (s LPSpooler) Submit(ctx context.Context, queue, path, title string, options map[string]string) error {
	lp := s.Path
	if lp == "" {
		lp = "lp"
	}
	cmd := exec.CommandContext(ctx, lp, lpArgs(queue, path, title, options)...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("lp failed: %w (output: %s)", err, strings.TrimSpace(string(output)))
	}
	return nil
}

// lpArgs builds the lp argument list. Options are emitted in key order;
// an empty value becomes a bare "-o key".
func lpArgs(queue, path, title string, options map[string]string) []string {
	args := []string{"-d", queue}
	if title != "" {
		args = append(args, "-t", title)
	}
	keys := make([]string, 0, len(options))
	for key := range options {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if value := options[key]; value != "" {
			args = append(args, "-o", key+"="+value)
		} else {
			args = append(args, "-o", key)
		}
	}
	return append(args, path)
}

// RawSpooler writes the file straight to a printer's raw TCP port.
// Queue, title and options have no meaning on a raw socket.
type RawSpooler struct {
	Addr        string
	DialTimeout time.Duration
	// Settle is how long to keep the socket open after writing so the
	// printer can drain its buffer.
	Settle time.Duration
}

func (s RawSpooler) Submit(ctx context.Context, queue, path, title string, options map[string]string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read job file: %w", err)
	}

	timeout := s.DialTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetWriteDeadline(deadline)
	}
	if _, err := conn.Write(data); err != nil {
		return fmt.Errorf("write failed: %w", err)
	}

	if s.Settle > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(s.Settle):
		}
	}
	return nil
}

// --- Dispatcher ---

// Renderer turns a document into a page image for raster profiles.
type Renderer interface {
	Render(ctx context.Context, kind model.DocumentKind, templatePath string, data any) (image.Image, error)
}

type DispatcherConfig struct {
	Spooler       Spooler
	Queue         string
	Profiles      map[string]model.MediaProfile
	TicketProfile string
	LabelProfile  string
	Renderer      Renderer
	TempDir       string
	Logger        *slog.Logger
}

// Dispatcher encodes station documents and submits them to the spooler.
// Every failure is logged and returned as a *model.PrintFailure.
type Dispatcher struct {
	spooler       Spooler
	queue         string
	profiles      map[string]model.MediaProfile
	ticketProfile string
	labelProfile  string
	renderer      Renderer
	tempDir       string
	logger        *slog.Logger
}

func NewDispatcher(config DispatcherConfig) *Dispatcher {
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	if config.TicketProfile == "" {
		config.TicketProfile = "receipt"
	}
	if config.LabelProfile == "" {
		config.LabelProfile = "label"
	}
	return &Dispatcher{
		spooler:       config.Spooler,
		queue:         config.Queue,
		profiles:      config.Profiles,
		ticketProfile: config.TicketProfile,
		labelProfile:  config.LabelProfile,
		renderer:      config.Renderer,
		tempDir:       config.TempDir,
		logger:        config.Logger,
	}
}

// Dispatch writes the job payload to a temporary file, submits it and
// removes the file again whatever the outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, job model.PrintJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	logger := d.logger.With("job", job.ID, "kind", job.Kind, "queue", d.queue, "profile", job.Profile)

	if err := d.submit(ctx, job); err != nil {
		failure := &model.PrintFailure{JobID: job.ID, Kind: job.Kind, Queue: d.queue, Err: err}
		logger.Error("print job failed", "title", job.Title, "bytes", len(job.Payload), "error", err)
		return failure
	}
	logger.Info("print job submitted", "title", job.Title, "bytes", len(job.Payload))
	return nil
}

func (d *Dispatcher) submit(ctx context.Context, job model.PrintJob) error {
	if d.spooler == nil {
		return errors.New("no spooler configured")
	}

	file, err := os.CreateTemp(d.tempDir, "station-"+string(job.Kind)+"-*.bin")
	if err != nil {
		return fmt.Errorf("failed to create job file: %w", err)
	}
	path := file.Name()
	defer os.Remove(path)

	if _, err := file.Write(job.Payload); err != nil {
		file.Close()
		return fmt.Errorf("failed to write job file: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to write job file: %w", err)
	}

	media := d.profiles[job.Profile].Media
	return d.spooler.Submit(ctx, d.queue, path, job.Title, jobOptions(media))
}

func jobOptions(media string) map[string]string {
	options := map[string]string{
		"raw":         "",
		"page-left":   "0",
		"page-right":  "0",
		"page-top":    "0",
		"page-bottom": "0",
	}
	if media != "" {
		options["media"] = media
	}
	return options
}

// PrintTicket prints the receipt of a closed ticket and returns the job id.
func (d *Dispatcher) PrintTicket(ctx context.Context, record model.TicketRecord) (string, error) {
	job := model.PrintJob{
		ID:      uuid.NewString(),
		Kind:    model.DocumentTicket,
		Title:   fmt.Sprintf("ticket-%d", record.TicketID),
		Profile: d.ticketProfile,
	}
	payload, err := d.encode(ctx, job, func(profile escpos.Profile) ([]byte, error) {
		return escpos.RenderTicket(record, profile), nil
	}, newTicketView(record))
	if err != nil {
		return job.ID, d.encodeFailure(job, err)
	}
	job.Payload = payload
	return job.ID, d.Dispatch(ctx, job)
}

// PrintLabel prints a customer card label and returns the job id.
func (d *Dispatcher) PrintLabel(ctx context.Context, record model.LabelRecord) (string, error) {
	job := model.PrintJob{
		ID:      uuid.NewString(),
		Kind:    model.DocumentLabel,
		Title:   fmt.Sprintf("label-%d", record.CustomerID),
		Profile: d.labelProfile,
	}
	payload, err := d.encode(ctx, job, func(profile escpos.Profile) ([]byte, error) {
		return escpos.RenderLabel(record, profile)
	}, record)
	if err != nil {
		return job.ID, d.encodeFailure(job, err)
	}
	job.Payload = payload
	return job.ID, d.Dispatch(ctx, job)
}

func (d *Dispatcher) encode(ctx context.Context, job model.PrintJob, text func(escpos.Profile) ([]byte, error), view any) ([]byte, error) {
	media, ok := d.profiles[job.Profile]
	if !ok {
		return nil, fmt.Errorf("unknown media profile %q", job.Profile)
	}
	profile, err := escpos.ProfileFrom(media)
	if err != nil {
		return nil, err
	}
	if media.Mode != model.ModeRaster {
		return text(profile)
	}

	if d.renderer == nil {
		return nil, errors.New("raster profile without a renderer")
	}
	page, err := d.renderer.Render(ctx, job.Kind, media.Template, view)
	if err != nil {
		return nil, fmt.Errorf("failed rendering %s: %w", job.Kind, err)
	}
	cut := escpos.CutFull
	if job.Kind == model.DocumentLabel {
		cut = escpos.CutFeed
	}
	return escpos.RenderRaster(page, media.Width, profile, cut), nil
}

func (d *Dispatcher) encodeFailure(job model.PrintJob, err error) error {
	d.logger.Error("print job not encoded",
		"job", job.ID, "kind", job.Kind, "queue", d.queue, "profile", job.Profile, "error", err)
	return &model.PrintFailure{JobID: job.ID, Kind: job.Kind, Queue: d.queue, Err: err}
}

// ticketView is the data handed to HTML ticket templates.
type ticketView struct {
	TicketID     int64
	CustomerName string
	Gross        string
	Tare         string
	Net          string
	Date         string
}

func newTicketView(record model.TicketRecord) ticketView {
	return ticketView{
		TicketID:     record.TicketID,
		CustomerName: record.CustomerName,
		Gross:        escpos.FormatWeight(record.GrossWeight, record.Unit),
		Tare:         escpos.FormatWeight(record.TareWeight, record.Unit),
		Net:          escpos.FormatWeight(record.NetWeight, record.Unit),
		Date:         record.Timestamp.Format("2006-01-02 15:04:05"),
	}
}

// --- Discovery Logic ---

// DiscoverPrinters probes every host of the local /24 for a listener on
// port and returns the addresses that answered, in ascending order.
func DiscoverPrinters(ctx context.Context, port, workers int, logger *slog.Logger) ([]string, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	localIP, err := utils.DetectLocalIP()
	if err != nil {
		return nil, fmt.Errorf("error detecting IP: %w", err)
	}
	parts := strings.Split(localIP, ".")
	subnet := strings.Join(parts[:3], ".")
	logger.Info("scanning subnet", "subnet", subnet+".0/24", "port", port)

	if workers <= 0 {
		workers = 50
	}

	ipChan := make(chan int, 256)
	foundChan := make(chan int, 256)
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for host := range ipChan {
				if utils.Probe(fmt.Sprintf("%s.%d", subnet, host), port) {
					foundChan <- host
				}
			}
		}()
	}

	go func() {
		defer close(ipChan)
		for i := 1; i <= 254; i++ {
			select {
			case ipChan <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(foundChan)
	}()

	var hosts []int
	for host := range foundChan {
		hosts = append(hosts, host)
	}
	sort.Ints(hosts)

	found := make([]string, 0, len(hosts))
	for _, host := range hosts {
		found = append(found, subnet+"."+strconv.Itoa(host))
	}
	return found, ctx.Err()
}

// --- API Registration ---

type stationRegistration struct {
	Station string `json:"station"`
	Queue   string `json:"queue,omitempty"`
}

// RegisterStation announces the station to the server and returns the
// agent key it assigns.
func RegisterStation(ctx context.Context, apiURL, apiKey, station, queue string) (string, error) {
	jsonData, err := json.Marshal(stationRegistration{Station: station, Queue: queue})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(apiURL, "/")+"/api/stations", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", apiKey)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("API Error %d: %s", resp.StatusCode, string(body))
	}

	var response struct {
		Data struct {
			AgentKey string `json:"agent_key"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", err
	}
	if response.Data.AgentKey == "" {
		return "", fmt.Errorf("no agent_key found in response")
	}
	return response.Data.AgentKey, nil
}
