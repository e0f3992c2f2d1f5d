package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Riboost-Studio/perfect-scale-station/internal/escpos"
	"github.com/Riboost-Studio/perfect-scale-station/internal/model"
)

type submission struct {
	queue   string
	path    string
	title   string
	options map[string]string
	payload []byte
}

type fakeSpooler struct {
	mu          sync.Mutex
	err         error
	submissions []submission
}

func (s *fakeSpooler) Submit(ctx context.Context, queue, path, title string, options map[string]string) error {
	payload, readErr := os.ReadFile(path)
	s.mu.Lock()
	defer s.mu.Unlock()
	if readErr != nil {
		return readErr
	}
	s.submissions = append(s.submissions, submission{queue, path, title, options, payload})
	return s.err
}

func (s *fakeSpooler) last(t *testing.T) submission {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.submissions) == 0 {
		t.Fatal("nothing submitted")
	}
	return s.submissions[len(s.submissions)-1]
}

type fakeRenderer struct {
	kind model.DocumentKind
	data any
	err  error
}

func (r *fakeRenderer) Render(ctx context.Context, kind model.DocumentKind, templatePath string, data any) (image.Image, error) {
	r.kind, r.data = kind, data
	if r.err != nil {
		return nil, r.err
	}
	return image.NewGray(image.Rect(0, 0, 16, 4)), nil
}

func testProfiles() map[string]model.MediaProfile {
	return map[string]model.MediaProfile{
		"receipt": {Media: "custom_2x3in_2x3in", Columns: 24, FeedLines: 3, Mode: model.ModeText},
		"label":   {Media: "custom_2x1in", Columns: 24, FeedLines: 1, Mode: model.ModeText},
	}
}

func newTestDispatcher(t *testing.T, spooler Spooler) *Dispatcher {
	t.Helper()
	return NewDispatcher(DispatcherConfig{
		Spooler:  spooler,
		Queue:    "Scale_Printer",
		Profiles: testProfiles(),
		TempDir:  t.TempDir(),
	})
}

func sampleTicketRecord() model.TicketRecord {
	return model.TicketRecord{
		TicketID:     1,
		CustomerName: "Alice",
		GrossWeight:  4500,
		TareWeight:   1500,
		NetWeight:    3000,
		Unit:         "kg",
		Timestamp:    time.Date(2024, 3, 1, 14, 5, 9, 0, time.UTC),
	}
}

func TestDispatchSubmitsAndRemovesFile(t *testing.T) {
	spooler := &fakeSpooler{}
	d := newTestDispatcher(t, spooler)

	job := model.PrintJob{ID: "job-1", Kind: model.DocumentTicket, Title: "ticket-1", Profile: "receipt", Payload: []byte("hello")}
	if err := d.Dispatch(context.Background(), job); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	got := spooler.last(t)
	if got.queue != "Scale_Printer" || got.title != "ticket-1" {
		t.Errorf("submitted to %q as %q", got.queue, got.title)
	}
	if !bytes.Equal(got.payload, []byte("hello")) {
		t.Errorf("payload = %q", got.payload)
	}
	want := map[string]string{
		"raw":         "",
		"media":       "custom_2x3in_2x3in",
		"page-left":   "0",
		"page-right":  "0",
		"page-top":    "0",
		"page-bottom": "0",
	}
	if !reflect.DeepEqual(got.options, want) {
		t.Errorf("options = %v, want %v", got.options, want)
	}
	if _, err := os.Stat(got.path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("job file %s still present: %v", got.path, err)
	}
}

func TestDispatchFailure(t *testing.T) {
	spoolErr := errors.New("queue disabled")
	spooler := &fakeSpooler{err: spoolErr}
	d := newTestDispatcher(t, spooler)

	job := model.PrintJob{ID: "job-2", Kind: model.DocumentLabel, Profile: "label", Payload: []byte{0x1B, '@'}}
	err := d.Dispatch(context.Background(), job)

	var failure *model.PrintFailure
	if !errors.As(err, &failure) {
		t.Fatalf("error = %v, want *PrintFailure", err)
	}
	if failure.JobID != "job-2" || failure.Kind != model.DocumentLabel || failure.Queue != "Scale_Printer" {
		t.Errorf("failure = %+v", failure)
	}
	if !errors.Is(err, spoolErr) {
		t.Errorf("failure does not wrap spooler error: %v", err)
	}
	if _, statErr := os.Stat(spooler.last(t).path); !errors.Is(statErr, os.ErrNotExist) {
		t.Errorf("job file kept after failure: %v", statErr)
	}
}

func TestDispatchWithoutSpooler(t *testing.T) {
	d := newTestDispatcher(t, nil)
	err := d.Dispatch(context.Background(), model.PrintJob{Kind: model.DocumentTicket})
	var failure *model.PrintFailure
	if !errors.As(err, &failure) || failure.JobID == "" {
		t.Errorf("error = %v, want *PrintFailure with generated job id", err)
	}
}

func TestPrintTicketText(t *testing.T) {
	spooler := &fakeSpooler{}
	d := newTestDispatcher(t, spooler)

	jobID, err := d.PrintTicket(context.Background(), sampleTicketRecord())
	if err != nil {
		t.Fatalf("PrintTicket: %v", err)
	}
	if jobID == "" {
		t.Error("no job id")
	}

	profile, err := escpos.ProfileFrom(testProfiles()["receipt"])
	if err != nil {
		t.Fatal(err)
	}
	want := escpos.RenderTicket(sampleTicketRecord(), profile)
	got := spooler.last(t)
	if !bytes.Equal(got.payload, want) {
		t.Errorf("payload differs from rendered ticket")
	}
	if got.title != "ticket-1" {
		t.Errorf("title = %q", got.title)
	}
}

func TestPrintLabelUsesLabelProfile(t *testing.T) {
	spooler := &fakeSpooler{}
	d := newTestDispatcher(t, spooler)

	record := model.LabelRecord{CustomerID: 7, Name: "Bob", CardID: "321"}
	if _, err := d.PrintLabel(context.Background(), record); err != nil {
		t.Fatalf("PrintLabel: %v", err)
	}
	got := spooler.last(t)
	if got.options["media"] != "custom_2x1in" {
		t.Errorf("media = %q", got.options["media"])
	}
	if !bytes.HasSuffix(got.payload, []byte{0x1D, 'V', 'A', 0}) {
		t.Errorf("label not cut with feed: %x", got.payload)
	}
}

func TestPrintUnknownProfile(t *testing.T) {
	spooler := &fakeSpooler{}
	d := NewDispatcher(DispatcherConfig{Spooler: spooler, Queue: "q", Profiles: testProfiles(), TicketProfile: "missing"})

	jobID, err := d.PrintTicket(context.Background(), sampleTicketRecord())
	var failure *model.PrintFailure
	if !errors.As(err, &failure) || failure.JobID != jobID {
		t.Fatalf("error = %v, want *PrintFailure for job %s", err, jobID)
	}
	if len(spooler.submissions) != 0 {
		t.Error("job submitted despite encoding failure")
	}
}

func TestPrintTicketRaster(t *testing.T) {
	profiles := testProfiles()
	receipt := profiles["receipt"]
	receipt.Mode = model.ModeRaster
	receipt.Width = 0
	profiles["receipt"] = receipt

	spooler := &fakeSpooler{}
	renderer := &fakeRenderer{}
	d := NewDispatcher(DispatcherConfig{Spooler: spooler, Queue: "q", Profiles: profiles, Renderer: renderer, TempDir: t.TempDir()})

	if _, err := d.PrintTicket(context.Background(), sampleTicketRecord()); err != nil {
		t.Fatalf("PrintTicket: %v", err)
	}
	if renderer.kind != model.DocumentTicket {
		t.Errorf("rendered kind = %q", renderer.kind)
	}
	view, ok := renderer.data.(ticketView)
	if !ok || view.Net != "3000.00 kg" || view.Date != "2024-03-01 14:05:09" {
		t.Errorf("template data = %+v", renderer.data)
	}
	header := []byte{0x1D, 'v', '0', 0, 2, 0, 4, 0}
	if !bytes.Contains(spooler.last(t).payload, header) {
		t.Errorf("payload has no raster image")
	}

	renderer.err = errors.New("chrome crashed")
	if _, err := d.PrintTicket(context.Background(), sampleTicketRecord()); !errors.Is(err, renderer.err) {
		t.Errorf("render failure = %v", err)
	}
}

func TestLPArgs(t *testing.T) {
	got := lpArgs("Scale_Printer", "/tmp/job.bin", "ticket-1", jobOptions("custom_2x3in_2x3in"))
	want := []string{
		"-d", "Scale_Printer",
		"-t", "ticket-1",
		"-o", "media=custom_2x3in_2x3in",
		"-o", "page-bottom=0",
		"-o", "page-left=0",
		"-o", "page-right=0",
		"-o", "page-top=0",
		"-o", "raw",
		"/tmp/job.bin",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("lpArgs =\n%v\nwant\n%v", got, want)
	}
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not available")
	}
	path := filepath.Join(t.TempDir(), "lp")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLPSpooler(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		argsFile := filepath.Join(t.TempDir(), "args")
		lp := writeScript(t, `echo "$@" > `+argsFile+"\n")

		err := LPSpooler{Path: lp}.Submit(context.Background(), "Scale_Printer", "/tmp/job.bin", "ticket-1", map[string]string{"raw": ""})
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
		args, err := os.ReadFile(argsFile)
		if err != nil {
			t.Fatal(err)
		}
		if got := strings.TrimSpace(string(args)); got != "-d Scale_Printer -t ticket-1 -o raw /tmp/job.bin" {
			t.Errorf("lp called with %q", got)
		}
	})

	t.Run("failure carries output", func(t *testing.T) {
		lp := writeScript(t, "echo 'lp: The printer or class does not exist.' >&2\nexit 1\n")

		err := LPSpooler{Path: lp}.Submit(context.Background(), "nope", "/tmp/job.bin", "", nil)
		if err == nil || !strings.Contains(err.Error(), "does not exist") {
			t.Errorf("error = %v", err)
		}
	})
}

func TestRawSpooler(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer listener.Close()

	received := make(chan []byte, 1)
	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		data, _ := io.ReadAll(conn)
		received <- data
	}()

	path := filepath.Join(t.TempDir(), "job.bin")
	payload := []byte{0x1B, '@', 'h', 'i', 0x1D, 'V', 0}
	if err := os.WriteFile(path, payload, 0644); err != nil {
		t.Fatal(err)
	}

	spooler := RawSpooler{Addr: listener.Addr().String()}
	if err := spooler.Submit(context.Background(), "", path, "", nil); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	select {
	case got := <-received:
		if !bytes.Equal(got, payload) {
			t.Errorf("printer received %x, want %x", got, payload)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("printer received nothing")
	}
}

func TestRegisterStation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/stations" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("X-Api-Key") != "secret" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		var body stationRegistration
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Station != "north-gate" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"success": true, "data": {"agent_key": "agent-123"}}`)
	}))
	defer server.Close()

	key, err := RegisterStation(context.Background(), server.URL, "secret", "north-gate", "Scale_Printer")
	if err != nil {
		t.Fatalf("RegisterStation: %v", err)
	}
	if key != "agent-123" {
		t.Errorf("agent key = %q", key)
	}

	_, err = RegisterStation(context.Background(), server.URL, "wrong", "north-gate", "")
	if err == nil || !strings.Contains(err.Error(), "401") {
		t.Errorf("error = %v, want API Error 401", err)
	}
}

func TestRenderHTMLDefaultTemplates(t *testing.T) {
	html, err := renderHTML(model.DocumentTicket, "", newTicketView(sampleTicketRecord()))
	if err != nil {
		t.Fatalf("renderHTML: %v", err)
	}
	for _, want := range []string{"Ticket #: 1", "Customer: Alice", "3000.00 kg"} {
		if !strings.Contains(html, want) {
			t.Errorf("ticket html missing %q", want)
		}
	}

	html, err = renderHTML(model.DocumentLabel, "", model.LabelRecord{CustomerID: 7, Name: "<Bob>", CardID: "321"})
	if err != nil {
		t.Fatalf("renderHTML: %v", err)
	}
	if !strings.Contains(html, "&lt;Bob&gt;") || !strings.Contains(html, "Card: 321") {
		t.Errorf("label html = %s", html)
	}
}

func TestRenderHTMLCustomTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.html")
	if err := os.WriteFile(path, []byte(`<p>{{.Net}}</p>`), 0644); err != nil {
		t.Fatal(err)
	}
	html, err := renderHTML(model.DocumentTicket, path, newTicketView(sampleTicketRecord()))
	if err != nil {
		t.Fatalf("renderHTML: %v", err)
	}
	if html != "<p>3000.00 kg</p>" {
		t.Errorf("html = %q", html)
	}
}
