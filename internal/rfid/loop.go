package rfid

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Riboost-Studio/perfect-scale-station/internal/clock"
)

// DefaultBackoff is the fixed wait between reconnect attempts.
const DefaultBackoff = time.Second

type State int32

const (
	StateDisconnected State = iota
	StateConnected
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

type LoopConfig struct {
	Enumerator Enumerator
	Queue      *CardQueue
	Match      string
	Terminator uint16
	MaxDigits  int
	Backoff    time.Duration
	Clock      clock.Clock
	Logger     *slog.Logger
}

// Loop reads the RFID reader on a background goroutine and pushes every
// decoded card onto the queue. When the reader faults it waits one
// backoff, rediscovers and carries on, for as long as it runs.
type Loop struct {
	enumerator Enumerator
	queue      *CardQueue
	match      string
	backoff    time.Duration
	clock      clock.Clock
	logger     *slog.Logger
	decoder    *Decoder

	state atomic.Int32

	mu     sync.Mutex
	device Device
	cancel context.CancelFunc
	done   chan struct{}
}

func NewLoop(config LoopConfig) *Loop {
	if config.Match == "" {
		config.Match = "RFID"
	}
	if config.Terminator == 0 {
		config.Terminator = KeyEnter
	}
	if config.Backoff <= 0 {
		config.Backoff = DefaultBackoff
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	if config.Queue == nil {
		config.Queue = NewCardQueue()
	}
	return &Loop{
		enumerator: config.Enumerator,
		queue:      config.Queue,
		match:      config.Match,
		backoff:    config.Backoff,
		clock:      config.Clock,
		logger:     config.Logger,
		decoder:    NewDecoder(config.Terminator, config.MaxDigits),
	}
}

func (l *Loop) Queue() *CardQueue { return l.queue }

func (l *Loop) State() State { return State(l.state.Load()) }

// Start discovers the reader and launches the read goroutine. A missing
// reader fails Start with model.ErrDeviceNotFound; later disconnects are
// handled internally.
func (l *Loop) Start(ctx context.Context) error {
	device, err := Discover(l.enumerator, l.match)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	l.mu.Lock()
	l.device = device
	l.cancel = cancel
	l.done = make(chan struct{})
	l.mu.Unlock()

	l.setState(StateConnected, device.Name())
	go l.run(ctx, device)
	return nil
}

// Stop ends the loop and waits for the goroutine to exit. Closing the
// device interrupts a blocked read, and a pending backoff is abandoned,
// so Stop returns within one backoff interval.
func (l *Loop) Stop() {
	l.mu.Lock()
	cancel, done, device := l.cancel, l.done, l.device
	l.device = nil
	l.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	if device != nil {
		device.Close()
	}
	<-done
}

func (l *Loop) run(ctx context.Context, device Device) {
	defer close(l.done)
	defer l.setState(StateStopped, "")

	for {
		if device != nil {
			err := l.read(device)
			l.detach(device)
			l.decoder.Reset()
			if ctx.Err() != nil {
				return
			}
			l.logger.Warn("rfid reader disconnected", "device", device.Name(), "error", err)
			l.setState(StateDisconnected, device.Name())
			device = nil
		}

		select {
		case <-ctx.Done():
			return
		case <-l.clock.After(l.backoff):
		}

		found, err := Discover(l.enumerator, l.match)
		if err != nil {
			l.logger.Debug("rfid reader not available", "error", err)
			continue
		}
		if !l.attach(ctx, found) {
			found.Close()
			return
		}
		l.setState(StateConnected, found.Name())
		device = found
	}
}

func (l *Loop) read(device Device) error {
	for {
		event, err := device.ReadEvent()
		if err != nil {
			return err
		}
		if card, ok := l.decoder.Feed(event); ok {
			l.logger.Info("card scanned", "device", device.Name(), "card", card)
			l.queue.Push(card)
		}
	}
}

// attach records device as current unless the loop is stopping.
func (l *Loop) attach(ctx context.Context, device Device) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if ctx.Err() != nil {
		return false
	}
	l.device = device
	return true
}

// detach closes device if Stop has not already done so.
func (l *Loop) detach(device Device) {
	l.mu.Lock()
	current := l.device == device
	if current {
		l.device = nil
	}
	l.mu.Unlock()
	if current {
		device.Close()
	}
}

func (l *Loop) setState(state State, device string) {
	previous := State(l.state.Swap(int32(state)))
	if previous != state {
		l.logger.Info("rfid reader state", "from", previous, "to", state, "device", device)
	}
}
