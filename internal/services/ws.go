package services

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Riboost-Studio/perfect-scale-station/internal/clock"
	"github.com/Riboost-Studio/perfect-scale-station/internal/model"
	"github.com/Riboost-Studio/perfect-scale-station/internal/rfid"
)

// DefaultRetryDelay is the pause between websocket connection attempts.
const DefaultRetryDelay = 5 * time.Second

// TicketService is the ticket workflow the agent drives.
type TicketService interface {
	HandleScan(ctx context.Context, card model.CardID, weight float64) (model.WeightTicket, error)
	OpenTicket(ctx context.Context, card model.CardID, grossWeight float64) (model.WeightTicket, error)
	CloseTicket(ctx context.Context, ticketID int64, tareWeight float64) (model.WeightTicket, error)
	TicketRecord(ctx context.Context, ticketID int64) (model.TicketRecord, error)
	LabelRecord(ctx context.Context, customerID int64) (model.LabelRecord, error)
}

// DocumentPrinter prints station documents and reports the job id.
type DocumentPrinter interface {
	PrintTicket(ctx context.Context, record model.TicketRecord) (string, error)
	PrintLabel(ctx context.Context, record model.LabelRecord) (string, error)
}

type AgentConfig struct {
	URL        string
	APIKey     string
	AgentKey   string
	Station    string
	Tickets    TicketService
	Printer    DocumentPrinter
	Cards      *rfid.CardQueue
	RetryDelay time.Duration
	Dialer     *websocket.Dialer
	Clock      clock.Clock
	Logger     *slog.Logger
}

// Agent keeps the station connected to the server. It forwards scanned
// cards, applies weighings the server sends and prints the results.
type Agent struct {
	config AgentConfig
	logger *slog.Logger
}

func NewAgent(config AgentConfig) *Agent {
	if config.RetryDelay <= 0 {
		config.RetryDelay = DefaultRetryDelay
	}
	if config.Dialer == nil {
		config.Dialer = websocket.DefaultDialer
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	return &Agent{
		config: config,
		logger: config.Logger.With("station", config.Station),
	}
}

// --- WebSocket Agent Logic ---

// Run connects and serves the server until ctx is cancelled, reconnecting
// after every dropped or failed connection.
func (a *Agent) Run(ctx context.Context) {
	header := http.Header{}
	header.Add("X-Api-Key", a.config.APIKey)

	a.logger.Info("connecting to websocket", "url", a.config.URL)

	for {
		conn, _, err := a.config.Dialer.DialContext(ctx, a.config.URL, header)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			a.logger.Warn("connection failed", "error", err, "retry", a.config.RetryDelay)
		} else {
			a.logger.Info("connected")
			a.handleConnection(ctx, conn)
			conn.Close()
			if ctx.Err() != nil {
				return
			}
			a.logger.Warn("disconnected", "retry", a.config.RetryDelay)
		}

		select {
		case <-ctx.Done():
			return
		case <-a.config.Clock.After(a.config.RetryDelay):
		}
	}
}

// session serializes writes to one connection.
type session struct {
	conn     *websocket.Conn
	agentKey string
	mu       sync.Mutex
}

func (s *session) send(msg model.WSMessage) error {
	msg.AgentKey = s.agentKey
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(msg)
}

func (a *Agent) handleConnection(ctx context.Context, conn *websocket.Conn) {
	s := &session{conn: conn, agentKey: a.config.AgentKey}
	if err := s.send(model.WSMessage{Type: model.MessageTypeRegister}); err != nil {
		a.logger.Error("failed to send register", "error", err)
		return
	}

	connCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
	}()

	wg.Add(2)
	go func() {
		defer wg.Done()
		<-connCtx.Done()
		conn.Close()
	}()
	go func() {
		defer wg.Done()
		a.forwardCards(connCtx, s)
	}()

	for {
		var msg model.WSMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if connCtx.Err() == nil {
				a.logger.Warn("read error", "error", err)
			}
			return
		}

		switch msg.Type {
		case model.MessageTypeRegistered:
			a.logger.Info("successfully registered with server")

		case model.MessageTypePing:
			a.logger.Debug("received ping, sending pong")
			a.reply(s, model.WSMessage{Type: model.MessageTypePong})

		case model.MessageTypeUnregister:
			a.logger.Info("server requested unregister")
			return

		case model.MessageTypeScan, model.MessageTypeOpenTicket, model.MessageTypeCloseTicket:
			a.handleWeighing(connCtx, s, msg)

		case model.MessageTypePrintTicket:
			a.printTicket(connCtx, s, msg.RequestID, msg.TicketID)

		case model.MessageTypePrintLabel:
			a.printLabel(connCtx, s, msg)

		default:
			a.logger.Warn("unknown message type", "type", msg.Type)
		}
	}
}

// forwardCards sends every queued card to the server while the
// connection is up. Cards scanned while offline wait in the queue.
func (a *Agent) forwardCards(ctx context.Context, s *session) {
	if a.config.Cards == nil {
		return
	}
	for {
		for {
			card, ok := a.config.Cards.TryPop()
			if !ok {
				break
			}
			if err := s.send(model.WSMessage{Type: model.MessageTypeCardScanned, CardID: card}); err != nil {
				a.logger.Warn("card not forwarded", "card", card, "error", err)
				return
			}
			a.logger.Debug("card forwarded", "card", card)
		}

		select {
		case <-ctx.Done():
			return
		case <-a.config.Cards.Ready():
		}
	}
}

func (a *Agent) handleWeighing(ctx context.Context, s *session, msg model.WSMessage) {
	var (
		t   model.WeightTicket
		err error
	)
	switch msg.Type {
	case model.MessageTypeScan:
		t, err = a.config.Tickets.HandleScan(ctx, msg.CardID, msg.Weight)
	case model.MessageTypeOpenTicket:
		t, err = a.config.Tickets.OpenTicket(ctx, msg.CardID, msg.Weight)
	case model.MessageTypeCloseTicket:
		t, err = a.config.Tickets.CloseTicket(ctx, msg.TicketID, msg.Weight)
	}
	if err != nil {
		a.replyError(s, msg.RequestID, err)
		return
	}

	a.logger.Info("ticket updated", "ticket", t.ID, "customer", t.CustomerID, "status", t.Status)
	a.reply(s, model.WSMessage{Type: model.MessageTypeTicket, RequestID: msg.RequestID, Ticket: &t})

	if t.Status == model.TicketStatusClosed {
		a.printTicket(ctx, s, msg.RequestID, t.ID)
	}
}

func (a *Agent) printTicket(ctx context.Context, s *session, requestID string, ticketID int64) {
	record, err := a.config.Tickets.TicketRecord(ctx, ticketID)
	if err != nil {
		a.replyError(s, requestID, err)
		return
	}
	jobID, err := a.config.Printer.PrintTicket(ctx, record)
	a.replyPrinted(s, requestID, ticketID, 0, jobID, err)
}

func (a *Agent) printLabel(ctx context.Context, s *session, msg model.WSMessage) {
	record, err := a.config.Tickets.LabelRecord(ctx, msg.CustomerID)
	if err != nil {
		a.replyError(s, msg.RequestID, err)
		return
	}
	jobID, err := a.config.Printer.PrintLabel(ctx, record)
	a.replyPrinted(s, msg.RequestID, 0, msg.CustomerID, jobID, err)
}

func (a *Agent) replyPrinted(s *session, requestID string, ticketID, customerID int64, jobID string, err error) {
	msg := model.WSMessage{
		Type:       model.MessageTypePrinted,
		RequestID:  requestID,
		TicketID:   ticketID,
		CustomerID: customerID,
		JobID:      jobID,
	}
	if err != nil {
		msg.Type = model.MessageTypePrintFailed
		msg.Error = err.Error()
		var failure *model.PrintFailure
		if errors.As(err, &failure) {
			msg.JobID = failure.JobID
		}
	}
	a.reply(s, msg)
}

func (a *Agent) replyError(s *session, requestID string, err error) {
	a.logger.Warn("request failed", "request", requestID, "error", err)
	a.reply(s, model.WSMessage{Type: model.MessageTypeError, RequestID: requestID, Error: err.Error()})
}

func (a *Agent) reply(s *session, msg model.WSMessage) {
	if err := s.send(msg); err != nil {
		a.logger.Warn("failed to send reply", "type", msg.Type, "error", err)
	}
}
