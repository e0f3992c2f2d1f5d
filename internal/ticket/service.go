package ticket

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/Riboost-Studio/perfect-scale-station/internal/clock"
	"github.com/Riboost-Studio/perfect-scale-station/internal/model"
)

// Repository is the persistence collaborator. WithTx runs fn inside a
// transaction so two closes of one ticket cannot interleave.
type Repository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	CustomerByCard(ctx context.Context, card model.CardID) (model.Customer, error)
	Customer(ctx context.Context, id int64) (model.Customer, error)
	Ticket(ctx context.Context, id int64) (model.WeightTicket, error)
	OpenTicketForCustomer(ctx context.Context, customerID int64) (*model.WeightTicket, error)
	InsertTicket(ctx context.Context, t model.WeightTicket) (model.WeightTicket, error)
	UpdateTicket(ctx context.Context, t model.WeightTicket) error
}

type Service struct {
	repo  Repository
	clock clock.Clock
	unit  string
}

func NewService(repo Repository, clk clock.Clock, unit string) *Service {
	if unit == "" {
		unit = "kg"
	}
	return &Service{repo: repo, clock: clk, unit: unit}
}

// OpenTicket starts a ticket for the customer holding card.
func (s *Service) OpenTicket(ctx context.Context, card model.CardID, grossWeight float64) (model.WeightTicket, error) {
	var opened model.WeightTicket
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		customer, err := s.repo.CustomerByCard(txCtx, card)
		if err != nil {
			return err
		}
		opened, err = s.repo.InsertTicket(txCtx, Open(customer, grossWeight, s.clock.Now()))
		return err
	})
	if err != nil {
		return model.WeightTicket{}, fmt.Errorf("opening ticket for card %s: %w", card, err)
	}
	return opened, nil
}

// CloseTicket records the tare weight of an open ticket.
func (s *Service) CloseTicket(ctx context.Context, ticketID int64, tareWeight float64) (model.WeightTicket, error) {
	var closed model.WeightTicket
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		current, err := s.repo.Ticket(txCtx, ticketID)
		if err != nil {
			return err
		}
		closed, err = Close(current, tareWeight, s.clock.Now())
		if err != nil {
			return err
		}
		return s.repo.UpdateTicket(txCtx, closed)
	})
	if err != nil {
		return model.WeightTicket{}, fmt.Errorf("closing ticket %d: %w", ticketID, err)
	}
	return closed, nil
}

// HandleScan runs the station workflow for a card presented at the
// scale: the first weighing opens a ticket with weight as gross, the
// next one closes it with weight as tare.
func (s *Service) HandleScan(ctx context.Context, card model.CardID, weight float64) (model.WeightTicket, error) {
	if math.IsNaN(weight) || math.IsInf(weight, 0) || weight <= 0 {
		return model.WeightTicket{}, fmt.Errorf("%w: %v", model.ErrInvalidWeight, weight)
	}

	open, err := s.OpenTicketForCard(ctx, card)
	if err != nil {
		return model.WeightTicket{}, err
	}
	if open != nil {
		return s.CloseTicket(ctx, open.ID, weight)
	}
	return s.OpenTicket(ctx, card, weight)
}

// OpenTicketForCard returns the open ticket of the card's customer, or
// nil when there is none.
func (s *Service) OpenTicketForCard(ctx context.Context, card model.CardID) (*model.WeightTicket, error) {
	customer, err := s.repo.CustomerByCard(ctx, card)
	if err != nil {
		return nil, fmt.Errorf("looking up card %s: %w", card, err)
	}
	return s.repo.OpenTicketForCustomer(ctx, customer.ID)
}

func (s *Service) Ticket(ctx context.Context, id int64) (model.WeightTicket, error) {
	return s.repo.Ticket(ctx, id)
}

func (s *Service) Customer(ctx context.Context, id int64) (model.Customer, error) {
	return s.repo.Customer(ctx, id)
}

// TicketRecord builds the receipt for a closed ticket. The printed
// timestamp is the close time, so reprints are identical.
func (s *Service) TicketRecord(ctx context.Context, id int64) (model.TicketRecord, error) {
	t, err := s.repo.Ticket(ctx, id)
	if err != nil {
		return model.TicketRecord{}, err
	}
	if t.Status != model.TicketStatusClosed {
		return model.TicketRecord{}, fmt.Errorf("printing ticket %d: %w", id, model.ErrInvalidTransition)
	}
	customer, err := s.repo.Customer(ctx, t.CustomerID)
	if err != nil && !errors.Is(err, model.ErrCustomerNotFound) {
		return model.TicketRecord{}, err
	}
	return model.TicketRecord{
		TicketID:     t.ID,
		CustomerName: customer.Name,
		GrossWeight:  t.GrossWeight,
		TareWeight:   *t.TareWeight,
		NetWeight:    *t.NetWeight,
		Unit:         s.unit,
		Timestamp:    *t.ClosedAt,
	}, nil
}

func (s *Service) LabelRecord(ctx context.Context, customerID int64) (model.LabelRecord, error) {
	customer, err := s.repo.Customer(ctx, customerID)
	if err != nil {
		return model.LabelRecord{}, err
	}
	return model.LabelRecord{
		CustomerID: customer.ID,
		Name:       customer.Name,
		CardID:     customer.CardID,
	}, nil
}
