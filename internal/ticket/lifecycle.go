// Package ticket implements the two-weighing ticket protocol: a ticket
// is opened with the gross weight and closed exactly once with the tare
// weight, which fixes the net weight.
package ticket

import (
	"time"

	"github.com/Riboost-Studio/perfect-scale-station/internal/model"
)

// Open starts a ticket for customer. It always succeeds.
func Open(customer model.Customer, grossWeight float64, now time.Time) model.WeightTicket {
	return model.WeightTicket{
		CustomerID:  customer.ID,
		GrossWeight: grossWeight,
		Status:      model.TicketStatusOpen,
		CreatedAt:   now,
	}
}

// Close returns t closed with tareWeight. The net weight is gross minus
// tare and may be negative. t itself is never modified, so a failed
// close leaves the caller's ticket as it was.
func Close(t model.WeightTicket, tareWeight float64, now time.Time) (model.WeightTicket, error) {
	if t.Status != model.TicketStatusOpen {
		return t, model.ErrInvalidTransition
	}
	net := t.GrossWeight - tareWeight
	closedAt := now

	closed := t
	closed.TareWeight = &tareWeight
	closed.NetWeight = &net
	closed.Status = model.TicketStatusClosed
	closed.ClosedAt = &closedAt
	return closed, nil
}
