package ticket

import (
	"context"
	"fmt"
	"sync"

	"github.com/Riboost-Studio/perfect-scale-station/internal/model"
)

// MemoryStore is an in-process Repository. Transactions are serialized
// with a single lock; tickets live only as long as the process.
type MemoryStore struct {
	tx sync.Mutex

	mu        sync.Mutex
	customers map[int64]model.Customer
	byCard    map[model.CardID]int64
	tickets   map[int64]model.WeightTicket
	nextID    int64
}

func NewMemoryStore(customers ...model.Customer) (*MemoryStore, error) {
	store := &MemoryStore{
		customers: make(map[int64]model.Customer),
		byCard:    make(map[model.CardID]int64),
		tickets:   make(map[int64]model.WeightTicket),
		nextID:    1,
	}
	for _, customer := range customers {
		if err := store.AddCustomer(customer); err != nil {
			return nil, err
		}
	}
	return store, nil
}

// AddCustomer registers customer. A card may belong to one customer only.
func (m *MemoryStore) AddCustomer(customer model.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.customers[customer.ID]; exists {
		return fmt.Errorf("customer %d already registered", customer.ID)
	}
	if owner, taken := m.byCard[customer.CardID]; taken {
		return fmt.Errorf("card %s for customer %d: %w (customer %d)", customer.CardID, customer.ID, model.ErrDuplicateCard, owner)
	}
	m.customers[customer.ID] = customer
	m.byCard[customer.CardID] = customer.ID
	return nil
}

func (m *MemoryStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.tx.Lock()
	defer m.tx.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}

func (m *MemoryStore) CustomerByCard(ctx context.Context, card model.CardID) (model.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byCard[card]
	if !ok {
		return model.Customer{}, model.ErrCustomerNotFound
	}
	return m.customers[id], nil
}

func (m *MemoryStore) Customer(ctx context.Context, id int64) (model.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	customer, ok := m.customers[id]
	if !ok {
		return model.Customer{}, model.ErrCustomerNotFound
	}
	return customer, nil
}

func (m *MemoryStore) Ticket(ctx context.Context, id int64) (model.WeightTicket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickets[id]
	if !ok {
		return model.WeightTicket{}, model.ErrTicketNotFound
	}
	return t, nil
}

// OpenTicketForCustomer returns the oldest open ticket of the customer.
func (m *MemoryStore) OpenTicketForCustomer(ctx context.Context, customerID int64) (*model.WeightTicket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var found *model.WeightTicket
	for _, t := range m.tickets {
		if t.CustomerID != customerID || t.Status != model.TicketStatusOpen {
			continue
		}
		if found == nil || t.ID < found.ID {
			open := t
			found = &open
		}
	}
	return found, nil
}

func (m *MemoryStore) InsertTicket(ctx context.Context, t model.WeightTicket) (model.WeightTicket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.ID = m.nextID
	m.nextID++
	m.tickets[t.ID] = t
	return t, nil
}

func (m *MemoryStore) UpdateTicket(ctx context.Context, t model.WeightTicket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tickets[t.ID]; !ok {
		return model.ErrTicketNotFound
	}
	m.tickets[t.ID] = t
	return nil
}
