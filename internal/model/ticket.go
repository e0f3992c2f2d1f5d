package model

import "time"

type TicketStatus string

const (
	TicketStatusOpen   TicketStatus = "open"
	TicketStatusClosed TicketStatus = "closed"
)

// --- Station Structures ---

type Customer struct {
	ID        int64     `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	CardID    CardID    `json:"rfid_card" yaml:"card"`
	CreatedAt time.Time `json:"createdAt" yaml:"created_at,omitempty"`
}

// WeightTicket records a two-step weighing. TareWeight, NetWeight and
// ClosedAt are nil while the ticket is open.
type WeightTicket struct {
	ID          int64        `json:"id"`
	CustomerID  int64        `json:"customerId"`
	GrossWeight float64      `json:"grossWeight"`
	TareWeight  *float64     `json:"tareWeight,omitempty"`
	NetWeight   *float64     `json:"netWeight,omitempty"`
	Status      TicketStatus `json:"status"`
	CreatedAt   time.Time    `json:"createdAt"`
	ClosedAt    *time.Time   `json:"closedAt,omitempty"`
}

// --- Print Structures ---

type DocumentKind string

const (
	DocumentTicket DocumentKind = "ticket"
	DocumentLabel  DocumentKind = "label"
)

// TicketRecord is the print-ready view of a ticket. Timestamp is the
// instant printed on the receipt; rendering never reads a clock.
type TicketRecord struct {
	TicketID     int64
	CustomerName string
	GrossWeight  float64
	TareWeight   float64
	NetWeight    float64
	Unit         string
	Timestamp    time.Time
}

type LabelRecord struct {
	CustomerID int64
	Name       string
	CardID     CardID
}

// PrintJob is an encoded document on its way to the spooler.
type PrintJob struct {
	ID      string
	Kind    DocumentKind
	Title   string
	Profile string
	Payload []byte
}
