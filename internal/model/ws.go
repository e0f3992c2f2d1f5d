package model

type MessageType string

const (
	MessageTypeRegister    MessageType = "register"
	MessageTypeRegistered  MessageType = "registered"
	MessageTypeUnregister  MessageType = "unregister"
	MessageTypePing        MessageType = "ping"
	MessageTypePong        MessageType = "pong"
	MessageTypeCardScanned MessageType = "card_scanned"
	MessageTypeScan        MessageType = "scan"
	MessageTypeOpenTicket  MessageType = "open_ticket"
	MessageTypeCloseTicket MessageType = "close_ticket"
	MessageTypePrintTicket MessageType = "print_ticket"
	MessageTypePrintLabel  MessageType = "print_label"
	MessageTypeTicket      MessageType = "ticket"
	MessageTypePrinted     MessageType = "printed"
	MessageTypePrintFailed MessageType = "print_failed"
	MessageTypeError       MessageType = "error"
)

// --- WebSocket Messages ---

type WSMessage struct {
	Type       MessageType   `json:"type"`
	AgentKey   string        `json:"agent_key,omitempty"`
	RequestID  string        `json:"request_id,omitempty"`
	CardID     CardID        `json:"card_id,omitempty"`
	TicketID   int64         `json:"ticket_id,omitempty"`
	CustomerID int64         `json:"customer_id,omitempty"`
	Weight     float64       `json:"weight,omitempty"`
	Ticket     *WeightTicket `json:"ticket,omitempty"`
	JobID      string        `json:"job_id,omitempty"`
	Error      string        `json:"error,omitempty"`
}
