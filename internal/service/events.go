package service

import (
	"encoding/json"

	ws "copraledger/internal/websocket"
)

// Websocket payload pushed to connected dashboards after ledger mutations commit.
type LedgerEvent struct {
	Event string                 `json:"event"`
	Data  map[string]interface{} `json:"data"`
}

const (
	EventTransactionCompleted = "transaction.completed"
	EventTransactionCancelled = "transaction.cancelled"
	EventTransactionVoided    = "transaction.voided"
	EventLoanApproved         = "loan.approved"
	EventLoanPaid             = "loan.paid"
	EventLoanPaymentRecorded  = "loan.payment_recorded"
)

// broadcastEvent pushes an event to the hub; a nil hub (tests) is a no-op.
func broadcastEvent(hub *ws.Hub, event string, data map[string]interface{}) {
	if hub == nil {
		return
	}
	payload, err := json.Marshal(LedgerEvent{Event: event, Data: data})
	if err != nil {
		return
	}
	hub.Broadcast <- payload
}
