// Package models defines the checkout state machine, its results and the
// order event emitted once an order is durable.
package models

import (
	"encoding/base64"
	"time"

	"github.com/shopspring/decimal"

	"storefront/internal/money"
	"storefront/internal/receipt"
	id "storefront/pkg/domain"
	dErrors "storefront/pkg/domain-errors"
)

// State is the phase of one cart's checkout.
type State string

const (
	StateIdle       State = "idle"
	StateSubmitting State = "submitting"
	StateRendering  State = "rendering"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

// IsBusy reports whether a checkout is in flight.
func (s State) IsBusy() bool {
	return s == StateSubmitting || s == StateRendering
}

// Status is the observable checkout session of a cart.
//
// Invariants:
//   - OrderID is set once the order write succeeded and is kept through
//     Rendering, Completed and a Failed render
//   - ErrorCode is set only in StateFailed
type Status struct {
	State     State
	OrderID   id.OrderID
	ErrorCode dErrors.Code
}

// Idle is the status of a cart that never checked out.
func Idle() Status {
	return Status{State: StateIdle}
}

// AwaitingReceipt reports whether the order exists but its receipt failed.
func (s Status) AwaitingReceipt() bool {
	return s.State == StateFailed && s.ErrorCode == dErrors.CodeReceiptRender
}

// Result is the outcome of a completed checkout.
type Result struct {
	OrderID id.OrderID
	Total   decimal.Decimal
	Receipt *receipt.Document
}

// StatusResponse is the JSON form of Status.
type StatusResponse struct {
	State     string `json:"state"`
	OrderID   string `json:"order_id,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`
}

// ToResponse renders the status for clients.
func (s Status) ToResponse() StatusResponse {
	resp := StatusResponse{State: string(s.State), ErrorCode: string(s.ErrorCode)}
	if !s.OrderID.IsNil() {
		resp.OrderID = s.OrderID.String()
	}
	return resp
}

// ReceiptResponse carries a rendered document inline.
type ReceiptResponse struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Data        string `json:"data"`
}

// ResultResponse is the JSON form of Result.
type ResultResponse struct {
	OrderID string           `json:"order_id"`
	Total   string           `json:"total"`
	Receipt *ReceiptResponse `json:"receipt,omitempty"`
}

// ToResponse renders the result with the receipt base64 encoded.
func (r *Result) ToResponse() ResultResponse {
	resp := ResultResponse{
		OrderID: r.OrderID.String(),
		Total:   money.Format(r.Total),
	}
	if r.Receipt != nil {
		resp.Receipt = &ReceiptResponse{
			Filename:    r.Receipt.Filename,
			ContentType: r.Receipt.ContentType,
			Data:        base64.StdEncoding.EncodeToString(r.Receipt.Data),
		}
	}
	return resp
}

// OrderPlaced is published after an order write succeeds.
type OrderPlaced struct {
	OrderID   string    `json:"order_id"`
	OwnerID   string    `json:"owner_id"`
	Total     string    `json:"total"`
	LineCount int       `json:"line_count"`
	PlacedAt  time.Time `json:"placed_at"`
}
