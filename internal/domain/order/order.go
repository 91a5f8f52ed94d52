package order

import (
	"fmt"
	"strings"
	"time"
)

type PendingStatus string

const (
	PendingAwaitingPayment PendingStatus = "awaiting_payment"
	PendingNeedsRetry      PendingStatus = "needs_retry"
)

func (s PendingStatus) IsValid() bool {
	switch s {
	case PendingAwaitingPayment, PendingNeedsRetry:
		return true
	default:
		return false
	}
}

// Step names the pipeline stage a pending order last failed in.
type Step string

const (
	StepNone    Step = ""
	StepSession Step = "session"
	StepUpload  Step = "upload"
	StepOrder   Step = "order"
	StepRecord  Step = "record"
)

// Design holds the customer-facing labels chosen in the wizard.
type Design struct {
	CityName  string
	StateName string
	ThemeName string
}

// ProductLabel is the line shown on the print order and the checkout page.
func (d Design) ProductLabel() string {
	place := strings.TrimSpace(d.CityName)
	if st := strings.TrimSpace(d.StateName); st != "" {
		place = place + ", " + st
	}
	if place == "" {
		place = "Custom Location"
	}
	if theme := strings.TrimSpace(d.ThemeName); theme != "" {
		return fmt.Sprintf("Custom Map Canvas - %s (%s)", place, theme)
	}
	return "Custom Map Canvas - " + place
}

// PendingOrder is a design stashed between checkout and the payment webhook.
type PendingOrder struct {
	SessionID    string
	ImageDataURL string
	Design       Design
	Status       PendingStatus
	FailedStep   Step
	Attempts     int
	LastError    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// MarkFailed records a failed fulfillment attempt. LastError is for operators
// and must not be sent to customers.
func (p *PendingOrder) MarkFailed(step Step, err error, now time.Time) {
	p.Status = PendingNeedsRetry
	p.FailedStep = step
	p.Attempts++
	if err != nil {
		p.LastError = err.Error()
	}
	p.UpdatedAt = now
}

// CompletedOrder is the terminal fulfillment result the confirmation page polls for.
type CompletedOrder struct {
	SessionID          string
	MockupURL          string
	FulfillmentOrderID string
	CreatedAt          time.Time
}

type State string

const (
	StatePending   State = "pending"
	StateCompleted State = "completed"
)

// Status is the client-visible view of a session. Nil pointers mean unknown.
type Status struct {
	State              State
	MockupURL          *string
	FulfillmentOrderID *string
}

type Address struct {
	Name        string
	Line1       string
	Line2       string
	City        string
	State       string
	PostalCode  string
	CountryCode string
	Email       string
	Phone       string
}

func (a *Address) IsComplete() bool {
	if a == nil {
		return false
	}
	return a.Line1 != "" && a.City != "" && a.CountryCode != "" && a.PostalCode != ""
}
