package domain

// Status is the lifecycle state of an assessment. Transitions are strictly
// forward; Completed and Failed are terminal.
type Status string

const (
	StatusPending         Status = "pending"
	StatusInProgress      Status = "in_progress"
	StatusAwaitingPayment Status = "awaiting_payment"
	StatusPaid            Status = "paid"
	StatusAnalysis        Status = "analysis"
	StatusCompleted       Status = "completed"
	StatusFailed          Status = "failed"
)

// transitions is the single source of truth for legal status changes.
var transitions = map[Status][]Status{
	StatusPending:         {StatusInProgress, StatusPaid},
	StatusInProgress:      {StatusAwaitingPayment, StatusPaid},
	StatusAwaitingPayment: {StatusAnalysis},
	StatusPaid:            {StatusAnalysis},
	StatusAnalysis:        {StatusCompleted, StatusFailed},
	StatusCompleted:       nil,
	StatusFailed:          nil,
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a status admits no further transitions.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// IsValid reports whether s is one of the known statuses.
func (s Status) IsValid() bool {
	_, ok := transitions[s]
	return ok
}

// AnalysisStarted reports whether the pipeline has already been enqueued for
// an assessment in this status. Used by the readiness gate to absorb
// duplicate trigger events.
func (s Status) AnalysisStarted() bool {
	return s == StatusAnalysis || s == StatusCompleted || s == StatusFailed
}

// PaymentState tracks the payment side independently of the lifecycle status.
type PaymentState string

const (
	PaymentNone      PaymentState = "none"
	PaymentConfirmed PaymentState = "confirmed"
	PaymentFailed    PaymentState = "failed"
)
