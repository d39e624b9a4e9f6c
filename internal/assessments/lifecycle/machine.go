// Package lifecycle owns the assessment state machine: it consumes response
// and payment events, recomputes progress, and decides exactly once when the
// analysis pipeline starts. All mutation goes through the persistence layer's
// conditional updates, so concurrent handlers for the same assessment (even
// in separate processes) cannot double-start the pipeline or skip a state.
package lifecycle

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/pulsecheck-labs/pulsecheck-backend/internal/assessments/catalog"
	"github.com/pulsecheck-labs/pulsecheck-backend/internal/assessments/domain"
	"github.com/pulsecheck-labs/pulsecheck-backend/internal/assessments/progress"
)

// Store is the persistence contract the machine drives.
type Store interface {
	GetAny(ctx context.Context, id uuid.UUID) (*domain.Assessment, error)
	SetProgress(ctx context.Context, id uuid.UUID, answered, progressPct int) error
	Transition(ctx context.Context, id uuid.UUID, from []domain.Status, to domain.Status) (bool, error)
	SetPaymentState(ctx context.Context, id uuid.UUID, state domain.PaymentState) error
	StartAnalysis(ctx context.Context, id uuid.UUID) (bool, error)
	MarkDeliverable(ctx context.Context, id uuid.UUID, d domain.Deliverable) error
	Deliverables(ctx context.Context, id uuid.UUID) (domain.Deliverables, error)
}

// ResponseSource reads the response ledger.
type ResponseSource interface {
	ListByAssessment(ctx context.Context, assessmentID uuid.UUID) ([]domain.Response, error)
}

// ProgressSink receives completion snapshots for fast read paths. Optional.
type ProgressSink interface {
	Set(ctx context.Context, id uuid.UUID, status domain.Status, res progress.Result) error
}

// Machine is the lifecycle controller.
type Machine struct {
	store     Store
	responses ResponseSource
	catalog   *catalog.Catalog
	sink      ProgressSink
}

func NewMachine(store Store, responses ResponseSource, cat *catalog.Catalog, sink ProgressSink) *Machine {
	return &Machine{store: store, responses: responses, catalog: cat, sink: sink}
}

// OnResponsesSaved recomputes progress after a response batch lands and
// advances status: pending -> in_progress on the first answer, and on full
// completion either awaiting_payment or (payment already confirmed) straight
// through the readiness gate into analysis.
func (m *Machine) OnResponsesSaved(ctx context.Context, id uuid.UUID) (progress.Result, error) {
	a, err := m.store.GetAny(ctx, id)
	if err != nil {
		return progress.Result{}, err
	}
	if a.Status.IsTerminal() {
		return progress.Result{}, domain.ErrTerminalStatus
	}

	responses, err := m.responses.ListByAssessment(ctx, id)
	if err != nil {
		return progress.Result{}, fmt.Errorf("list responses: %w", err)
	}

	res := progress.Compute(responses, m.catalog, a.TotalQuestions)
	if err := m.store.SetProgress(ctx, id, res.QuestionsAnswered, res.Progress); err != nil {
		return progress.Result{}, fmt.Errorf("set progress: %w", err)
	}

	if res.QuestionsAnswered > 0 {
		// No-op unless the assessment is still pending.
		if _, err := m.store.Transition(ctx, id, []domain.Status{domain.StatusPending}, domain.StatusInProgress); err != nil {
			return progress.Result{}, fmt.Errorf("transition in_progress: %w", err)
		}
	}

	if res.Progress >= 100 {
		if a.PaymentState != domain.PaymentConfirmed {
			if _, err := m.store.Transition(ctx, id, []domain.Status{domain.StatusInProgress}, domain.StatusAwaitingPayment); err != nil {
				return progress.Result{}, fmt.Errorf("transition awaiting_payment: %w", err)
			}
		}
		if err := m.TryStartAnalysis(ctx, id); err != nil {
			return progress.Result{}, err
		}
	}

	m.publish(ctx, id, res)
	return res, nil
}

// OnPaymentSucceeded records the confirmation and re-checks readiness.
// Duplicate deliveries are absorbed: the second call finds the status already
// past the trigger point and does nothing.
func (m *Machine) OnPaymentSucceeded(ctx context.Context, id uuid.UUID) error {
	a, err := m.store.GetAny(ctx, id)
	if err != nil {
		return err
	}
	if a.Status.AnalysisStarted() {
		log.Printf("[lifecycle] assessment=%s duplicate payment confirmation ignored (status=%s)", id, a.Status)
		return nil
	}

	if err := m.store.SetPaymentState(ctx, id, domain.PaymentConfirmed); err != nil {
		return fmt.Errorf("set payment state: %w", err)
	}

	// Paid before the questionnaire is done: park in paid and wait for the
	// final response. Already complete: the gate fires now.
	if _, err := m.store.Transition(ctx, id, []domain.Status{domain.StatusPending, domain.StatusInProgress}, domain.StatusPaid); err != nil {
		return fmt.Errorf("transition paid: %w", err)
	}
	if err := m.TryStartAnalysis(ctx, id); err != nil {
		return err
	}

	// The confirmation may have moved the status (awaiting_payment -> analysis);
	// a snapshot published before it would keep telling the payer they still
	// owe, so replace it now instead of waiting out the TTL.
	m.refreshSnapshot(ctx, id)
	return nil
}

// OnPaymentFailed only records the payment state for user-visible messaging.
// It never rolls the lifecycle status back.
func (m *Machine) OnPaymentFailed(ctx context.Context, id uuid.UUID) error {
	a, err := m.store.GetAny(ctx, id)
	if err != nil {
		return err
	}
	if a.PaymentState == domain.PaymentConfirmed || a.Status.AnalysisStarted() {
		return nil
	}
	return m.store.SetPaymentState(ctx, id, domain.PaymentFailed)
}

// TryStartAnalysis is the readiness gate. It re-reads persisted state and
// enqueues the pipeline iff the questionnaire is complete, payment is
// confirmed, and no pipeline has started yet. The persisted status is the
// single source of truth for "already started", which makes the gate
// idempotent under duplicate or concurrent trigger events.
func (m *Machine) TryStartAnalysis(ctx context.Context, id uuid.UUID) error {
	a, err := m.store.GetAny(ctx, id)
	if err != nil {
		return err
	}
	if a.Status.AnalysisStarted() {
		return nil
	}
	if a.Progress < 100 || a.PaymentState != domain.PaymentConfirmed {
		return nil
	}

	started, err := m.store.StartAnalysis(ctx, id)
	if err != nil {
		return fmt.Errorf("start analysis: %w", err)
	}
	if started {
		log.Printf("[lifecycle] assessment=%s analysis pipeline enqueued", id)
	}
	return nil
}

// OnDeliverable stamps one deliverable and closes the assessment once all
// three are produced.
func (m *Machine) OnDeliverable(ctx context.Context, id uuid.UUID, d domain.Deliverable) error {
	if err := m.store.MarkDeliverable(ctx, id, d); err != nil {
		return fmt.Errorf("mark %s: %w", d, err)
	}

	dv, err := m.store.Deliverables(ctx, id)
	if err != nil {
		return err
	}
	if !dv.AllReady() {
		return nil
	}

	moved, err := m.store.Transition(ctx, id, []domain.Status{domain.StatusAnalysis}, domain.StatusCompleted)
	if err != nil {
		return fmt.Errorf("transition completed: %w", err)
	}
	if moved {
		log.Printf("[lifecycle] assessment=%s completed", id)
	}
	return nil
}

// MarkFailed records an unrecoverable pipeline error. This is the only path
// into the failed status.
func (m *Machine) MarkFailed(ctx context.Context, id uuid.UUID, cause error) error {
	log.Printf("[lifecycle] assessment=%s pipeline failed: %v", id, cause)
	_, err := m.store.Transition(ctx, id, []domain.Status{domain.StatusAnalysis}, domain.StatusFailed)
	return err
}

func (m *Machine) publish(ctx context.Context, id uuid.UUID, res progress.Result) {
	if m.sink == nil {
		return
	}
	a, err := m.store.GetAny(ctx, id)
	if err != nil {
		log.Printf("[lifecycle] assessment=%s progress snapshot skipped: %v", id, err)
		return
	}
	if err := m.sink.Set(ctx, id, a.Status, res); err != nil {
		log.Printf("[lifecycle] assessment=%s progress snapshot failed: %v", id, err)
	}
}

// refreshSnapshot recomputes and republishes the cached progress view after a
// status change that did not come from a response save.
func (m *Machine) refreshSnapshot(ctx context.Context, id uuid.UUID) {
	if m.sink == nil {
		return
	}
	a, err := m.store.GetAny(ctx, id)
	if err != nil {
		log.Printf("[lifecycle] assessment=%s snapshot refresh skipped: %v", id, err)
		return
	}
	responses, err := m.responses.ListByAssessment(ctx, id)
	if err != nil {
		log.Printf("[lifecycle] assessment=%s snapshot refresh skipped: %v", id, err)
		return
	}
	res := progress.Compute(responses, m.catalog, a.TotalQuestions)
	if err := m.sink.Set(ctx, id, a.Status, res); err != nil {
		log.Printf("[lifecycle] assessment=%s snapshot refresh failed: %v", id, err)
	}
}
