package governance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// StatusTransition is an explicitly allowed edge in the status graph.
type StatusTransition struct {
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	CreatedAt  time.Time `json:"created_at"`
}

// TransitionStore is the record-store surface the registry needs.
// CreateTransition must enforce uniqueness on (from, to) and return
// ErrConflict on duplicates; DeleteTransition returns ErrNotFound when the
// edge is absent.
type TransitionStore interface {
	ListTransitions(ctx context.Context) ([]StatusTransition, error)
	HasTransition(ctx context.Context, from, to string) (bool, error)
	CreateTransition(ctx context.Context, from, to string) error
	DeleteTransition(ctx context.Context, from, to string) error
}

// RejectReason classifies why a requested transition was refused.
type RejectReason string

const (
	RejectUnknownStatus           RejectReason = "UNKNOWN_STATUS"
	RejectTerminalStatusImmutable RejectReason = "TERMINAL_STATUS_IMMUTABLE"
	RejectTransitionNotAllowed    RejectReason = "TRANSITION_NOT_ALLOWED"
)

// Decision is the outcome of ValidateTransition. Reason is empty when the
// transition is allowed.
type Decision struct {
	Allowed bool         `json:"allowed"`
	Reason  RejectReason `json:"reason,omitempty"`
}

// Registry validates proposed status transitions against the explicit edge
// set and the default-forward rule.
type Registry struct {
	catalog *Catalog
	edges   TransitionStore
	metrics *Metrics
}

// NewRegistry creates a transition registry. metrics may be nil.
func NewRegistry(catalog *Catalog, edges TransitionStore, metrics *Metrics) *Registry {
	return &Registry{catalog: catalog, edges: edges, metrics: metrics}
}

// IsAllowed reports whether from -> to is a legal transition: an explicit
// edge exists, or to is the default-forward target of a non-terminal from,
// or from == to (no-op transitions are always legal and never persisted).
// Unknown statuses are simply not allowed; only store failures error.
func (r *Registry) IsAllowed(ctx context.Context, from, to string) (bool, error) {
	from = strings.TrimSpace(from)
	to = strings.TrimSpace(to)
	if from == to {
		return true, nil
	}

	all, err := r.catalog.All(ctx)
	if err != nil {
		return false, err
	}
	fromSt := findStatus(all, from)
	toSt := findStatus(all, to)
	if fromSt == nil || toSt == nil {
		return false, nil
	}
	if fromSt.IsFinal {
		return false, nil
	}

	ok, err := r.edges.HasTransition(ctx, from, to)
	if err != nil {
		return false, storeErr("lookup transition", err)
	}
	if ok {
		return true, nil
	}

	// Default-forward rule: simple linear workflows stay usable without
	// declaring every edge.
	next := nextForward(all, *fromSt)
	return next != nil && next.Name == toSt.Name, nil
}

// AddEdge declares an explicit edge. The source must not be terminal, the
// edge must not be a self-loop, and both statuses must exist.
func (r *Registry) AddEdge(ctx context.Context, from, to string) error {
	from = strings.TrimSpace(from)
	to = strings.TrimSpace(to)
	if from == to {
		return &InvalidTransitionError{From: from, To: to, Detail: "self-loop"}
	}
	fromSt, err := r.catalog.Get(ctx, from)
	if err != nil {
		if isNotFound(err) {
			return &InvalidTransitionError{From: from, To: to, Detail: fmt.Sprintf("unknown status %q", from)}
		}
		return err
	}
	if _, err := r.catalog.Get(ctx, to); err != nil {
		if isNotFound(err) {
			return &InvalidTransitionError{From: from, To: to, Detail: fmt.Sprintf("unknown status %q", to)}
		}
		return err
	}
	if fromSt.IsFinal {
		return &InvalidTransitionError{From: from, To: to, Detail: "source status is terminal"}
	}
	if err := r.edges.CreateTransition(ctx, from, to); err != nil {
		return storeErr("create transition", err)
	}
	return nil
}

// RemoveEdge deletes an explicit edge; the default-forward verdict takes
// over afterwards. Returns ErrNotFound when the edge was never declared.
func (r *Registry) RemoveEdge(ctx context.Context, from, to string) error {
	if err := r.edges.DeleteTransition(ctx, strings.TrimSpace(from), strings.TrimSpace(to)); err != nil {
		return storeErr("delete transition", err)
	}
	return nil
}

// Edges returns all explicit edges, for inspection tooling.
func (r *Registry) Edges(ctx context.Context) ([]StatusTransition, error) {
	edges, err := r.edges.ListTransitions(ctx)
	if err != nil {
		return nil, storeErr("list transitions", err)
	}
	return edges, nil
}

// ValidateTransition is the primary entry point used before persisting a
// task's status change. No-op transitions are always allowed, even for
// terminal or unknown statuses.
func (r *Registry) ValidateTransition(ctx context.Context, current, requested string) (Decision, error) {
	current = strings.TrimSpace(current)
	requested = strings.TrimSpace(requested)
	r.metrics.addTransitionCheck(ctx)

	if current == requested {
		return Decision{Allowed: true}, nil
	}

	all, err := r.catalog.All(ctx)
	if err != nil {
		return Decision{}, err
	}
	currentSt := findStatus(all, current)
	requestedSt := findStatus(all, requested)
	if currentSt == nil || requestedSt == nil {
		r.metrics.addTransitionReject(ctx, RejectUnknownStatus)
		return Decision{Reason: RejectUnknownStatus}, nil
	}
	if currentSt.IsFinal {
		r.metrics.addTransitionReject(ctx, RejectTerminalStatusImmutable)
		return Decision{Reason: RejectTerminalStatusImmutable}, nil
	}

	ok, err := r.edges.HasTransition(ctx, current, requested)
	if err != nil {
		return Decision{}, storeErr("lookup transition", err)
	}
	if !ok {
		next := nextForward(all, *currentSt)
		ok = next != nil && next.Name == requestedSt.Name
	}
	if !ok {
		r.metrics.addTransitionReject(ctx, RejectTransitionNotAllowed)
		return Decision{Reason: RejectTransitionNotAllowed}, nil
	}
	return Decision{Allowed: true}, nil
}

func findStatus(all []TaskStatus, name string) *TaskStatus {
	for i := range all {
		if all[i].Name == name {
			return &all[i]
		}
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
