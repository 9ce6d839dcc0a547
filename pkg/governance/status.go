package governance

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// TaskStatus is one named stage in the task lifecycle. Order defines the
// nominal forward progression used for default-transition inference; a
// status with IsFinal set has no outgoing transitions.
type TaskStatus struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Order       int       `json:"order"`
	IsFinal     bool      `json:"is_final"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// StatusStore is the record-store surface the catalog needs. Implementations
// must return ErrNotFound / ErrConflict for missing rows and duplicate names.
type StatusStore interface {
	ListStatuses(ctx context.Context) ([]TaskStatus, error)
	GetStatus(ctx context.Context, name string) (*TaskStatus, error)
	CreateStatus(ctx context.Context, st TaskStatus) (string, error)
	DeleteStatus(ctx context.Context, name string) error
}

// Catalog exposes the ordered set of valid task statuses. Reads go through
// to the store on every call; the store layer owns any caching.
type Catalog struct {
	store StatusStore

	// InUse, when set, lets the owning service veto deletion of a status
	// still referenced by a live task. Edge references are checked by the
	// store itself.
	InUse func(ctx context.Context, name string) (bool, error)
}

// NewCatalog wraps a status store.
func NewCatalog(store StatusStore) *Catalog {
	return &Catalog{store: store}
}

// Get returns the status with the given name, or ErrNotFound.
func (c *Catalog) Get(ctx context.Context, name string) (*TaskStatus, error) {
	st, err := c.store.GetStatus(ctx, strings.TrimSpace(name))
	if err != nil {
		return nil, storeErr("get status", err)
	}
	return st, nil
}

// IsTerminal reports whether the named status is final. Unknown statuses
// return ErrNotFound.
func (c *Catalog) IsTerminal(ctx context.Context, name string) (bool, error) {
	st, err := c.Get(ctx, name)
	if err != nil {
		return false, err
	}
	return st.IsFinal, nil
}

// All returns every status ordered by Order, ties broken by Name ascending
// so iteration is deterministic regardless of store row order.
func (c *Catalog) All(ctx context.Context) ([]TaskStatus, error) {
	statuses, err := c.store.ListStatuses(ctx)
	if err != nil {
		return nil, storeErr("list statuses", err)
	}
	sort.Slice(statuses, func(i, j int) bool {
		if statuses[i].Order != statuses[j].Order {
			return statuses[i].Order < statuses[j].Order
		}
		return statuses[i].Name < statuses[j].Name
	})
	return statuses, nil
}

// Create registers a new status. The name must be non-empty and unique.
func (c *Catalog) Create(ctx context.Context, st TaskStatus) (string, error) {
	st.Name = strings.TrimSpace(st.Name)
	if st.Name == "" {
		return "", fmt.Errorf("status name must be non-empty: %w", ErrValidation)
	}
	id, err := c.store.CreateStatus(ctx, st)
	if err != nil {
		return "", storeErr("create status", err)
	}
	return id, nil
}

// Delete removes a status. It fails with ErrConflict while the status is
// referenced by a transition edge or, when the InUse hook is set, by a task.
func (c *Catalog) Delete(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if c.InUse != nil {
		used, err := c.InUse(ctx, name)
		if err != nil {
			return storeErr("check status in use", err)
		}
		if used {
			return fmt.Errorf("status %q is referenced by a task: %w", name, ErrConflict)
		}
	}
	if err := c.store.DeleteStatus(ctx, name); err != nil {
		return storeErr("delete status", err)
	}
	return nil
}

// nextForward returns the default-forward target for from: the first status
// in catalog order whose Order is strictly greater than from's. Returns nil
// when from is the last status.
func nextForward(all []TaskStatus, from TaskStatus) *TaskStatus {
	for i := range all {
		if all[i].Order > from.Order {
			return &all[i]
		}
	}
	return nil
}
