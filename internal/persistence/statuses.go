package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/basket/go-warden/pkg/governance"
	"github.com/google/uuid"
)

// ListStatuses returns every task status. Ordering is delegated to the
// governance catalog, which sorts by (order, name).
func (s *Store) ListStatuses(ctx context.Context) ([]governance.TaskStatus, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, sort_order, is_final, created_at, updated_at
		FROM task_statuses;
	`)
	if err != nil {
		return nil, fmt.Errorf("list statuses: %w", err)
	}
	defer rows.Close()

	var out []governance.TaskStatus
	for rows.Next() {
		st, err := scanStatus(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("status rows: %w", err)
	}
	return out, nil
}

// GetStatus returns the status with the given name or governance.ErrNotFound.
func (s *Store) GetStatus(ctx context.Context, name string) (*governance.TaskStatus, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, sort_order, is_final, created_at, updated_at
		FROM task_statuses
		WHERE name = ?;
	`, name)
	st, err := scanStatus(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("status %q: %w", name, governance.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// CreateStatus inserts a status row. Duplicate names map to ErrConflict via
// the unique constraint, so concurrent creators race safely.
func (s *Store) CreateStatus(ctx context.Context, st governance.TaskStatus) (string, error) {
	id := st.ID
	if id == "" {
		id = uuid.NewString()
	}
	now := time.Now().UTC()
	err := retryOnBusy(ctx, 5, func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO task_statuses (id, name, description, sort_order, is_final, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?);
		`, id, st.Name, st.Description, st.Order, st.IsFinal, now, now)
		return err
	})
	if isUniqueViolation(err) {
		return "", fmt.Errorf("status %q already exists: %w", st.Name, governance.ErrConflict)
	}
	if err != nil {
		return "", fmt.Errorf("create status: %w", err)
	}
	return id, nil
}

// DeleteStatus removes a status row. It refuses with ErrConflict while the
// status is referenced by a transition edge.
func (s *Store) DeleteStatus(ctx context.Context, name string) error {
	return retryOnBusy(ctx, 5, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin delete status tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		var refs int
		if err := tx.QueryRowContext(ctx, `
			SELECT COUNT(1) FROM status_transitions WHERE from_status = ? OR to_status = ?;
		`, name, name).Scan(&refs); err != nil {
			return fmt.Errorf("count status references: %w", err)
		}
		if refs > 0 {
			return fmt.Errorf("status %q is referenced by %d transition(s): %w", name, refs, governance.ErrConflict)
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM task_statuses WHERE name = ?;`, name)
		if err != nil {
			return fmt.Errorf("delete status: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete status rows affected: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("status %q: %w", name, governance.ErrNotFound)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit delete status tx: %w", err)
		}
		return nil
	})
}

// ListTransitions returns all explicit edges in creation order.
func (s *Store) ListTransitions(ctx context.Context) ([]governance.StatusTransition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT from_status, to_status, created_at
		FROM status_transitions
		ORDER BY created_at ASC, from_status ASC, to_status ASC;
	`)
	if err != nil {
		return nil, fmt.Errorf("list transitions: %w", err)
	}
	defer rows.Close()

	var out []governance.StatusTransition
	for rows.Next() {
		var tr governance.StatusTransition
		if err := rows.Scan(&tr.FromStatus, &tr.ToStatus, &tr.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		out = append(out, tr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("transition rows: %w", err)
	}
	return out, nil
}

// HasTransition reports whether an explicit edge exists.
func (s *Store) HasTransition(ctx context.Context, from, to string) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM status_transitions WHERE from_status = ? AND to_status = ?;
	`, from, to).Scan(&n); err != nil {
		return false, fmt.Errorf("lookup transition: %w", err)
	}
	return n > 0, nil
}

// CreateTransition inserts an explicit edge. The (from, to) primary key
// makes duplicates an ErrConflict.
func (s *Store) CreateTransition(ctx context.Context, from, to string) error {
	err := retryOnBusy(ctx, 5, func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO status_transitions (from_status, to_status, created_at)
			VALUES (?, ?, ?);
		`, from, to, time.Now().UTC())
		return err
	})
	if isUniqueViolation(err) {
		return fmt.Errorf("transition %q -> %q already exists: %w", from, to, governance.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("create transition: %w", err)
	}
	return nil
}

// DeleteTransition removes an explicit edge, ErrNotFound when absent.
func (s *Store) DeleteTransition(ctx context.Context, from, to string) error {
	return retryOnBusy(ctx, 5, func() error {
		res, err := s.db.ExecContext(ctx, `
			DELETE FROM status_transitions WHERE from_status = ? AND to_status = ?;
		`, from, to)
		if err != nil {
			return fmt.Errorf("delete transition: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete transition rows affected: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("transition %q -> %q: %w", from, to, governance.ErrNotFound)
		}
		return nil
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStatus(row rowScanner) (governance.TaskStatus, error) {
	var st governance.TaskStatus
	if err := row.Scan(&st.ID, &st.Name, &st.Description, &st.Order, &st.IsFinal, &st.CreatedAt, &st.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return governance.TaskStatus{}, err
		}
		return governance.TaskStatus{}, fmt.Errorf("scan status: %w", err)
	}
	return st, nil
}
