package governance

import (
	"context"
	"fmt"
	"strings"
)

// ResolveProtocol returns the active protocol for an exact error type match:
// lowest Priority wins, ties go to the most recently created protocol. There
// is no wildcard fallback; callers must handle ErrNotFound explicitly, e.g.
// by escalating to a human.
func (e *Evaluator) ResolveProtocol(ctx context.Context, agentRole, errorType string) (*ErrorProtocol, error) {
	agentRole = strings.TrimSpace(agentRole)
	errorType = strings.TrimSpace(errorType)
	e.metrics.addProtocolLookup(ctx, agentRole)

	protocols, err := e.rules.ActiveErrorProtocols(ctx, agentRole)
	if err != nil {
		return nil, storeErr("list error protocols", err)
	}
	// The rule source already orders matches priority-ascending with the
	// newest protocol first within a priority, so the first exact match wins.
	for i := range protocols {
		if protocols[i].ErrorType == errorType {
			return &protocols[i], nil
		}
	}
	e.metrics.addProtocolMiss(ctx, agentRole)
	return nil, fmt.Errorf("no active protocol for role %q error type %q: %w", agentRole, errorType, ErrNotFound)
}
