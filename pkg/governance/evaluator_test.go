package governance_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/basket/go-warden/pkg/governance"
)

func codingAgentRules() *fakeStore {
	return &fakeStore{
		requirements: []governance.VerificationRequirement{
			{
				ID: "vr-1", AgentRole: "coding_agent",
				Requirement: "all tests pass",
				Predicate:   governance.Predicate{Field: "tests_passed", Op: governance.OpEq, Value: "true"},
				IsMandatory: true, IsActive: true,
			},
			{
				ID: "vr-2", AgentRole: "coding_agent",
				Requirement: "coverage above 80 percent",
				Predicate:   governance.Predicate{Field: "coverage", Op: governance.OpGt, Value: "80"},
				IsMandatory: false, IsActive: true,
			},
			{
				ID: "vr-3", AgentRole: "coding_agent",
				Requirement: "changelog entry written",
				IsMandatory: true, IsActive: true, // text-only, never evaluated
			},
			{
				ID: "vr-4", AgentRole: "coding_agent",
				Requirement: "design doc approved",
				Predicate:   governance.Predicate{Field: "design_approved", Op: governance.OpEq, Value: "true"},
				IsMandatory: true, IsActive: false, // inactive, must be ignored
			},
		},
		criteria: []governance.HandoffCriteria{
			{
				ID: "hc-1", AgentRole: "coding_agent",
				Criteria:        "database schema changed",
				TargetAgentRole: "dba_agent",
				Predicate:       governance.Predicate{Field: "schema_changed", Op: governance.OpEq, Value: "true"},
				IsActive:        true,
			},
			{
				ID: "hc-2", AgentRole: "coding_agent",
				Criteria:        "security-sensitive change",
				TargetAgentRole: "security_agent",
				Predicate:       governance.Predicate{Field: "touches_auth", Op: governance.OpEq, Value: "true"},
				IsActive:        true,
			},
		},
	}
}

func TestEvaluateCompletionAllSatisfied(t *testing.T) {
	ev := governance.NewEvaluator(codingAgentRules(), nil)

	res, err := ev.EvaluateCompletion(context.Background(), "coding_agent", governance.TaskData{
		"tests_passed": true,
		"coverage":     91.2,
	})
	if err != nil {
		t.Fatalf("EvaluateCompletion() error = %v", err)
	}
	if !res.CanComplete {
		t.Fatalf("CanComplete = false, violations = %+v", res.Violations)
	}
	if len(res.Violations) != 0 {
		t.Fatalf("Violations = %+v, want none", res.Violations)
	}
	if len(res.RecommendedHandoffs) != 0 {
		t.Fatalf("RecommendedHandoffs = %+v, want none", res.RecommendedHandoffs)
	}
}

func TestEvaluateCompletionMandatoryFailureBlocks(t *testing.T) {
	ev := governance.NewEvaluator(codingAgentRules(), nil)

	res, err := ev.EvaluateCompletion(context.Background(), "coding_agent", governance.TaskData{
		"tests_passed": false,
		"coverage":     91.2,
	})
	if err != nil {
		t.Fatalf("EvaluateCompletion() error = %v", err)
	}
	if res.CanComplete {
		t.Fatal("CanComplete = true despite mandatory failure")
	}
	if len(res.Violations) != 1 {
		t.Fatalf("Violations = %+v, want exactly one", res.Violations)
	}
	if v := res.Violations[0]; v.RequirementID != "vr-1" || !v.Mandatory {
		t.Fatalf("Violations[0] = %+v, want mandatory vr-1", v)
	}
}

func TestEvaluateCompletionAdvisoryFailureDoesNotBlock(t *testing.T) {
	ev := governance.NewEvaluator(codingAgentRules(), nil)

	res, err := ev.EvaluateCompletion(context.Background(), "coding_agent", governance.TaskData{
		"tests_passed": true,
		"coverage":     64.0,
	})
	if err != nil {
		t.Fatalf("EvaluateCompletion() error = %v", err)
	}
	if !res.CanComplete {
		t.Fatal("CanComplete = false on advisory-only failure")
	}
	if len(res.Violations) != 1 {
		t.Fatalf("Violations = %+v, want exactly one", res.Violations)
	}
	if v := res.Violations[0]; v.RequirementID != "vr-2" || v.Mandatory {
		t.Fatalf("Violations[0] = %+v, want advisory vr-2", v)
	}
}

func TestEvaluateCompletionHandoffRecommendations(t *testing.T) {
	ev := governance.NewEvaluator(codingAgentRules(), nil)

	res, err := ev.EvaluateCompletion(context.Background(), "coding_agent", governance.TaskData{
		"tests_passed":   true,
		"coverage":       88.0,
		"schema_changed": true,
		"touches_auth":   true,
	})
	if err != nil {
		t.Fatalf("EvaluateCompletion() error = %v", err)
	}
	if !res.CanComplete {
		t.Fatal("CanComplete = false, want true")
	}
	if len(res.RecommendedHandoffs) != 2 {
		t.Fatalf("RecommendedHandoffs = %+v, want two in insertion order", res.RecommendedHandoffs)
	}
	if res.RecommendedHandoffs[0].TargetAgentRole != "dba_agent" {
		t.Fatalf("RecommendedHandoffs[0].TargetAgentRole = %q, want dba_agent", res.RecommendedHandoffs[0].TargetAgentRole)
	}
	if res.RecommendedHandoffs[1].TargetAgentRole != "security_agent" {
		t.Fatalf("RecommendedHandoffs[1].TargetAgentRole = %q, want security_agent", res.RecommendedHandoffs[1].TargetAgentRole)
	}
}

func TestEvaluateCompletionNoRulesIsPermissive(t *testing.T) {
	ev := governance.NewEvaluator(&fakeStore{}, nil)

	res, err := ev.EvaluateCompletion(context.Background(), "unconfigured_role", governance.TaskData{})
	if err != nil {
		t.Fatalf("EvaluateCompletion() error = %v", err)
	}
	if !res.CanComplete || len(res.Violations) != 0 || len(res.RecommendedHandoffs) != 0 {
		t.Fatalf("unexpected result for role with no rules: %+v", res)
	}
}

func TestEvaluateCompletionIsIdempotent(t *testing.T) {
	ev := governance.NewEvaluator(codingAgentRules(), nil)
	data := governance.TaskData{"tests_passed": false}

	first, err := ev.EvaluateCompletion(context.Background(), "coding_agent", data)
	if err != nil {
		t.Fatalf("EvaluateCompletion() error = %v", err)
	}
	second, err := ev.EvaluateCompletion(context.Background(), "coding_agent", data)
	if err != nil {
		t.Fatalf("EvaluateCompletion() error = %v", err)
	}
	if first.CanComplete != second.CanComplete || len(first.Violations) != len(second.Violations) {
		t.Fatalf("repeated evaluation diverged: first %+v, second %+v", first, second)
	}
}

func TestResolveProtocolPriorityAndTieBreak(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	store := &fakeStore{
		protocols: []governance.ErrorProtocol{
			{ID: "ep-1", AgentRole: "coding_agent", ErrorType: "test_failure",
				Protocol: "rerun the suite once", Priority: 20, IsActive: true, CreatedAt: base},
			{ID: "ep-2", AgentRole: "coding_agent", ErrorType: "test_failure",
				Protocol: "bisect the failing commit", Priority: 10, IsActive: true, CreatedAt: base.Add(time.Second)},
			{ID: "ep-3", AgentRole: "coding_agent", ErrorType: "test_failure",
				Protocol: "check for flaky markers first", Priority: 10, IsActive: true, CreatedAt: base.Add(2 * time.Second)},
			{ID: "ep-4", AgentRole: "coding_agent", ErrorType: "test_failure",
				Protocol: "disabled procedure", Priority: 1, IsActive: false, CreatedAt: base},
			{ID: "ep-5", AgentRole: "coding_agent", ErrorType: "build_failure",
				Protocol: "clear the module cache", Priority: 5, IsActive: true, CreatedAt: base},
		},
	}
	ev := governance.NewEvaluator(store, nil)
	ctx := context.Background()

	// Lowest priority wins; within the tie at 10 the newest row wins.
	got, err := ev.ResolveProtocol(ctx, "coding_agent", "test_failure")
	if err != nil {
		t.Fatalf("ResolveProtocol() error = %v", err)
	}
	if got.ID != "ep-3" {
		t.Fatalf("ResolveProtocol() = %s (%q), want ep-3", got.ID, got.Protocol)
	}

	got, err = ev.ResolveProtocol(ctx, "coding_agent", "build_failure")
	if err != nil {
		t.Fatalf("ResolveProtocol() error = %v", err)
	}
	if got.ID != "ep-5" {
		t.Fatalf("ResolveProtocol() = %s, want ep-5", got.ID)
	}
}

func TestResolveProtocolMiss(t *testing.T) {
	ev := governance.NewEvaluator(&fakeStore{}, nil)
	if _, err := ev.ResolveProtocol(context.Background(), "coding_agent", "network_failure"); !errors.Is(err, governance.ErrNotFound) {
		t.Fatalf("ResolveProtocol(miss) error = %v, want ErrNotFound", err)
	}
}

func TestResolveProtocolNoWildcardFallback(t *testing.T) {
	store := &fakeStore{
		protocols: []governance.ErrorProtocol{
			{ID: "ep-1", AgentRole: "coding_agent", ErrorType: "*",
				Protocol: "catch-all", Priority: 1, IsActive: true},
		},
	}
	ev := governance.NewEvaluator(store, nil)
	if _, err := ev.ResolveProtocol(context.Background(), "coding_agent", "test_failure"); !errors.Is(err, governance.ErrNotFound) {
		t.Fatalf("ResolveProtocol() error = %v, want ErrNotFound (exact match only)", err)
	}
}
