// Package config loads the declarative workflow definition: task statuses,
// explicit transition edges, and per-role rule families. The file is
// validated against an embedded JSON Schema before any of it is applied.
package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/basket/go-warden/pkg/governance"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

//go:embed workflow.schema.json
var workflowSchemaJSON []byte

// StatusEntry defines one task status to seed.
type StatusEntry struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Order       int    `yaml:"order"`
	Final       bool   `yaml:"final"`
}

// TransitionEntry defines one explicit edge to seed.
type TransitionEntry struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// VerificationEntry defines one verification requirement for a role.
type VerificationEntry struct {
	Requirement string               `yaml:"requirement"`
	Description string               `yaml:"description"`
	Mandatory   bool                 `yaml:"mandatory"`
	Predicate   governance.Predicate `yaml:"predicate"`
}

// HandoffEntry defines one handoff criterion for a role.
type HandoffEntry struct {
	Criteria    string               `yaml:"criteria"`
	Description string               `yaml:"description"`
	Target      string               `yaml:"target"`
	Predicate   governance.Predicate `yaml:"predicate"`
}

// ProtocolEntry defines one error protocol for a role.
type ProtocolEntry struct {
	ErrorType string `yaml:"error_type"`
	Protocol  string `yaml:"protocol"`
	Priority  int    `yaml:"priority"`
}

// RoleEntry groups the three rule families for one agent role.
type RoleEntry struct {
	Role         string              `yaml:"role"`
	Verification []VerificationEntry `yaml:"verification"`
	Handoffs     []HandoffEntry      `yaml:"handoffs"`
	Protocols    []ProtocolEntry     `yaml:"protocols"`
}

// Workflow is the root of the workflow definition file.
type Workflow struct {
	Statuses    []StatusEntry     `yaml:"statuses"`
	Transitions []TransitionEntry `yaml:"transitions"`
	Roles       []RoleEntry       `yaml:"roles"`
}

// DefaultPath returns ~/.warden/workflow.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}
	return filepath.Join(home, ".warden", "workflow.yaml")
}

// Load reads, schema-validates, and decodes a workflow file.
func Load(path string) (*Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workflow: %w", err)
	}

	if err := validateSchema(data); err != nil {
		return nil, err
	}

	var wf Workflow
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&wf); err != nil {
		return nil, fmt.Errorf("parse workflow: %w", err)
	}
	return &wf, nil
}

// validateSchema checks the raw YAML against the embedded JSON Schema. The
// document round-trips through JSON so the validator sees canonical types.
func validateSchema(data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse workflow: %w", err)
	}
	jsonDoc, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("canonicalize workflow: %w", err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(jsonDoc))
	if err != nil {
		return fmt.Errorf("canonicalize workflow: %w", err)
	}

	schemaDoc, err := jsonschema.UnmarshalJSON(bytes.NewReader(workflowSchemaJSON))
	if err != nil {
		return fmt.Errorf("unmarshal workflow schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("workflow.schema.json", schemaDoc); err != nil {
		return fmt.Errorf("add workflow schema: %w", err)
	}
	schema, err := c.Compile("workflow.schema.json")
	if err != nil {
		return fmt.Errorf("compile workflow schema: %w", err)
	}
	if err := schema.Validate(inst); err != nil {
		return fmt.Errorf("workflow does not match schema: %w: %w", governance.ErrValidation, err)
	}
	return nil
}
