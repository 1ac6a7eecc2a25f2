package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/edb/internal/engine"
	"github.com/roach88/edb/internal/record"
)

// Scenario defines one conformance scenario: commits applied in order,
// then assertions on the final store.
type Scenario struct {
	// Name uniquely identifies this scenario. Also the golden file name.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Schema is an optional path to CUE constraints (file or directory),
	// relative to the scenario file.
	Schema string `yaml:"schema,omitempty"`

	// StartTime is the timestamp of the first commit. Default 1000.
	StartTime int64 `yaml:"start_time,omitempty"`

	// TimeStep is the increment between commit timestamps. Default 10.
	TimeStep int64 `yaml:"time_step,omitempty"`

	// Steps are executed in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final state.
	Assertions []Assertion `yaml:"assertions"`
}

// Step submits one commit.
type Step struct {
	Commit CommitSpec `yaml:"commit"`

	// ExpectError is the engine.ErrorCode the commit must fail with.
	// Empty means the commit must succeed.
	ExpectError string `yaml:"expect_error,omitempty"`

	// Resubmit sends the previous step's commit object again (with its
	// assigned revision) instead of Commit.
	Resubmit bool `yaml:"resubmit,omitempty"`
}

// CommitSpec is the YAML form of a record.Commit.
type CommitSpec struct {
	Committer   string      `yaml:"committer,omitempty"`
	Role        string      `yaml:"role,omitempty"`
	DomainID    string      `yaml:"domain_id,omitempty"`
	ConnectorID string      `yaml:"connector_id,omitempty"`
	InstanceID  string      `yaml:"instance_id,omitempty"`
	ContextID   string      `yaml:"context_id,omitempty"`
	Comment     string      `yaml:"comment,omitempty"`
	Insert      []EntrySpec `yaml:"insert,omitempty"`
	Update      []EntrySpec `yaml:"update,omitempty"`
	Delete      []string    `yaml:"delete,omitempty"`
}

// EntrySpec is the YAML form of a record.Entry. Version is the prior-known
// version for updates and ignored for inserts.
type EntrySpec struct {
	ID         string         `yaml:"id"`
	Version    int64          `yaml:"version,omitempty"`
	Attributes map[string]any `yaml:"attributes,omitempty"`
}

// Build converts the spec into a commit.
func (c CommitSpec) Build() (*record.Commit, error) {
	out := &record.Commit{
		Committer:   c.Committer,
		Role:        c.Role,
		DomainID:    c.DomainID,
		ConnectorID: c.ConnectorID,
		InstanceID:  c.InstanceID,
		ContextID:   c.ContextID,
		Comment:     c.Comment,
		Deletions:   slices.Clone(c.Delete),
	}
	for _, e := range c.Insert {
		entry, err := e.build()
		if err != nil {
			return nil, err
		}
		entry.Version = 0
		out.Inserts = append(out.Inserts, entry)
	}
	for _, e := range c.Update {
		entry, err := e.build()
		if err != nil {
			return nil, err
		}
		out.Updates = append(out.Updates, entry)
	}
	return out, nil
}

func (e EntrySpec) build() (record.Entry, error) {
	attrs, err := record.AttributesFromGo(e.Attributes)
	if err != nil {
		return record.Entry{}, fmt.Errorf("entry %s: %w", e.ID, err)
	}
	return record.Entry{ID: e.ID, Version: e.Version, Attributes: attrs}, nil
}

// Assertion validates the final state. Which fields apply depends on Type.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	ID string `yaml:"id,omitempty"`

	// At is a point-in-time for object and query. Nil means now.
	At *int64 `yaml:"at,omitempty"`

	// object
	Version    *int64         `yaml:"version,omitempty"`
	Deleted    *bool          `yaml:"deleted,omitempty"`
	Missing    bool           `yaml:"missing,omitempty"`
	Attributes map[string]any `yaml:"attributes,omitempty"`

	// history, log, diff, commits_by_tag
	Count *int `yaml:"count,omitempty"`

	// history: positions (0-based) expected to be tombstones
	Tombstones []int `yaml:"tombstones,omitempty"`

	// log, diff
	From int64 `yaml:"from,omitempty"`
	To   int64 `yaml:"to,omitempty"`

	// diff: changed keys, sorted
	Keys []string `yaml:"keys,omitempty"`

	// query
	Query string `yaml:"query,omitempty"`

	// query, resurrected
	IDs []string `yaml:"ids,omitempty"`

	// commits_by_tag
	Tag   string `yaml:"tag,omitempty"`
	Value string `yaml:"value,omitempty"`

	// revision: the step (0-based) whose commit must be current
	Step *int `yaml:"step,omitempty"`
}

// Assertion type constants.
const (
	AssertObject       = "object"
	AssertHistory      = "history"
	AssertLog          = "log"
	AssertQuery        = "query"
	AssertDiff         = "diff"
	AssertCommitsByTag = "commits_by_tag"
	AssertResurrected  = "resurrected"
	AssertRevision     = "revision"
	AssertVerify       = "verify"
)

var errorCodes = []engine.ErrorCode{
	engine.ErrCodeNotFound,
	engine.ErrCodeVersionConflict,
	engine.ErrCodeDuplicateID,
	engine.ErrCodeAlreadyApplied,
	engine.ErrCodeValidation,
	engine.ErrCodeParse,
	engine.ErrCodeInternal,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// A relative schema path is resolved against the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.Schema != "" && !filepath.IsAbs(scenario.Schema) {
		scenario.Schema = filepath.Join(filepath.Dir(path), scenario.Schema)
	}
	if scenario.Schema != "" {
		if _, err := os.Stat(scenario.Schema); err != nil {
			return nil, fmt.Errorf("invalid scenario: schema not found: %s", scenario.Schema)
		}
	}
	return scenario, nil
}

// ParseScenario parses scenario YAML. Schema paths are left as written.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadScenarios loads every *.yaml and *.yml file in dir, sorted by
// file name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario directory: %w", err)
	}

	var scenarios []*Scenario
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !(strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")) {
			continue
		}
		s, err := LoadScenario(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	if s.TimeStep < 0 {
		return fmt.Errorf("time_step must be positive")
	}

	for i, step := range s.Steps {
		if step.ExpectError != "" && !slices.Contains(errorCodes, engine.ErrorCode(step.ExpectError)) {
			return fmt.Errorf("steps[%d]: unknown error code %q", i, step.ExpectError)
		}
		if step.Resubmit && i == 0 {
			return fmt.Errorf("steps[0]: resubmit needs a previous step")
		}
		for j, e := range step.Commit.Insert {
			if e.ID == "" {
				return fmt.Errorf("steps[%d].insert[%d]: id is required", i, j)
			}
		}
		for j, e := range step.Commit.Update {
			if e.ID == "" {
				return fmt.Errorf("steps[%d].update[%d]: id is required", i, j)
			}
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i], len(s.Steps)); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, steps int) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	needID := func() error {
		if a.ID == "" {
			return fmt.Errorf("assertions[%d]: id is required for %s", index, a.Type)
		}
		return nil
	}
	needCount := func() error {
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: non-negative count is required for %s", index, a.Type)
		}
		return nil
	}

	switch a.Type {
	case AssertObject:
		return needID()
	case AssertHistory:
		if err := needID(); err != nil {
			return err
		}
		return needCount()
	case AssertLog:
		if err := needID(); err != nil {
			return err
		}
		if a.From > a.To {
			return fmt.Errorf("assertions[%d]: from must not exceed to", index)
		}
		return needCount()
	case AssertDiff:
		if err := needID(); err != nil {
			return err
		}
		if a.Count == nil && a.Keys == nil {
			return fmt.Errorf("assertions[%d]: count or keys is required for diff", index)
		}
	case AssertCommitsByTag:
		if a.Tag == "" {
			return fmt.Errorf("assertions[%d]: tag is required for commits_by_tag", index)
		}
		return needCount()
	case AssertRevision:
		if a.Step == nil || *a.Step < 0 || *a.Step >= steps {
			return fmt.Errorf("assertions[%d]: step must name one of the %d steps", index, steps)
		}
	case AssertQuery, AssertResurrected, AssertVerify:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
