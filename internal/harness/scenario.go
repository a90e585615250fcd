package harness

import (
	"bytes"
	_ "embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"

	"github.com/roach88/urioracle/internal/migspec"
	"github.com/roach88/urioracle/internal/store"
)

//go:embed schema/scenario.cue
var scenarioSchema string

// Scenario suites as written in YAML.
const (
	ScenarioSuiteInput = "input"
	ScenarioSuiteExec  = "exec"
)

// Scenario is a user-supplied check loaded from YAML. An input scenario
// becomes a ValidationCase; an exec scenario becomes an ExecutionScenario.
//
// Values that are a bare "*" must be quoted in YAML.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name" json:"name"`

	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Suite is "input" or "exec".
	Suite string `yaml:"suite" json:"suite"`

	// Kind applies to exec scenarios. Defaults to "migration".
	Kind string `yaml:"kind,omitempty" json:"kind,omitempty"`

	// Table is shorthand for a target override.
	Table string `yaml:"table,omitempty" json:"table,omitempty"`

	// NoArgs runs the tool with no arguments. Input scenarios only.
	NoArgs bool `yaml:"no_args,omitempty" json:"no_args,omitempty"`

	// Args override base arguments, keyed by flag name without dashes.
	Args map[string]string `yaml:"args,omitempty" json:"args,omitempty"`

	// Delete removes base arguments by flag name.
	Delete []string `yaml:"delete,omitempty" json:"delete,omitempty"`

	// Expect is required for input scenarios.
	Expect *ExpectClause `yaml:"expect,omitempty" json:"expect,omitempty"`

	// MatchEndpoint overrides the endpoint predictions match against, e.g.
	// "azuredatalakestore.net" for ADL sources. Exec scenarios only.
	MatchEndpoint string `yaml:"match_endpoint,omitempty" json:"match_endpoint,omitempty"`
}

// ExpectClause is what an input scenario asserts about the tool's output.
type ExpectClause struct {
	Exit      int      `yaml:"exit" json:"exit"`
	Contains  []string `yaml:"contains,omitempty" json:"contains,omitempty"`
	Forbidden []string `yaml:"forbidden,omitempty" json:"forbidden,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields, or fails the scenario schema.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := checkSchema(data); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// LoadScenarios loads every .yaml and .yml file under dir, ordered by path.
func LoadScenarios(dir string) ([]*Scenario, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := filepath.Ext(path)
		if ext == ".yaml" || ext == ".yml" {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk scenario directory: %w", err)
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	seen := make(map[string]string, len(paths))
	for _, path := range paths {
		s, err := LoadScenario(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if prev, dup := seen[s.Name]; dup {
			return nil, fmt.Errorf("%s: scenario %q already defined in %s", path, s.Name, prev)
		}
		seen[s.Name] = path
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// checkSchema unifies the raw document with #Scenario.
func checkSchema(data []byte) error {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return err
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(scenarioSchema)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("scenario schema: %w", err)
	}

	v := schema.LookupPath(cue.ParsePath("#Scenario")).Unify(ctx.Encode(doc))
	return formatCUEError(v.Validate(cue.Concrete(true)))
}

// formatCUEError reduces a CUE error list to its first entry.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	return errs[0]
}

// validateScenario checks what the schema cannot: flag names, selector
// sizes and cross-field rules.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	switch s.Suite {
	case ScenarioSuiteInput:
		if s.Expect == nil {
			return fmt.Errorf("expect is required for input scenarios")
		}
		if s.Kind != "" {
			return fmt.Errorf("kind applies to exec scenarios only")
		}
		if s.MatchEndpoint != "" {
			return fmt.Errorf("match_endpoint applies to exec scenarios only")
		}
	case ScenarioSuiteExec:
		if s.NoArgs {
			return fmt.Errorf("no_args applies to input scenarios only")
		}
		if s.Expect != nil {
			return fmt.Errorf("expect applies to input scenarios only")
		}
		if s.Kind != "" && !slices.Contains(Kinds(), Kind(s.Kind)) {
			return fmt.Errorf("unknown kind %q", s.Kind)
		}
		if s.Table != "" {
			if _, ok := store.LookupTable(s.Table); !ok {
				return fmt.Errorf("unknown table %q", s.Table)
			}
		}
		if _, err := migspec.FromArgs(s.overrides()); err != nil {
			return fmt.Errorf("args: %w", err)
		}
	default:
		return fmt.Errorf("suite must be %q or %q, got %q", ScenarioSuiteInput, ScenarioSuiteExec, s.Suite)
	}

	// Input scenarios may pass or delete unknown flags on purpose.
	if s.Suite == ScenarioSuiteExec {
		for _, flag := range s.Delete {
			if _, ok := migspec.LookupField(flag); !ok {
				return fmt.Errorf("delete: unknown flag %q", flag)
			}
		}
	}

	return nil
}

// overrides renders Args in sorted flag order, then the table shorthand.
func (s *Scenario) overrides() migspec.Args {
	keys := make([]string, 0, len(s.Args))
	for k := range s.Args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var args migspec.Args
	for _, k := range keys {
		args = args.Set(k, s.Args[k])
	}
	if s.Table != "" {
		args = args.Set(migspec.FieldTarget.Flag(), s.Table)
	}
	return args
}

// ValidationCase converts an input scenario.
func (s *Scenario) ValidationCase() ValidationCase {
	vc := ValidationCase{
		Name:      s.Name,
		NoArgs:    s.NoArgs,
		Overrides: s.overrides(),
		Deletions: slices.Clone(s.Delete),
	}
	if s.Expect != nil {
		vc.ExpectedExit = s.Expect.Exit
		vc.Contains = slices.Clone(s.Expect.Contains)
		vc.Forbidden = slices.Clone(s.Expect.Forbidden)
	}
	return vc
}

// ExecutionScenario converts an exec scenario.
func (s *Scenario) ExecutionScenario() ExecutionScenario {
	kind := Kind(s.Kind)
	if kind == "" {
		kind = KindMigration
	}
	return ExecutionScenario{
		Name:          s.Name,
		Description:   s.Description,
		Kind:          kind,
		Overrides:     s.overrides(),
		Deletions:     slices.Clone(s.Delete),
		MatchEndpoint: s.MatchEndpoint,
	}
}
