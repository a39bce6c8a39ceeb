package compiler

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/colloquyhq/colloquy/internal/logging"
	"github.com/colloquyhq/colloquy/pkg/domain"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Compiler turns raw flow definitions into validated, executor-ready flows.
// Compilation is a pure transform: input step lists are deep-copied before
// loop expansion, so the same definition can be compiled repeatedly and
// concurrently without cross-conversation corruption.
type Compiler struct {
	logger *slog.Logger
}

// Option configures the Compiler.
type Option func(*Compiler)

// WithLogger sets the logger used for validation warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Compiler) {
		c.logger = logger
	}
}

// New creates a new Compiler.
func New(opts ...Option) *Compiler {
	c := &Compiler{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// rawFlow is the YAML shape of a flow file. Steps are decoded generically
// first so unknown keys surface as decode errors instead of being dropped.
type rawFlow struct {
	Name        string           `yaml:"name"`
	Description string           `yaml:"description"`
	Steps       []map[string]any `yaml:"steps"`
}

// Parse decodes a single YAML flow document and compiles it.
func (c *Compiler) Parse(data []byte) (*domain.Flow, error) {
	var raw rawFlow
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("error unmarshalling flow YAML: %w", err)
	}

	flow := domain.Flow{
		Name:        raw.Name,
		Description: raw.Description,
		Steps:       make([]domain.Step, 0, len(raw.Steps)),
	}
	for i, rawStep := range raw.Steps {
		step, err := decodeStep(rawStep)
		if err != nil {
			return nil, fmt.Errorf("flow %q step %d: %w", raw.Name, i, err)
		}
		flow.Steps = append(flow.Steps, step)
	}

	return c.Compile(flow)
}

// decodeStep maps a generic YAML step onto the typed Step struct. Unused
// keys are rejected so typos in definitions fail at load time.
func decodeStep(raw map[string]any) (domain.Step, error) {
	var step domain.Step
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &step,
		ErrorUnused: true,
	})
	if err != nil {
		return step, err
	}
	if err := dec.Decode(raw); err != nil {
		return step, fmt.Errorf("invalid step definition: %w", err)
	}
	return step, nil
}

// Compile validates a flow and expands loop constructs into branch
// primitives with a back edge. The input is deep-copied first and never
// mutated.
func (c *Compiler) Compile(flow domain.Flow) (*domain.Flow, error) {
	compiled := &domain.Flow{
		Name:        flow.Name,
		Description: flow.Description,
		Steps:       expandLoops(copySteps(flow.Steps)),
	}

	if err := c.validate(compiled); err != nil {
		return nil, err
	}
	return compiled, nil
}

// LoadFile parses and compiles one flow definition file.
func (c *Compiler) LoadFile(path string) (*domain.Flow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading flow file: %w", err)
	}
	flow, err := c.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return flow, nil
}

// LoadDir compiles every .yaml/.yml file in a directory into a flow set.
func (c *Compiler) LoadDir(dir string) ([]*domain.Flow, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("error reading flow directory: %w", err)
	}

	var flows []*domain.Flow
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		flow, err := c.LoadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		flows = append(flows, flow)
	}

	if len(flows) == 0 {
		return nil, fmt.Errorf("no flow definitions found in %s", dir)
	}
	return flows, nil
}

// copySteps deep-copies a step list, including loop bodies and slot lists.
func copySteps(steps []domain.Step) []domain.Step {
	out := make([]domain.Step, len(steps))
	for i, s := range steps {
		out[i] = s
		if s.Slots != nil {
			out[i].Slots = append([]string(nil), s.Slots...)
		}
		if s.Body != nil {
			out[i].Body = copySteps(s.Body)
		}
	}
	return out
}
