package process

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"sort"
	"strings"
)

// Executor implements ports.ActionExecutor by running registered local
// commands. Slot values are passed to the process as COLLOQUY_SLOT_*
// environment variables; whatever the process prints to stdout becomes the
// action's outputs.
type Executor struct {
	registry map[string]ActionConfig
	baseDir  string
}

// Option configures the executor.
type Option func(*Executor)

// WithRegistry populates the allow-list from a loaded config.
func WithRegistry(actions map[string]ActionConfig) Option {
	return func(e *Executor) {
		for name, action := range actions {
			e.registry[name] = action
		}
	}
}

// WithBaseDir sets the working directory for executed processes.
func WithBaseDir(dir string) Option {
	return func(e *Executor) {
		e.baseDir = dir
	}
}

// NewExecutor creates a process-backed action executor.
func NewExecutor(opts ...Option) *Executor {
	e := &Executor{
		registry: make(map[string]ActionConfig),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Register adds a trusted command to the allow-list.
func (e *Executor) Register(name string, command string, args ...string) {
	e.registry[name] = ActionConfig{
		Name:    name,
		Command: command,
		Args:    args,
	}
}

// Actions returns the registered action names, sorted.
func (e *Executor) Actions() []string {
	names := make([]string, 0, len(e.registry))
	for name := range e.registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Execute runs the command registered for the action name. The process
// inherits the parent environment plus one COLLOQUY_SLOT_<NAME> variable per
// slot. If stdout is a JSON object it becomes the outputs map verbatim;
// any other output is returned under the "output" key.
func (e *Executor) Execute(ctx context.Context, actionName string, slots map[string]any) (map[string]any, error) {
	cfg, ok := e.registry[actionName]
	if !ok {
		return nil, fmt.Errorf("process action not registered: %s", actionName)
	}

	cmd := exec.CommandContext(ctx, cfg.Command, cfg.Args...)
	cmd.Dir = e.baseDir
	cmd.Env = cmd.Environ()
	for k, v := range cfg.Environment {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}
	for k, v := range slots {
		cmd.Env = append(cmd.Env, fmt.Sprintf("COLLOQUY_SLOT_%s=%s", strings.ToUpper(k), encodeSlot(v)))
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("action %s failed: %w (stderr: %s)", actionName, err, strings.TrimSpace(stderr.String()))
	}

	trimmed := strings.TrimSpace(stdout.String())
	if strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}") {
		var outputs map[string]any
		if jsonErr := json.Unmarshal([]byte(trimmed), &outputs); jsonErr == nil {
			return outputs, nil
		}
	}
	if trimmed == "" {
		return map[string]any{}, nil
	}
	return map[string]any{"output": trimmed}, nil
}

// encodeSlot serializes a slot value for the environment. Primitives use
// their plain text form; structured values are JSON.
func encodeSlot(v any) string {
	switch v.(type) {
	case string, int, int64, float64, bool:
		return fmt.Sprintf("%v", v)
	case nil:
		return ""
	default:
		if data, err := json.Marshal(v); err == nil {
			return string(data)
		}
		return fmt.Sprintf("%v", v)
	}
}
