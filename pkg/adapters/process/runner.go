package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"strings"
)

// ErrNotRegistered is returned for a command missing from the allow-list.
var ErrNotRegistered = errors.New("command not registered")

// Runner executes allow-listed local commands.
// Callers refer to commands by name; the binary and its leading arguments come
// from the registry, so user input can never choose what gets executed.
type Runner struct {
	registry map[string]registered
	baseDir  string
}

type registered struct {
	command string
	args    []string
	env     []string
}

// RunnerOption configures the runner.
type RunnerOption func(*Runner)

// WithCommands populates the allow-list from a loaded config.
func WithCommands(commands map[string]CommandConfig) RunnerOption {
	return func(r *Runner) {
		for name, c := range commands {
			r.Register(name, c.Command, c.Args...)
			for k, v := range c.Environment {
				entry := r.registry[name]
				entry.env = append(entry.env, k+"="+v)
				r.registry[name] = entry
			}
		}
	}
}

// WithBaseDir sets the working directory for executed processes.
func WithBaseDir(dir string) RunnerOption {
	return func(r *Runner) {
		r.baseDir = dir
	}
}

// NewRunner creates a Runner with an empty allow-list.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		registry: make(map[string]registered),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a trusted command to the allow-list.
func (r *Runner) Register(name string, command string, args ...string) {
	r.registry[name] = registered{
		command: command,
		args:    args,
	}
}

// Registered lists the allow-listed names.
func (r *Runner) Registered() []string {
	names := make([]string, 0, len(r.registry))
	for name := range r.registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run executes the named command with args appended to the registered ones and
// returns its standard output. The process is killed when ctx is done.
func (r *Runner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	proc, ok := r.registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotRegistered, name)
	}

	all := append(append([]string(nil), proc.args...), args...)
	cmd := exec.CommandContext(ctx, proc.command, all...) // #nosec G204 -- allow-listed binary
	cmd.Dir = r.baseDir
	if len(proc.env) > 0 {
		cmd.Env = append(cmd.Environ(), proc.env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s: %w", name, ctxErr)
		}
		return nil, &ExitError{Name: name, Err: err, Stderr: strings.TrimSpace(stderr.String())}
	}
	return stdout.Bytes(), nil
}

// ExitError reports a command that ran and failed.
type ExitError struct {
	Name   string
	Err    error
	Stderr string
}

func (e *ExitError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("%s failed: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("%s failed: %v: %s", e.Name, e.Err, e.Stderr)
}

func (e *ExitError) Unwrap() error { return e.Err }
