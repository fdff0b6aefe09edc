package output

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// ErrRasterizerDisabled is returned when no PDF command is configured.
var ErrRasterizerDisabled = errors.New("output: pdf rasterizer disabled")

// Rasterizer turns a complete HTML page into PDF bytes.
type Rasterizer interface {
	Rasterize(ctx context.Context, html []byte) ([]byte, error)
}

// Runner abstracts command execution so tests can avoid real subprocesses.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stderr string, err error)
}

// ExecRunner implements Runner using os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stderr.String(), err
}

// Placeholders substituted in CommandRasterizer arguments.
const (
	InputPlaceholder  = "{input}"
	OutputPlaceholder = "{output}"
)

// CommandRasterizer prints HTML to PDF with an external program, for example
// headless Chromium:
//
//	chromium --headless --no-pdf-header-footer --print-to-pdf={output} {input}
type CommandRasterizer struct {
	Command string
	Args    []string
	Timeout time.Duration
	Runner  Runner
}

// NewCommandRasterizer creates a rasterizer running command with args.
func NewCommandRasterizer(command string, args []string, timeout time.Duration) *CommandRasterizer {
	return &CommandRasterizer{
		Command: command,
		Args:    args,
		Timeout: timeout,
		Runner:  ExecRunner{},
	}
}

// Rasterize writes html to a temp file, runs the command and returns the
// produced PDF.
func (c *CommandRasterizer) Rasterize(ctx context.Context, html []byte) ([]byte, error) {
	if c == nil || c.Command == "" {
		return nil, ErrRasterizerDisabled
	}
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	work, err := os.MkdirTemp("", "grimoire-pdf-*")
	if err != nil {
		return nil, fmt.Errorf("output: pdf workdir: %w", err)
	}
	defer os.RemoveAll(work)

	in := filepath.Join(work, "page.html")
	out := filepath.Join(work, "page.pdf")
	if err := os.WriteFile(in, html, 0o600); err != nil {
		return nil, fmt.Errorf("output: write pdf input: %w", err)
	}

	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		a = strings.ReplaceAll(a, InputPlaceholder, in)
		args[i] = strings.ReplaceAll(a, OutputPlaceholder, out)
	}

	runner := c.Runner
	if runner == nil {
		runner = ExecRunner{}
	}
	stderr, err := runner.Run(ctx, c.Command, args...)
	if err != nil {
		if stderr = strings.TrimSpace(stderr); stderr != "" {
			return nil, fmt.Errorf("output: %s: %s: %w", c.Command, stderr, err)
		}
		return nil, fmt.Errorf("output: %s: %w", c.Command, err)
	}

	pdf, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("output: read pdf: %w", err)
	}
	return pdf, nil
}
