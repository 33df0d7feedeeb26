package driver

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"go.uber.org/zap"

	"teemscan/internal/diag"
	"teemscan/internal/source"
)

// Toolchain builds a library and dumps the symbols of its archive.
type Toolchain interface {
	// Build runs "make" and "make install" in dir, preceded by "make clean" when clean is set.
	Build(ctx context.Context, dir string, clean bool) error
	// SymbolDump returns the nm output for archive.
	SymbolDump(ctx context.Context, archive string) (string, error)
}

// ToolchainError is a failed make or nm invocation.
type ToolchainError struct {
	Cmd    string
	Dir    string
	Output string
	Err    error
}

func (e *ToolchainError) Error() string {
	msg := fmt.Sprintf("%q failed: %v", e.Cmd, e.Err)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += "\n" + tail(out, 20)
	}
	return msg
}

func (e *ToolchainError) Unwrap() error { return e.Err }

func (e *ToolchainError) DiagCode() diag.Code { return diag.ConToolchainFailure }

func (e *ToolchainError) DiagLocation() source.Location { return source.Location{Path: e.Dir} }

// ExecToolchain runs the configured make and nm binaries.
type ExecToolchain struct {
	Make   string // может содержать аргументы: "make -j4"
	Nm     string
	Logger *zap.Logger
}

// Build runs make in dir. Output is only kept for the error message.
func (t ExecToolchain) Build(ctx context.Context, dir string, clean bool) error {
	targets := [][]string{nil, {"install"}}
	if clean {
		targets = append([][]string{{"clean"}}, targets...)
	}
	for _, target := range targets {
		if _, err := t.run(ctx, dir, t.Make, target...); err != nil {
			return err
		}
	}
	return nil
}

// SymbolDump runs nm on archive.
func (t ExecToolchain) SymbolDump(ctx context.Context, archive string) (string, error) {
	return t.run(ctx, "", t.Nm, archive)
}

func (t ExecToolchain) run(ctx context.Context, dir, tool string, args ...string) (string, error) {
	fields := strings.Fields(tool)
	if len(fields) == 0 {
		return "", &ToolchainError{Cmd: tool, Dir: dir, Err: fmt.Errorf("empty command")}
	}
	argv := append(fields[1:], args...)
	cmdline := strings.Join(append([]string{fields[0]}, argv...), " ")

	// #nosec G204 -- the toolchain binaries come from configuration
	cmd := exec.CommandContext(ctx, fields[0], argv...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	t.logger().Info("running", zap.String("cmd", cmdline), zap.String("dir", dir))
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &ToolchainError{Cmd: cmdline, Dir: dir, Output: stderr.String() + stdout.String(), Err: err}
	}
	return stdout.String(), nil
}

func (t ExecToolchain) logger() *zap.Logger {
	if t.Logger == nil {
		return zap.NewNop()
	}
	return t.Logger
}

// lockedToolchain serialises Build: parallel make runs in one Teem tree
// install into the same arch directory.
type lockedToolchain struct {
	mu   *sync.Mutex
	next Toolchain
}

func (t lockedToolchain) Build(ctx context.Context, dir string, clean bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return t.next.Build(ctx, dir, clean)
}

func (t lockedToolchain) SymbolDump(ctx context.Context, archive string) (string, error) {
	return t.next.SymbolDump(ctx, archive)
}

func tail(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= n {
		return s
	}
	return strings.Join(lines[len(lines)-n:], "\n")
}
