// Package tagger applies key/value writes to tag-tree (NBT) artifacts. The
// mutation itself is performed by an external tool, this package only
// invokes it.
package tagger

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// Write is a single tag mutation, Path is slash delimited.
type Write struct {
	Path  string
	Value string
}

// Tagger durably sets a tag in the artifact, returned string is whatever the
// implementation has to say about it.
type Tagger interface {
	SetTag(ctx context.Context, artifact string, w Write) (string, error)
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string) ([]byte, error)
}

// Option configures NBTUtil.
type Option func(*NBTUtil)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(n *NBTUtil) {
		if exec != nil {
			n.exec = exec
		}
	}
}

// NBTUtil runs NBTUtil executable once per tag write.
type NBTUtil struct {
	binary  string
	timeout time.Duration
	exec    Executor
}

// NewNBTUtil constructs tagger, timeout limits every single invocation.
func NewNBTUtil(binary string, timeout time.Duration, opts ...Option) (*NBTUtil, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("tagger binary required")
	}
	n := &NBTUtil{
		binary:  binary,
		timeout: timeout,
		exec:    commandExecutor{},
	}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

// Args returns command line for a single write.
func Args(artifact string, w Write) []string {
	return []string{
		"--path=" + filepath.Join(artifact, filepath.FromSlash(w.Path)),
		"--setvalue=" + w.Value,
	}
}

func (n *NBTUtil) SetTag(ctx context.Context, artifact string, w Write) (string, error) {
	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}

	out, err := n.exec.Run(ctx, n.binary, Args(artifact, w))
	output := strings.TrimSpace(string(out))
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return output, fmt.Errorf("no response in %s: %w", n.timeout, context.DeadlineExceeded)
		}
		if output != "" {
			return output, fmt.Errorf("%s: %w: %s", filepath.Base(n.binary), err, output)
		}
		return output, fmt.Errorf("%s: %w", filepath.Base(n.binary), err)
	}
	return output, nil
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	// do not wait forever for orphaned pipes after the kill
	cmd.WaitDelay = time.Second
	return cmd.CombinedOutput()
}
