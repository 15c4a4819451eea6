package render

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// errorDetailLimit caps captured diagnostic text per task.
const errorDetailLimit = 200

// stderrTailLines bounds how many trailing stderr lines are kept per task.
const stderrTailLines = 16

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onStderr func(string)) error
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client wraps external renderer invocations. The renderer is an executable
// accepting a source file and an output directory; everything about the 3D
// scene is its own business.
type Client struct {
	binary string
	script string
	exec   Executor
}

// New constructs a renderer client. script may be empty when the renderer
// needs no scene script argument.
func New(binary, script string, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("renderer binary required")
	}
	client := &Client{
		binary: binary,
		script: strings.TrimSpace(script),
		exec:   commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Binary returns the configured renderer executable.
func (c *Client) Binary() string {
	return c.binary
}

// Render invokes the renderer for one object. The caller bounds execution
// via ctx; when the deadline passes the renderer process group is killed,
// not signaled cooperatively. Returns the captured stderr tail inside the
// error for diagnostics.
func (c *Client) Render(ctx context.Context, sourcePath, outputDir string) error {
	args := []string{"--background"}
	if c.script != "" {
		args = append(args, "--python", c.script)
	}
	args = append(args, "--", "--input", sourcePath, "--output_dir", outputDir)

	tail := newTailBuffer(stderrTailLines)
	err := c.exec.Run(ctx, c.binary, args, tail.append)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		// Deadline or run cancellation; the caller classifies it.
		return ctx.Err()
	}
	var execErr *exec.Error
	if errors.As(err, &execErr) {
		return fmt.Errorf("%w: %v", ErrLaunch, err)
	}
	if detail := tail.String(); detail != "" {
		return fmt.Errorf("renderer: %w: %s", err, detail)
	}
	return fmt.Errorf("renderer: %w", err)
}

// tailBuffer keeps the last N nonempty lines written to it.
type tailBuffer struct {
	mu    sync.Mutex
	lines []string
	limit int
}

func newTailBuffer(limit int) *tailBuffer {
	return &tailBuffer{limit: limit}
}

func (b *tailBuffer) append(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lines = append(b.lines, line)
	if len(b.lines) > b.limit {
		b.lines = b.lines[len(b.lines)-b.limit:]
	}
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Join(b.lines, " | ")
}

type commandExecutor struct{}

// Run starts the renderer in its own process group so that a deadline kills
// the whole tree, including any children the renderer forked. The external
// renderer is not trusted to self-terminate.
func (commandExecutor) Run(ctx context.Context, binary string, args []string, onStderr func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	cmd.Stdout = io.Discard
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
	}
	cmd.WaitDelay = 5 * time.Second

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start command: %w", err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stderr)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			if onStderr != nil {
				onStderr(scanner.Text())
			}
		}
	}()

	wg.Wait()
	return cmd.Wait()
}
