package recorder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultStartTimeout bounds how long Open waits for the first audio bytes
// before treating a silent program as running.
const DefaultStartTimeout = 2 * time.Second

// CommandSource records by running an external capture program that writes
// the encoded audio to stdout, ffmpeg by default. Stop interrupts the program
// so it can finalise the container.
type CommandSource struct {
	Name string
	Args []string
	// StartTimeout overrides DefaultStartTimeout.
	StartTimeout time.Duration
}

// DefaultCommandSource captures the default input device as WebM/Opus.
func DefaultCommandSource() CommandSource {
	input := []string{"-f", "pulse", "-i", "default"}
	switch runtime.GOOS {
	case "darwin":
		input = []string{"-f", "avfoundation", "-i", ":0"}
	case "windows":
		input = []string{"-f", "dshow", "-i", "audio=default"}
	}
	args := append([]string{"-hide_banner", "-loglevel", "error", "-nostdin"}, input...)
	args = append(args, "-c:a", "libopus", "-f", "webm", "pipe:1")
	return CommandSource{Name: "ffmpeg", Args: args}
}

// Open starts the program and waits until it writes its first byte, exits or
// StartTimeout passes. A program that exits without output, such as ffmpeg
// failing to open the device, is reported here with its stderr.
func (s CommandSource) Open(ctx context.Context) (Capture, error) {
	cmd := exec.CommandContext(ctx, s.Name, s.Args...)
	cmd.Cancel = func() error { return interrupt(cmd.Process) }
	cmd.WaitDelay = 3 * time.Second
	stderr := &tailBuffer{max: 4 << 10}
	cmd.Stderr = stderr
	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	c := &commandCapture{cmd: cmd, out: bufio.NewReader(out), ready: make(chan struct{})}
	first := make(chan error, 1)
	go func() {
		_, err := c.out.Peek(1)
		close(c.ready)
		first <- err
	}()

	timeout := s.StartTimeout
	if timeout <= 0 {
		timeout = DefaultStartTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-first:
		if err == nil {
			return c, nil
		}
		waitErr := cmd.Wait()
		msg := stderr.String()
		if msg == "" && waitErr != nil {
			msg = waitErr.Error()
		}
		if msg == "" {
			msg = "no audio produced"
		}
		return nil, fmt.Errorf("%s exited before producing audio: %s", s.Name, msg)
	case <-timer.C:
		return c, nil
	}
}

type commandCapture struct {
	cmd     *exec.Cmd
	out     *bufio.Reader
	ready   chan struct{}
	stopped atomic.Bool
}

// Read waits for the start-up peek so the reader has a single consumer.
func (c *commandCapture) Read(p []byte) (int, error) {
	<-c.ready
	return c.out.Read(p)
}

func (c *commandCapture) Stop() error {
	c.stopped.Store(true)
	err := interrupt(c.cmd.Process)
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}

func (c *commandCapture) Close() error {
	err := c.cmd.Wait()
	var exitErr *exec.ExitError
	if c.stopped.Load() && errors.As(err, &exitErr) {
		return nil
	}
	return err
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	max int
	buf []byte
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.max; over > 0 {
		b.buf = b.buf[over:]
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.TrimSpace(string(b.buf))
}

func interrupt(p *os.Process) error {
	if runtime.GOOS == "windows" {
		return p.Kill()
	}
	return p.Signal(os.Interrupt)
}

// ReaderSource records from an existing stream such as an audio file. Each
// Open reads from the same reader; Stop ends the capture early and closes the
// reader when it is an io.Closer.
type ReaderSource struct {
	R io.Reader
}

func (s ReaderSource) Open(context.Context) (Capture, error) {
	if s.R == nil {
		return nil, errors.New("no reader")
	}
	return &readerCapture{r: s.R}, nil
}

type readerCapture struct {
	r       io.Reader
	stopped atomic.Bool
}

func (c *readerCapture) Read(p []byte) (int, error) {
	if c.stopped.Load() {
		return 0, io.EOF
	}
	n, err := c.r.Read(p)
	if err != nil && c.stopped.Load() && !errors.Is(err, io.EOF) {
		return n, io.EOF
	}
	return n, err
}

func (c *readerCapture) Stop() error {
	c.stopped.Store(true)
	if cl, ok := c.r.(io.Closer); ok {
		return cl.Close()
	}
	return nil
}

func (c *readerCapture) Close() error { return nil }
