package source

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/ayusman/facedecode/internal/detector"
)

// MaxFrameSize bounds the payload of a single length-prefixed frame.
const MaxFrameSize = 64 << 20

// closeGrace is how long Close waits for the process to exit on its own
// after stdin is closed.
const closeGrace = 2 * time.Second

// ErrClosed is returned by Next once the source has been closed.
var ErrClosed = errors.New("source closed")

// ProcessConfig describes an external inference command.
type ProcessConfig struct {
	Command    string
	Args       []string
	Env        []string // appended to the current environment
	NumStrides int
	Stderr     io.Writer // defaults to os.Stderr
}

// ProcessSource reads frames from the stdout of an inference subprocess.
// Each frame is a 4-byte big-endian length followed by a JSON payload.
// The process is started lazily on the first call to Next.
type ProcessSource struct {
	config ProcessConfig

	// readMu serializes Next; mu guards the process state and is never held
	// across a read.
	readMu sync.Mutex
	index  int

	mu      sync.Mutex
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	stdout  *os.File
	reader  *bufio.Reader
	done    chan struct{}
	waitErr error
	started bool
	closed  bool
}

// NewProcessSource creates a source for the given command.
func NewProcessSource(config ProcessConfig) (*ProcessSource, error) {
	if config.Command == "" {
		return nil, fmt.Errorf("inference command is empty")
	}
	if _, err := exec.LookPath(config.Command); err != nil {
		return nil, fmt.Errorf("find inference command: %w", err)
	}

	return &ProcessSource{
		config: config,
	}, nil
}

// Next reads the next frame. It returns io.EOF once the process closes its
// stdout on a frame boundary. Cancelling ctx kills the process and ends a
// pending read with ctx.Err(); Close ends it with ErrClosed.
func (s *ProcessSource) Next(ctx context.Context) (*detector.Frame, error) {
	s.readMu.Lock()
	defer s.readMu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r, err := s.ensureStarted()
	if err != nil {
		return nil, err
	}

	stop := context.AfterFunc(ctx, s.kill)
	payload, err := readFramed(r)
	if !stop() {
		return nil, ctx.Err()
	}
	if err != nil {
		if s.isClosed() {
			return nil, ErrClosed
		}
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read frame %d: %w", s.index, err)
	}

	idx := s.index
	s.index++

	f, err := DecodeFrame(payload, s.config.NumStrides)
	if err != nil {
		return nil, fmt.Errorf("frame %d: %w", idx, err)
	}
	return f, nil
}

// Close closes the process stdin and waits for it to exit, killing it after
// a grace period. A pending Next returns ErrClosed.
func (s *ProcessSource) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	cmd, stdin, stdout, done := s.cmd, s.stdin, s.stdout, s.done
	s.mu.Unlock()

	stdin.Close()

	timer := time.NewTimer(closeGrace)
	defer timer.Stop()

	select {
	case <-done:
	case <-timer.C:
		cmd.Process.Kill()
		<-done
	}

	// Descendants of the process may still hold the write end.
	stdout.Close()

	return s.waitErr
}

func (s *ProcessSource) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// kill stops the process and unblocks any pending read.
func (s *ProcessSource) kill() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.cmd.Process.Kill()
	s.stdout.Close()
}

func (s *ProcessSource) ensureStarted() (*bufio.Reader, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	if s.started {
		return s.reader, nil
	}

	cmd := exec.Command(s.config.Command, s.config.Args...)
	if len(s.config.Env) > 0 {
		cmd.Env = append(os.Environ(), s.config.Env...)
	}
	// Bounds Wait when descendants keep stderr open.
	cmd.WaitDelay = time.Second

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}

	// The read end is ours so that Wait can run concurrently with reads.
	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	cmd.Stdout = pw

	cmd.Stderr = s.config.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	if err := cmd.Start(); err != nil {
		pr.Close()
		pw.Close()
		return nil, fmt.Errorf("start inference command: %w", err)
	}
	pw.Close()

	done := make(chan struct{})
	go func() {
		s.waitErr = cmd.Wait()
		close(done)
	}()

	s.cmd = cmd
	s.stdin = stdin
	s.stdout = pr
	s.reader = bufio.NewReader(pr)
	s.done = done
	s.started = true

	return s.reader, nil
}

// readFramed reads one length-prefixed payload. A clean end of stream before
// the length returns io.EOF; a truncated frame returns io.ErrUnexpectedEOF.
func readFramed(r io.Reader) ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}

	n := binary.BigEndian.Uint32(header[:])
	if n > MaxFrameSize {
		return nil, fmt.Errorf("frame of %d bytes exceeds limit of %d", n, MaxFrameSize)
	}

	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return payload, nil
}

// WriteFramed writes f as a length-prefixed frame.
func WriteFramed(w io.Writer, f *detector.Frame) error {
	data, err := EncodeFrame(f)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}

	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(data)))

	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("write length: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write data: %w", err)
	}
	return nil
}
