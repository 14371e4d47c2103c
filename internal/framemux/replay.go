package framemux

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/banshee-data/pushup.report/internal/security"
	"github.com/banshee-data/pushup.report/internal/timeutil"
)

var ErrNoFrames = errors.New("replay requires at least one frame line")

const maxReplayFileSize = 256 << 20

// ReplayPort plays back recorded frame lines in a loop, one per interval, as
// if they came from an estimator device. Commands written to it are recorded.
type ReplayPort struct {
	lines    [][]byte
	interval time.Duration

	pr *io.PipeReader
	pw *io.PipeWriter

	mu       sync.Mutex
	commands []string
	done     chan struct{}
	once     sync.Once
}

// NewReplayPort starts replaying lines. Blank lines are skipped.
func NewReplayPort(lines []string, interval time.Duration, clock timeutil.Clock) (*ReplayPort, error) {
	var kept [][]byte
	for _, l := range lines {
		l := bytes.TrimSpace([]byte(l))
		if len(l) == 0 {
			continue
		}
		kept = append(kept, append(l, '\n'))
	}
	if len(kept) == 0 {
		return nil, ErrNoFrames
	}
	if interval <= 0 {
		return nil, fmt.Errorf("invalid replay interval %s", interval)
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}

	pr, pw := io.Pipe()
	p := &ReplayPort{
		lines:    kept,
		interval: interval,
		pr:       pr,
		pw:       pw,
		done:     make(chan struct{}),
	}
	// The ticker is created before returning so a mock clock advanced by
	// the caller always reaches it.
	go p.run(clock.NewTicker(interval))
	return p, nil
}

func (p *ReplayPort) run(ticker timeutil.Ticker) {
	defer ticker.Stop()

	for i := 0; ; i = (i + 1) % len(p.lines) {
		select {
		case <-p.done:
			return
		case <-ticker.C():
		}
		if _, err := p.pw.Write(p.lines[i]); err != nil {
			return
		}
	}
}

func (p *ReplayPort) Read(b []byte) (int, error) { return p.pr.Read(b) }

func (p *ReplayPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.commands = append(p.commands, string(bytes.TrimRight(b, "\n")))
	return len(b), nil
}

// Commands returns the commands written so far.
func (p *ReplayPort) Commands() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.commands...)
}

func (p *ReplayPort) Close() error {
	p.once.Do(func() {
		close(p.done)
		p.pw.CloseWithError(io.EOF)
	})
	return nil
}

// NewReplayMux creates a Mux that replays lines at the given interval.
func NewReplayMux(lines []string, interval time.Duration, clock timeutil.Clock) (*Mux[*ReplayPort], error) {
	port, err := NewReplayPort(lines, interval, clock)
	if err != nil {
		return nil, err
	}
	return New(port), nil
}

// ReadReplayFile loads recorded NDJSON frame lines from path.
func ReadReplayFile(path string) ([]string, error) {
	if err := security.ValidateInputFile(path, maxReplayFileSize, ".ndjson", ".jsonl", ".txt"); err != nil {
		return nil, fmt.Errorf("invalid replay file: %w", err)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open replay file: %w", err)
	}
	defer f.Close()

	var lines []string
	scan := bufio.NewScanner(f)
	scan.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scan.Scan() {
		lines = append(lines, scan.Text())
	}
	if err := scan.Err(); err != nil {
		return nil, fmt.Errorf("failed to read replay file: %w", err)
	}
	return lines, nil
}
