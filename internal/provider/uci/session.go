// Package uci serves reference-engine moves from a local UCI engine process.
package uci

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"
)

const defaultReadyTimeout = 4 * time.Second

type Options struct {
	Threads int
	HashMB  int
}

// Result is the outcome of one search.
type Result struct {
	BestMove string
	ScoreCP  int
	Mate     bool
	Depth    int
}

type Session struct {
	stdin  io.WriteCloser
	stdout *bufio.Reader
	closer func() error
	mu     sync.Mutex
	search sync.Mutex
}

// NewSession starts the engine binary and completes the UCI handshake.
func NewSession(ctx context.Context, binaryPath string, opt Options) (*Session, error) {
	if opt.HashMB < 0 {
		return nil, fmt.Errorf("hash size must be >= 0: %d", opt.HashMB)
	}

	cmd := exec.Command(binaryPath)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdoutPipe.Close()
		return nil, fmt.Errorf("start engine: %w", err)
	}

	s := newSession(stdin, stdoutPipe, func() error {
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		return cmd.Wait()
	})
	if err := s.initialize(ctx, opt); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func newSession(stdin io.WriteCloser, stdout io.Reader, closer func() error) *Session {
	return &Session{stdin: stdin, stdout: bufio.NewReader(stdout), closer: closer}
}

// Search runs "go movetime" on fen and returns the engine's best move.
func (s *Session) Search(ctx context.Context, fen string, moveTime time.Duration) (Result, error) {
	s.search.Lock()
	defer s.search.Unlock()

	if moveTime <= 0 {
		return Result{}, fmt.Errorf("no search limits specified")
	}
	if err := s.send(buildPositionCommand(fen)); err != nil {
		return Result{}, fmt.Errorf("send position: %w", err)
	}
	ms := int(moveTime.Milliseconds())
	if ms < 1 {
		ms = 1
	}
	if err := s.send("go movetime " + strconv.Itoa(ms) + "\n"); err != nil {
		return Result{}, fmt.Errorf("send go: %w", err)
	}

	searchCtx, cancel := context.WithTimeout(ctx, searchTimeout(moveTime))
	defer cancel()

	var res Result
	for {
		line, err := s.readLine(searchCtx)
		if err != nil {
			return Result{}, fmt.Errorf("read line: %w", err)
		}
		switch {
		case strings.HasPrefix(line, "info "):
			parseInfo(line, &res)
		case strings.HasPrefix(line, "bestmove"):
			parts := strings.Fields(line)
			if len(parts) >= 2 {
				res.BestMove = parts[1]
			}
			return res, nil
		}
	}
}

func buildPositionCommand(fen string) string {
	if strings.TrimSpace(fen) == "" || fen == "startpos" {
		return "position startpos\n"
	}
	return "position fen " + fen + "\n"
}

func searchTimeout(moveTime time.Duration) time.Duration {
	return 3 * (moveTime + 2*time.Second)
}

// parseInfo keeps the deepest score reported so far.
func parseInfo(line string, res *Result) {
	parts := strings.Fields(line)
	for i := 0; i < len(parts); i++ {
		switch parts[i] {
		case "depth":
			if i+1 < len(parts) {
				if v, err := strconv.Atoi(parts[i+1]); err == nil {
					res.Depth = v
				}
				i++
			}
		case "score":
			if i+2 < len(parts) {
				if v, err := strconv.Atoi(parts[i+2]); err == nil {
					switch parts[i+1] {
					case "cp":
						res.ScoreCP, res.Mate = v, false
					case "mate":
						const mateValue = 30000
						res.Mate = true
						if v >= 0 {
							res.ScoreCP = mateValue
						} else {
							res.ScoreCP = -mateValue
						}
					}
				}
				i += 2
			}
		case "pv":
			return
		}
	}
}

func (s *Session) EnsureReady(ctx context.Context) error {
	readyCtx, cancel := context.WithTimeout(ctx, defaultReadyTimeout)
	defer cancel()

	if err := s.send("isready\n"); err != nil {
		return fmt.Errorf("send isready: %w", err)
	}
	if err := s.awaitToken(readyCtx, "readyok"); err != nil {
		return fmt.Errorf("wait readyok: %w", err)
	}
	return nil
}

func (s *Session) NewGame(ctx context.Context) error {
	if err := s.send("ucinewgame\n"); err != nil {
		return fmt.Errorf("send ucinewgame: %w", err)
	}
	return s.EnsureReady(ctx)
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stdin != nil {
		_, _ = io.WriteString(s.stdin, "quit\n")
		s.stdin.Close()
	}
	if s.closer != nil {
		return s.closer()
	}
	return nil
}

func (s *Session) initialize(ctx context.Context, opt Options) error {
	initCtx, cancel := context.WithTimeout(ctx, defaultReadyTimeout)
	defer cancel()

	if err := s.send("uci\n"); err != nil {
		return fmt.Errorf("send uci: %w", err)
	}
	if err := s.awaitToken(initCtx, "uciok"); err != nil {
		return fmt.Errorf("wait uciok: %w", err)
	}

	threads := opt.Threads
	if threads <= 0 {
		threads = 1
	}
	cmds := []string{fmt.Sprintf("setoption name Threads value %d\n", threads)}
	if opt.HashMB > 0 {
		cmds = append(cmds, fmt.Sprintf("setoption name Hash value %d\n", opt.HashMB))
	}
	for _, cmd := range cmds {
		if err := s.send(cmd); err != nil {
			return fmt.Errorf("apply options: %w", err)
		}
	}

	if err := s.send("isready\n"); err != nil {
		return fmt.Errorf("send isready: %w", err)
	}
	if err := s.awaitToken(initCtx, "readyok"); err != nil {
		return fmt.Errorf("wait readyok: %w", err)
	}
	return nil
}

func (s *Session) send(msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := io.WriteString(s.stdin, msg)
	return err
}

func (s *Session) awaitToken(ctx context.Context, token string) error {
	for {
		line, err := s.readLine(ctx)
		if err != nil {
			return err
		}
		if strings.Contains(line, token) {
			return nil
		}
	}
}

func (s *Session) readLine(ctx context.Context) (string, error) {
	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)

	go func() {
		line, err := s.stdout.ReadString('\n')
		ch <- result{line: strings.TrimSpace(line), err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		return res.line, res.err
	}
}
