package action

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mattn/go-shellwords"
	"golang.org/x/sync/errgroup"
)

// readChunkSize is the size of each read from a child process pipe.
const readChunkSize = 4096

var (
	// ErrProcessRunning is returned by ProcessExec while a previously spawned
	// process is still alive.
	ErrProcessRunning = errors.New("process already running")

	// ErrEmptyCommand is returned by ProcessExec for a blank command line.
	ErrEmptyCommand = errors.New("empty command")
)

// Trigger is a scripted interaction: whenever a stdout line of the
// supervised process contains Match, Response followed by a newline is
// written to the process's stdin.
type Trigger struct {
	Match    string `toml:"match" json:"match"`
	Response string `toml:"response" json:"response"`
}

// process is the supervised child of an action.
type process struct {
	cmd      *exec.Cmd
	stdin    io.WriteCloser
	stdinMu  sync.Mutex
	done     chan struct{}
	exitCode int // valid once done is closed
}

func (p *process) exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// ProcessExec spawns command and returns as soon as it has started. Output is
// consumed by one reader goroutine per stream; every line is appended to the
// raw process output buffer and mirrored verbatim into the console.
//
// With useShell the command line is handed to the platform shell; otherwise
// it is split into arguments with shell quoting rules but no expansion.
func (a *BackgroundAction) ProcessExec(command, cwd string, useShell bool) error {
	if strings.TrimSpace(command) == "" {
		return ErrEmptyCommand
	}

	a.mu.Lock()
	if a.proc != nil && !a.proc.exited() {
		a.mu.Unlock()
		return fmt.Errorf("exec %q: %w", command, ErrProcessRunning)
	}
	ctx := a.ctx
	a.mu.Unlock()

	var args []string
	if useShell {
		args = shellArgs(command)
	} else {
		parsed, err := shellwords.Parse(command)
		if err != nil {
			return fmt.Errorf("parsing command %q: %w", command, err)
		}
		if len(parsed) == 0 {
			return ErrEmptyCommand
		}
		args = parsed
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = cwd
	cmd.Env = os.Environ()
	setProcGroup(cmd)

	p := &process{cmd: cmd, done: make(chan struct{})}

	if len(a.triggers) > 0 {
		stdin, err := cmd.StdinPipe()
		if err != nil {
			return fmt.Errorf("creating stdin pipe: %w", err)
		}
		p.stdin = stdin
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("creating stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("creating stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting %q: %w", command, err)
	}

	a.mu.Lock()
	a.proc = p
	a.procOutput.Clear()
	a.mu.Unlock()

	a.logger.Debug("process started", "action", a.Name(), "pid", cmd.Process.Pid, "command", command, "dir", cwd)

	var g errgroup.Group
	g.Go(func() error { return a.readStream(stdout, p, true) })
	g.Go(func() error { return a.readStream(stderr, p, false) })

	go a.waitProcess(p, &g)
	return nil
}

// waitProcess reaps the child once both readers have hit EOF. Pipes must be
// drained before cmd.Wait closes them.
func (a *BackgroundAction) waitProcess(p *process, g *errgroup.Group) {
	if err := g.Wait(); err != nil {
		a.logger.Warn("process reader stopped", "action", a.Name(), "error", err)
	}

	code := 0
	if err := p.cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		} else {
			code = -1
			a.logger.Warn("waiting for process", "action", a.Name(), "error", err)
		}
	}

	if p.stdin != nil {
		p.stdinMu.Lock()
		_ = p.stdin.Close()
		p.stdinMu.Unlock()
	}

	a.mu.Lock()
	p.exitCode = code
	a.mu.Unlock()
	close(p.done)

	level := log.InfoLevel
	if code != 0 {
		level = log.WarnLevel
	}
	a.LogWrite(fmt.Sprintf("process exited with code %d", code), level)
}

// readStream copies one pipe into the action line by line until EOF. A
// trailing line without a newline is flushed at EOF. A read error ends only
// this reader.
func (a *BackgroundAction) readStream(r io.Reader, p *process, stdout bool) error {
	buf := make([]byte, readChunkSize)
	var pending []byte
	partialFired := false

	for {
		n, err := r.Read(buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)
			for {
				i := bytes.IndexByte(pending, '\n')
				if i < 0 {
					break
				}
				line := strings.TrimRight(string(pending[:i]), "\r")
				pending = pending[i+1:]
				a.captureLine(line)
				if stdout && !partialFired {
					a.fireTriggers(p, line)
				}
				partialFired = false
			}
			// Interactive prompts usually end without a newline; match them
			// while they are still pending.
			if stdout && len(pending) > 0 && !partialFired {
				partialFired = a.fireTriggers(p, string(pending))
			}
		}
		if err != nil {
			if len(pending) > 0 {
				a.captureLine(strings.TrimRight(string(pending), "\r"))
			}
			if errors.Is(err, io.EOF) || errors.Is(err, os.ErrClosed) {
				return nil
			}
			return err
		}
	}
}

func (a *BackgroundAction) captureLine(line string) {
	a.mu.Lock()
	a.procOutput.Append(line)
	a.console.Append(line)
	a.appended++
	a.mu.Unlock()
}

// fireTriggers writes the response of every trigger matching text. It
// reports whether any trigger fired.
func (a *BackgroundAction) fireTriggers(p *process, text string) bool {
	if p.stdin == nil {
		return false
	}
	fired := false
	for _, t := range a.triggers {
		if t.Match == "" || !strings.Contains(text, t.Match) {
			continue
		}
		p.stdinMu.Lock()
		_, err := io.WriteString(p.stdin, t.Response+"\n")
		p.stdinMu.Unlock()
		if err != nil {
			a.logger.Warn("writing trigger response", "action", a.Name(), "match", t.Match, "error", err)
			continue
		}
		a.LogWrite(fmt.Sprintf("trigger %q answered", t.Match), log.DebugLevel)
		fired = true
	}
	return fired
}

// ProcessWait blocks until the supervised process exits or timeout elapses.
// A timeout <= 0 waits indefinitely. It reports whether the process has
// exited and never kills it. With no process it returns true immediately.
func (a *BackgroundAction) ProcessWait(timeout time.Duration) bool {
	a.mu.Lock()
	p := a.proc
	a.mu.Unlock()
	if p == nil {
		return true
	}
	if timeout <= 0 {
		<-p.done
		return true
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-p.done:
		return true
	case <-timer.C:
		return false
	}
}

// ProcessClose kills the supervised process (and its process group)
// immediately. It is a no-op when no process is running.
func (a *BackgroundAction) ProcessClose() error {
	a.mu.Lock()
	p := a.proc
	a.mu.Unlock()
	if p == nil || p.exited() || p.cmd.Process == nil {
		return nil
	}
	a.logger.Debug("killing process", "action", a.Name(), "pid", p.cmd.Process.Pid)
	if err := killProcess(p.cmd); err != nil {
		return fmt.Errorf("killing process %d: %w", p.cmd.Process.Pid, err)
	}
	return nil
}

// HasProcess reports whether a child process was ever spawned.
func (a *BackgroundAction) HasProcess() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.proc != nil
}

// ProcessRunning reports whether the supervised process is still alive.
func (a *BackgroundAction) ProcessRunning() bool {
	a.mu.Lock()
	p := a.proc
	a.mu.Unlock()
	return p != nil && !p.exited()
}

// ExitCode returns the exit code of the last process, or -1 while it is
// running or when none was spawned.
func (a *BackgroundAction) ExitCode() int {
	a.mu.Lock()
	p := a.proc
	a.mu.Unlock()
	if p == nil || !p.exited() {
		return -1
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return p.exitCode
}

// ProcessOutput returns the raw lines captured from the last process.
func (a *BackgroundAction) ProcessOutput() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.procOutput.Snapshot(0)
}

func shellArgs(command string) []string {
	if runtime.GOOS == "windows" {
		return []string{"cmd", "/C", command}
	}
	return []string{"sh", "-c", command}
}
