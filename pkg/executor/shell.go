package executor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"
)

// workdirSentinel prefixes the marker line appended after the user
// command to recover the resulting working directory. The sentinel's
// own output is stripped from what the caller sees.
const workdirSentinel = "__PLANRUN_PWD__"

// ShellExecutor runs commands through a real shell, streaming output
// chunk-by-chunk to an optional sink and capping retained output at
// the last 128 lines per stream.
type ShellExecutor struct {
	// Shell overrides the shell binary. Defaults to /bin/sh
	// (cmd.exe on Windows).
	Shell string

	// Sink optionally receives output chunks as they arrive.
	Sink OutputFunc
}

// Execute runs cmd to completion. StatusRunning is emitted
// synchronously before the process starts, followed by exactly one
// terminal status. A non-zero exit code yields Result == ResultError
// with Err set to "Exit code: <n>"; it is not an error return —
// error returns are reserved for spawn failures and cancellation.
func (s *ShellExecutor) Execute(ctx context.Context, cmd ExecutionCommand, onProgress ProgressFunc, index int) (*CommandOutput, error) {
	if onProgress != nil {
		onProgress(StatusRunning, index)
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if cmd.TimeoutMs > 0 {
		runCtx, cancel = context.WithTimeout(ctx, time.Duration(cmd.TimeoutMs)*time.Millisecond)
		defer cancel()
	}

	proc := exec.CommandContext(runCtx, s.shell(), s.shellArgs(cmd.Command)...)
	if cmd.Workdir != "" {
		proc.Dir = cmd.Workdir
	}

	stdoutPipe, err := proc.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	stderrPipe, err := proc.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("create stderr pipe: %w", err)
	}

	if err := proc.Start(); err != nil {
		if onProgress != nil {
			onProgress(StatusFailed, index)
		}
		return nil, fmt.Errorf("start command %q: %w", cmd.Command, err)
	}

	var (
		wg      sync.WaitGroup
		stdout  []string
		stderr  []string
		workdir string
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stdoutPipe)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			// The sentinel shares a line with real output when the
			// command's stdout does not end with a newline. Split the
			// prefix back into the output.
			if idx := strings.Index(line, workdirSentinel); idx >= 0 {
				workdir = strings.TrimSpace(line[idx+len(workdirSentinel):])
				if prefix := line[:idx]; prefix != "" {
					stdout = append(stdout, prefix)
					stdout = tailLines(stdout)
					if s.Sink != nil {
						s.Sink(index, StreamStdout, prefix+"\n")
					}
				}
				continue
			}
			stdout = append(stdout, line)
			stdout = tailLines(stdout)
			if s.Sink != nil {
				s.Sink(index, StreamStdout, line+"\n")
			}
		}
		if err := scanner.Err(); err != nil {
			// A scan error (e.g. a line over the buffer cap) stops the
			// loop; keep draining so the child never blocks on a full
			// pipe, and surface the truncation.
			stdout = append(stdout, fmt.Sprintf("[output truncated: %v]", err))
			io.Copy(io.Discard, stdoutPipe)
		}
	}()
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stderrPipe)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			stderr = append(stderr, line)
			stderr = tailLines(stderr)
			if s.Sink != nil {
				s.Sink(index, StreamStderr, line+"\n")
			}
		}
		if err := scanner.Err(); err != nil {
			stderr = append(stderr, fmt.Sprintf("[output truncated: %v]", err))
			io.Copy(io.Discard, stderrPipe)
		}
	}()

	// Wait must not be called until reads from the pipes have
	// completed: Wait closes the pipes once the process exits.
	wg.Wait()
	waitErr := proc.Wait()

	out := &CommandOutput{
		Description: cmd.Description,
		Command:     cmd.Command,
		Output:      strings.Join(stdout, "\n"),
		Errors:      strings.Join(stderr, "\n"),
		Result:      ResultSuccess,
		Workdir:     workdir,
	}

	// Caller cancellation: hand back whatever accumulated.
	if ctx.Err() != nil {
		if onProgress != nil {
			onProgress(StatusAborted, index)
		}
		return out, ctx.Err()
	}

	if runCtx.Err() == context.DeadlineExceeded {
		out.Result = ResultError
		out.Err = fmt.Sprintf("Timed out after %dms", cmd.TimeoutMs)
		if onProgress != nil {
			onProgress(StatusFailed, index)
		}
		return out, nil
	}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			out.Result = ResultError
			out.Err = fmt.Sprintf("Exit code: %d", exitErr.ExitCode())
			if onProgress != nil {
				onProgress(StatusFailed, index)
			}
			return out, nil
		}
		if onProgress != nil {
			onProgress(StatusFailed, index)
		}
		return nil, fmt.Errorf("execute command %q: %w", cmd.Command, waitErr)
	}

	if onProgress != nil {
		onProgress(StatusSuccess, index)
	}
	return out, nil
}

func (s *ShellExecutor) shell() string {
	if s.Shell != "" {
		return s.Shell
	}
	if runtime.GOOS == "windows" {
		return "cmd.exe"
	}
	return "/bin/sh"
}

// shellArgs builds the shell invocation. On POSIX shells the user
// command is followed by a sentinel that prints the final working
// directory while preserving the command's exit status, so a `cd`
// inside one command can influence the next command's workdir.
// cmd.exe has no equivalent quoting-safe construct; workdir recovery
// is skipped there.
func (s *ShellExecutor) shellArgs(command string) []string {
	if runtime.GOOS == "windows" && s.Shell == "" {
		return []string{"/C", command}
	}
	script := command + "\n" +
		`__planrun_rc=$?` + "\n" +
		`printf '%s%s\n' '` + workdirSentinel + `' "$PWD"` + "\n" +
		`exit $__planrun_rc`
	return []string{"-c", script}
}
