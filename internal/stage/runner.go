package stage

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/dcan-labs/fmripipe/internal/ctxlog"
)

// Runner executes an assembled invocation. The exec-backed implementation is
// the only one used in production; tests substitute recorders.
type Runner interface {
	Run(ctx context.Context, inv Invocation) error
}

// ExecRunner runs invocations through os/exec, streaming child output into
// the structured log and, when LogPath is set, into a per-stage log file.
type ExecRunner struct{}

// NewExecRunner creates the production runner.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run starts the child process and blocks until it exits. The child inherits
// the driver's environment plus the invocation's overrides. Cancellation of
// ctx kills the child.
func (r *ExecRunner) Run(ctx context.Context, inv Invocation) error {
	logger := ctxlog.FromContext(ctx).With("executable", inv.Executable)

	cmd := exec.CommandContext(ctx, inv.Executable, inv.Args...)
	cmd.Env = os.Environ()
	for key, value := range inv.Env {
		cmd.Env = append(cmd.Env, key+"="+value)
	}

	var logFile *os.File
	if inv.LogPath != "" {
		var err error
		logFile, err = os.Create(inv.LogPath)
		if err != nil {
			return fmt.Errorf("failed to create stage log file %s: %w", inv.LogPath, err)
		}
		defer logFile.Close()
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to attach stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to attach stderr pipe: %w", err)
	}

	logger.Debug("Starting external tool.", "command", inv.String())
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", inv.Executable, err)
	}

	// Both streams may write the mirror file; serialize them.
	sink := &syncedFile{file: logFile}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		streamLines(stdout, sink, func(line string) { logger.Info(line) })
	}()
	go func() {
		defer wg.Done()
		streamLines(stderr, sink, func(line string) { logger.Warn(line) })
	}()
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("%s failed: %w", inv.Executable, err)
	}

	logger.Debug("External tool finished.")
	return nil
}

// syncedFile guards a shared mirror file against interleaved writes from the
// stdout and stderr streaming goroutines. A nil file disables mirroring.
type syncedFile struct {
	mu   sync.Mutex
	file *os.File
}

func (s *syncedFile) writeLine(line string) {
	if s.file == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.file, line)
}

// streamLines forwards each child output line to the structured log and
// mirrors it into the stage log file verbatim.
func streamLines(r io.Reader, sink *syncedFile, log func(string)) {
	scanner := bufio.NewScanner(r)
	// Some FSL tools emit very long progress lines.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		log(line)
		sink.writeLine(line)
	}
}
