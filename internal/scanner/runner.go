package scanner

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/JNZader/sonarprep/internal/logger"
)

// maxStderrTail bounds the stderr kept for error messages.
const maxStderrTail = 2048

// Runner executes the scanner CLI.
type Runner struct {
	toolPath string
	dir      string
	stdout   io.Writer
	stderr   io.Writer
	log      *logger.Logger
}

// NewRunner creates a Runner for the scanner at toolPath, run from dir.
func NewRunner(toolPath, dir string, log *logger.Logger) *Runner {
	if log == nil {
		log = logger.Default()
	}
	return &Runner{
		toolPath: toolPath,
		dir:      dir,
		stdout:   os.Stdout,
		stderr:   os.Stderr,
		log:      log.WithPrefix("scanner"),
	}
}

// SetOutput redirects the scanner's stdout and stderr.
func (r *Runner) SetOutput(stdout, stderr io.Writer) {
	r.stdout = stdout
	r.stderr = stderr
}

// Run checks the tool exists and runs it with args.
func (r *Runner) Run(ctx context.Context, args []string) error {
	tool, err := r.resolve()
	if err != nil {
		return fmt.Errorf("SonarQube Scanner CLI not found at %s: %w", r.toolPath, err)
	}

	r.log.Info("Running %s %s", tool, strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, tool, args...) //nolint:gosec // Tool path comes from config
	cmd.Dir = r.dir

	var tail bytes.Buffer
	cmd.Stdout = r.stdout
	cmd.Stderr = io.MultiWriter(r.stderr, &tailWriter{buf: &tail, max: maxStderrTail})

	if err := cmd.Run(); err != nil {
		errMsg := strings.TrimSpace(tail.String())
		if errMsg != "" {
			return fmt.Errorf("scanner: %w: %s", err, logger.MaskSecrets(errMsg))
		}
		return fmt.Errorf("scanner: %w", err)
	}

	return nil
}

// resolve finds a bare tool name on PATH; anything with a separator must exist as given.
func (r *Runner) resolve() (string, error) {
	if !strings.ContainsAny(r.toolPath, `/\`) {
		return exec.LookPath(r.toolPath)
	}
	if _, err := os.Stat(r.toolPath); err != nil {
		return "", err
	}
	return r.toolPath, nil
}

// tailWriter keeps the last max bytes written to it.
type tailWriter struct {
	buf *bytes.Buffer
	max int
}

func (w *tailWriter) Write(p []byte) (int, error) {
	w.buf.Write(p)
	if over := w.buf.Len() - w.max; over > 0 {
		w.buf.Next(over)
	}
	return len(p), nil
}
