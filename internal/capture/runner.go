package capture

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"gukbap/kiosk/internal/logging"
)

// ExitCallback is invoked when the capture worker process exits.
type ExitCallback func(err error)

// Runner launches the capture service as a local child process when the
// kiosk is configured with CAPTURE_WORKER_CMD.
type Runner struct {
	workerCmd string
	onExit    ExitCallback

	mu     sync.Mutex
	cmd    *exec.Cmd
	cancel context.CancelFunc
	done   chan struct{}
}

func NewRunner(workerCmd string, onExit ExitCallback) *Runner {
	return &Runner{workerCmd: workerCmd, onExit: onExit}
}

func (r *Runner) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancel != nil
}

// Start spawns the worker with the current environment plus env.
func (r *Runner) Start(env map[string]string) error {
	if strings.TrimSpace(r.workerCmd) == "" {
		return errors.New("capture worker command not configured")
	}
	parts := strings.Fields(r.workerCmd)
	ctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(ctx, parts[0], parts[1:]...)

	r.mu.Lock()
	if r.cancel != nil {
		r.mu.Unlock()
		cancel()
		return errors.New("capture worker already running")
	}
	r.cancel = cancel
	r.mu.Unlock()

	cmd.Env = append(os.Environ(), envToList(env)...)
	fail := func(err error) error {
		r.mu.Lock()
		r.cancel = nil
		r.mu.Unlock()
		cancel()
		return err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fail(err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fail(err)
	}
	if err := cmd.Start(); err != nil {
		return fail(err)
	}

	done := make(chan struct{})
	r.mu.Lock()
	r.cmd = cmd
	r.done = done
	r.mu.Unlock()
	logging.For("capture").Info("capture worker started", "pid", cmd.Process.Pid)

	go r.stream("stdout", stdout)
	go r.stream("stderr", stderr)

	go func() {
		err := cmd.Wait()
		r.mu.Lock()
		r.cmd = nil
		r.cancel = nil
		r.mu.Unlock()
		close(done)
		if r.onExit != nil {
			r.onExit(err)
		}
	}()
	return nil
}

// Stop cancels the worker and kills it if it outlives the grace period.
func (r *Runner) Stop() error {
	r.mu.Lock()
	cancel, cmd, done := r.cancel, r.cmd, r.done
	r.mu.Unlock()
	if cancel == nil || cmd == nil {
		return errors.New("capture worker not running")
	}
	cancel()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		_ = cmd.Process.Kill()
	}
	return nil
}

func envToList(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}

func (r *Runner) stream(name string, rdr io.Reader) {
	log := logging.For("capture-worker")
	scanner := bufio.NewScanner(rdr)
	for scanner.Scan() {
		log.Info(scanner.Text(), "stream", name)
	}
}
