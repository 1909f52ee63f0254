package daemonctl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"contentflow/internal/config"
	"contentflow/internal/ipc"
)

const (
	defaultPollInterval = 200 * time.Millisecond
	defaultStartTimeout = 10 * time.Second
	defaultStopGrace    = 5 * time.Second
	termGracePeriod     = 2 * time.Second
)

// ErrDaemonNotRunning indicates daemon IPC is unavailable.
var ErrDaemonNotRunning = errors.New("daemon not running")

// LaunchOptions are passed through to the detached daemon process.
type LaunchOptions struct {
	SocketPath string
	ConfigPath string
	LogLevel   string
}

func (o LaunchOptions) args() []string {
	args := []string{"daemon"}
	if socket := strings.TrimSpace(o.SocketPath); socket != "" {
		args = append(args, "--socket", socket)
	}
	if path := strings.TrimSpace(o.ConfigPath); path != "" {
		args = append(args, "--config", path)
	}
	if level := strings.TrimSpace(o.LogLevel); level != "" {
		args = append(args, "--log-level", level)
	}
	return args
}

// StartState describes how a start request was satisfied.
type StartState string

const (
	StartStateStarted        StartState = "started"
	StartStateAlreadyRunning StartState = "already_running"
	StartStateRequested      StartState = "start_requested"
)

// StartResult captures daemon start orchestration state.
type StartResult struct {
	State    StartState
	Launched bool
	Message  string
}

// StopResult captures daemon stop/termination outcome.
type StopResult struct {
	StopAcknowledged bool
	Signaled         bool
	ForcedKill       bool
	PID              int
}

// RestartResult captures stop/start outcomes for daemon restart.
type RestartResult struct {
	WasRunning bool
	Stop       StopResult
	Start      StartResult
}

// Controller launches, stops and probes the daemon through its IPC socket.
type Controller struct {
	SocketPath string
	Config     *config.Config
	Executable string
	Launch     LaunchOptions

	// StartTimeout bounds the wait for a freshly launched daemon's socket.
	StartTimeout time.Duration
	// StopGrace is how long a stop request may take before signals are sent.
	StopGrace time.Duration

	PollInterval time.Duration
}

// Start launches the daemon when its socket is unreachable, then makes sure
// the workflow is running.
func (c *Controller) Start(ctx context.Context) (StartResult, error) {
	client, err := ipc.Dial(c.SocketPath)
	launched := false
	if err != nil {
		if err := c.launch(); err != nil {
			return StartResult{}, err
		}
		client, err = c.waitForClient(ctx)
		if err != nil {
			return StartResult{}, err
		}
		launched = true
	}
	defer client.Close()

	if status, err := client.Status(); err == nil && status != nil && status.Running {
		if launched {
			return StartResult{State: StartStateStarted, Launched: true}, nil
		}
		return StartResult{State: StartStateAlreadyRunning}, nil
	}

	resp, err := client.Start()
	if err != nil {
		return StartResult{}, err
	}
	message := strings.TrimSpace(resp.Message)
	switch {
	case resp.Started:
		return StartResult{State: StartStateStarted, Launched: launched, Message: message}, nil
	case strings.EqualFold(message, "daemon already running") && !launched:
		return StartResult{State: StartStateAlreadyRunning, Message: message}, nil
	case strings.EqualFold(message, "daemon already running"):
		return StartResult{State: StartStateStarted, Launched: true, Message: message}, nil
	case message == "":
		message = "Start request sent"
	}
	return StartResult{State: StartStateRequested, Launched: launched, Message: message}, nil
}

// Stop asks the daemon to stop its workflow, waits up to StopGrace for it to
// go idle, then terminates the process with SIGTERM (SIGKILL if it lingers).
func (c *Controller) Stop(ctx context.Context) (StopResult, error) {
	client, err := ipc.Dial(c.SocketPath)
	if err != nil {
		if unavailable(err) {
			return StopResult{}, ErrDaemonNotRunning
		}
		return StopResult{}, err
	}
	var result StopResult
	if status, err := client.Status(); err == nil && status != nil {
		result.PID = status.PID
	}
	resp, err := client.Stop()
	_ = client.Close()
	if err != nil {
		return result, err
	}
	result.StopAcknowledged = resp.Stopped

	// A workflow that does not drain in time is signaled anyway.
	_ = c.waitForIdle(ctx, orDefault(c.StopGrace, defaultStopGrace))
	if alive, _, _ := c.Probe(); !alive {
		return result, nil
	}

	pid := c.resolvePID(result.PID)
	if pid <= 0 {
		return result, errors.New("daemon still running and its pid is unknown")
	}
	forced, err := terminate(ctx, pid, c.PollInterval)
	if err != nil {
		return result, fmt.Errorf("failed to stop daemon process: %w", err)
	}
	result.Signaled = true
	result.ForcedKill = forced
	result.PID = pid
	c.removeRuntimeFiles()
	return result, nil
}

// Restart stops the daemon if it is running, then starts it again.
func (c *Controller) Restart(ctx context.Context) (RestartResult, error) {
	stopped, err := c.Stop(ctx)
	if err != nil && !errors.Is(err, ErrDaemonNotRunning) {
		return RestartResult{}, err
	}
	started, startErr := c.Start(ctx)
	if startErr != nil {
		return RestartResult{}, startErr
	}
	return RestartResult{WasRunning: err == nil, Stop: stopped, Start: started}, nil
}

// Probe reports whether daemon IPC is reachable and the daemon PID.
func (c *Controller) Probe() (bool, int, error) {
	client, err := ipc.Dial(c.SocketPath)
	if err != nil {
		if unavailable(err) {
			return false, 0, nil
		}
		return false, 0, err
	}
	defer client.Close()
	status, err := client.Status()
	if err != nil {
		return true, 0, err
	}
	return true, status.PID, nil
}

func (c *Controller) launch() error {
	if strings.TrimSpace(c.Executable) == "" {
		return errors.New("resolve executable: executable path is empty")
	}
	proc := exec.Command(c.Executable, c.Launch.args()...)
	proc.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := proc.Start(); err != nil {
		return fmt.Errorf("launch daemon: %w", err)
	}
	return proc.Process.Release()
}

func (c *Controller) waitForClient(ctx context.Context) (*ipc.Client, error) {
	var client *ipc.Client
	err := c.poll(ctx, orDefault(c.StartTimeout, defaultStartTimeout), func() (bool, error) {
		var err error
		client, err = ipc.Dial(c.SocketPath)
		return err == nil, err
	})
	if err != nil {
		return nil, fmt.Errorf("daemon failed to start: %w", err)
	}
	return client, nil
}

// waitForIdle waits until the socket is gone or the daemon reports its
// workflow stopped.
func (c *Controller) waitForIdle(ctx context.Context, timeout time.Duration) error {
	return c.poll(ctx, timeout, func() (bool, error) {
		client, err := ipc.Dial(c.SocketPath)
		if err != nil {
			return unavailable(err), err
		}
		defer client.Close()
		status, err := client.Status()
		if err != nil {
			return false, err
		}
		return !status.Running, nil
	})
}

// poll calls check until it reports done, the timeout passes or ctx ends.
// The last check error is returned on timeout.
func (c *Controller) poll(ctx context.Context, timeout time.Duration, check func() (bool, error)) error {
	interval := c.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastErr error
	for {
		done, err := check()
		if done {
			return nil
		}
		if err != nil {
			lastErr = err
		}
		select {
		case <-ctx.Done():
			if lastErr == nil {
				lastErr = ctx.Err()
			}
			return lastErr
		case <-ticker.C:
		}
	}
}

func (c *Controller) resolvePID(fallback int) int {
	if c.Config == nil {
		return fallback
	}
	if pid, err := ReadPIDFile(c.Config.PIDPath()); err == nil && pid > 0 {
		return pid
	}
	return fallback
}

func (c *Controller) removeRuntimeFiles() {
	_ = os.Remove(c.SocketPath)
	if c.Config != nil {
		_ = os.Remove(c.Config.PIDPath())
		_ = os.Remove(c.Config.LockPath())
	}
}

// ReadPIDFile parses the daemon PID file.
func ReadPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parse pid file %q: %w", path, err)
	}
	return pid, nil
}

// terminate sends SIGTERM and escalates to SIGKILL when the process outlives
// the grace period. It reports whether SIGKILL was needed.
func terminate(ctx context.Context, pid int, interval time.Duration) (bool, error) {
	if pid == os.Getpid() {
		return false, fmt.Errorf("refusing to signal current process (pid %d)", pid)
	}
	if err := unix.Kill(pid, unix.SIGTERM); err != nil {
		if errors.Is(err, unix.ESRCH) {
			return false, nil
		}
		return false, fmt.Errorf("signal daemon process %d: %w", pid, err)
	}
	exited := &Controller{PollInterval: interval}
	if exited.poll(ctx, termGracePeriod, func() (bool, error) { return !processAlive(pid), nil }) == nil {
		return false, nil
	}
	if err := unix.Kill(pid, unix.SIGKILL); err != nil && !errors.Is(err, unix.ESRCH) {
		return false, fmt.Errorf("kill daemon process %d: %w", pid, err)
	}
	return true, nil
}

func orDefault(value, fallback time.Duration) time.Duration {
	if value <= 0 {
		return fallback
	}
	return value
}

func processAlive(pid int) bool {
	return unix.Kill(pid, 0) == nil
}

func unavailable(err error) bool {
	return errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, syscall.ENOENT) ||
		errors.Is(err, syscall.ECONNREFUSED)
}
