// Package procguard supervises external child processes.
//
// A Guard owns a running process exclusively. Stopping the guard requests
// graceful termination and waits a bounded grace period before forcing the
// process to exit. Stop always runs to completion and is safe to call more
// than once; only the first call performs the shutdown.
package procguard

import (
	"os/exec"
	"sync"
	"time"
)

// Guard is an owned handle to a running child process.
type Guard struct {
	cmd   *exec.Cmd
	grace time.Duration

	// done is closed once the process has been reaped by the background
	// Wait. After that point the process is guaranteed to be gone.
	done     chan struct{}
	waitErr  error
	stopOnce sync.Once
}

// Start launches cmd and returns a Guard supervising it. The grace duration
// bounds how long Stop waits between the termination request and a forced
// kill. The returned error is the spawn error from the OS, if any.
func Start(cmd *exec.Cmd, grace time.Duration) (*Guard, error) {
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	g := &Guard{
		cmd:   cmd,
		grace: grace,
		done:  make(chan struct{}),
	}

	// Reap the child as soon as it exits so Stop never waits on a zombie.
	go func() {
		g.waitErr = cmd.Wait()
		close(g.done)
	}()

	return g, nil
}

// PID returns the process ID of the supervised process.
func (g *Guard) PID() int {
	return g.cmd.Process.Pid
}

// Alive reports whether the supervised process is still running.
func (g *Guard) Alive() bool {
	select {
	case <-g.done:
		return false
	default:
		return true
	}
}

// Stop terminates the supervised process and waits for it to exit.
//
// A termination request (SIGTERM on Unix) is sent first; if the process has
// not exited within the grace period it is forcibly killed. Stop returns
// once the process has been reaped. Subsequent calls are no-ops.
func (g *Guard) Stop() {
	g.stopOnce.Do(g.stop)
}

func (g *Guard) stop() {
	select {
	case <-g.done:
		return // already exited on its own
	default:
	}

	_ = terminate(g.cmd.Process)

	select {
	case <-g.done:
	case <-time.After(g.grace):
		_ = g.cmd.Process.Kill()
		<-g.done
	}
}
