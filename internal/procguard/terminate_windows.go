//go:build windows

package procguard

import "os"

// terminate forcibly stops the process. Windows has no SIGTERM equivalent
// that console-less children reliably handle, so the grace period is moot.
func terminate(p *os.Process) error {
	return p.Kill()
}
