//go:build !windows

package mpv

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"

	"github.com/playengine/playengine/where"
)

func socketPath(id string) string {
	return filepath.Join(where.Temp(), fmt.Sprintf("mpv-%s.sock", id))
}

func dial(ctx context.Context, path string) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "unix", path)
}

func removeSocket(path string) {
	_ = os.Remove(path)
}

// sysProcAttr puts mpv in its own process group so terminal signals aimed at us skip it.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		Setpgid: true,
	}
}

func signalGroup(cmd *exec.Cmd, sig syscall.Signal) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	return syscall.Kill(-cmd.Process.Pid, sig)
}

// interruptProcess asks the process group to terminate.
func interruptProcess(cmd *exec.Cmd) error {
	return signalGroup(cmd, syscall.SIGTERM)
}

// killProcess kills the whole process group.
func killProcess(cmd *exec.Cmd) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	_ = signalGroup(cmd, syscall.SIGKILL)
	return cmd.Process.Kill()
}
