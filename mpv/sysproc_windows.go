//go:build windows

package mpv

import (
	"context"
	"fmt"
	"net"
	"os/exec"
	"syscall"
	"time"

	"github.com/playengine/playengine/constant"
	"gopkg.in/natefinch/npipe.v2"
)

func socketPath(id string) string {
	return fmt.Sprintf(`\\.\pipe\%s-mpv-%s`, constant.App, id)
}

func dial(ctx context.Context, path string) (net.Conn, error) {
	timeout := socketWaitDelay
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	conn, err := npipe.DialTimeout(path, timeout)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// removeSocket is a no-op: named pipes vanish with their server.
func removeSocket(string) {}

func sysProcAttr() *syscall.SysProcAttr {
	return nil
}

// interruptProcess has no gentle form on Windows.
func interruptProcess(cmd *exec.Cmd) error {
	return killProcess(cmd)
}

func killProcess(cmd *exec.Cmd) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}
