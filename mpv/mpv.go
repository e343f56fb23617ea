// Package mpv drives an mpv process over its JSON IPC protocol.
package mpv

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/playengine/playengine/backend"
	"github.com/playengine/playengine/key"
	"github.com/playengine/playengine/log"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	socketWaitDelay = 100 * time.Millisecond
	quitTimeout     = 3 * time.Second
	killTimeout     = time.Second
)

// Options locate and parameterize the mpv executable.
type Options struct {
	Path string
	Args []string
	// Hwdec is the hardware decoding mode passed on start, empty to leave mpv's default.
	Hwdec string
	// SocketTimeout bounds how long Spawn waits for the IPC socket.
	SocketTimeout time.Duration
}

// FromConfig reads Options from the configuration registry.
func FromConfig() Options {
	return Options{
		Path:          viper.GetString(key.PlayerPath),
		Args:          viper.GetStringSlice(key.PlayerArgs),
		Hwdec:         viper.GetString(key.PlayerHwdec),
		SocketTimeout: time.Duration(viper.GetInt(key.PlayerTimeout)) * time.Second,
	}
}

// MPV is a backend.Backend backed by one mpv process.
type MPV struct {
	socket string
	cmd    *exec.Cmd
	exited chan struct{}
	client *client
	logger *logrus.Entry

	observed atomic.Int64
	once     sync.Once
}

var _ backend.Backend = (*MPV)(nil)

// Spawn starts an idle mpv and connects to its IPC socket.
func Spawn(ctx context.Context, opts Options) (*MPV, error) {
	if opts.Path == "" {
		opts.Path = "mpv"
	}
	if opts.SocketTimeout <= 0 {
		opts.SocketTimeout = 5 * time.Second
	}

	id := make([]byte, 4)
	if _, err := rand.Read(id); err != nil {
		return nil, fmt.Errorf("generate socket name: %w", err)
	}
	socket := socketPath(fmt.Sprintf("%x", id))

	args := []string{
		"--idle=yes",
		"--no-terminal",
		"--really-quiet",
		"--force-window=yes",
		"--input-ipc-server=" + socket,
	}
	if opts.Hwdec != "" {
		args = append(args, "--hwdec="+opts.Hwdec)
	}
	args = append(args, opts.Args...)

	cmd := exec.Command(opts.Path, args...)
	cmd.SysProcAttr = sysProcAttr()
	cmd.Stdin, cmd.Stdout, cmd.Stderr = nil, nil, nil

	logger := log.With("mpv")
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", opts.Path, err)
	}
	logger.WithField("pid", cmd.Process.Pid).Info("started")

	exited := make(chan struct{})
	go func() {
		err := cmd.Wait()
		logger.WithError(err).Info("exited")
		close(exited)
	}()

	waitCtx, cancel := context.WithTimeout(ctx, opts.SocketTimeout)
	defer cancel()

	conn, err := waitForSocket(waitCtx, socket, exited)
	if err != nil {
		select {
		case <-exited:
		default:
			logger.Warn("killing mpv: socket never became ready")
			_ = killProcess(cmd)
		}
		removeSocket(socket)
		return nil, fmt.Errorf("mpv socket not ready: %w", err)
	}

	m := attach(conn, logger)
	m.socket = socket
	m.cmd = cmd
	m.exited = exited
	return m, nil
}

// attach wraps an established IPC connection with no process behind it.
func attach(conn net.Conn, logger *logrus.Entry) *MPV {
	exited := make(chan struct{})
	close(exited)
	return &MPV{
		exited: exited,
		client: newClient(conn, logger),
		logger: logger,
	}
}

func waitForSocket(ctx context.Context, socket string, exited <-chan struct{}) (net.Conn, error) {
	for {
		select {
		case <-exited:
			return nil, errors.New("mpv exited before the socket was ready")
		default:
		}

		conn, err := dial(ctx, socket)
		if err == nil {
			return conn, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%s: %w", socket, ctx.Err())
		case <-exited:
			return nil, errors.New("mpv exited before the socket was ready")
		case <-time.After(socketWaitDelay):
		}
	}
}

// Socket returns the IPC endpoint.
func (m *MPV) Socket() string {
	return m.socket
}

// Exited is closed once the process is gone.
func (m *MPV) Exited() <-chan struct{} {
	return m.exited
}

func (m *MPV) SetOption(name string, value any) error {
	return m.client.post("set_property", name, value)
}

func (m *MPV) Command(ctx context.Context, name string, args ...any) (any, error) {
	return m.client.call(ctx, command(name, args)...)
}

func (m *MPV) CommandAsync(name string, args ...any) error {
	return m.client.post(command(name, args)...)
}

func (m *MPV) Get(ctx context.Context, name string) (any, error) {
	return m.client.call(ctx, "get_property", name)
}

func (m *MPV) Observe(name string) error {
	return m.client.post("observe_property", m.observed.Add(1), name)
}

func (m *MPV) Notifications() <-chan backend.Notification {
	return m.client.notifications()
}

// Close asks mpv to quit, escalating to signals when it lingers, and removes the socket.
func (m *MPV) Close() error {
	var err error
	m.once.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), killTimeout)
		_, _ = m.client.call(ctx, backend.CmdQuit)
		cancel()

		if m.cmd != nil {
			select {
			case <-m.exited:
			case <-time.After(quitTimeout):
				m.logger.Warn("mpv ignored quit, terminating")
				_ = interruptProcess(m.cmd)
				select {
				case <-m.exited:
				case <-time.After(killTimeout):
					_ = killProcess(m.cmd)
				}
			}
		}

		err = m.client.closeConn()
		if m.socket != "" {
			removeSocket(m.socket)
		}
	})
	return err
}

func command(name string, args []any) []any {
	return append([]any{name}, lo.Map(args, func(a any, _ int) any {
		if d, ok := a.(time.Duration); ok {
			return d.Seconds()
		}
		return a
	})...)
}
