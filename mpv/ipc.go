package mpv

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/playengine/playengine/backend"
	"github.com/sirupsen/logrus"
)

// ErrUnavailable is wrapped by errors for properties that have no value right now,
// e.g. time-pos with nothing loaded.
var ErrUnavailable = errors.New("property unavailable")

// Error is a failed reply to a command.
type Error struct {
	Command string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("mpv %s: %s", e.Command, e.Message)
}

func (e *Error) Unwrap() error {
	if e.Message == ErrUnavailable.Error() {
		return ErrUnavailable
	}
	return nil
}

// request is one newline-delimited JSON command.
type request struct {
	Command   []any  `json:"command"`
	RequestID uint64 `json:"request_id"`
}

// message is anything mpv writes back: a reply carries request_id and error,
// an event carries event and its own fields.
type message struct {
	Event     string `json:"event,omitempty"`
	Name      string `json:"name,omitempty"`
	Data      any    `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
	RequestID uint64 `json:"request_id,omitempty"`
	Reason    string `json:"reason,omitempty"`
	FileError string `json:"file_error,omitempty"`
}

type reply func(message)

// client speaks the JSON IPC protocol over one persistent connection.
// Replies are matched to requests by request_id; events are queued without bound
// and handed to the notifications channel in arrival order.
type client struct {
	conn   net.Conn
	logger *logrus.Entry

	writeMu sync.Mutex

	mu      sync.Mutex
	nextID  uint64
	pending map[uint64]reply
	queue   []backend.Notification
	err     error

	wake  chan struct{}
	stop  chan struct{}
	done  chan struct{}
	out   chan backend.Notification
	close sync.Once
}

func newClient(conn net.Conn, logger *logrus.Entry) *client {
	c := &client{
		conn:    conn,
		logger:  logger,
		pending: make(map[uint64]reply),
		wake:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
		out:     make(chan backend.Notification),
	}
	go c.readLoop()
	go c.pump()
	return c
}

func (c *client) notifications() <-chan backend.Notification {
	return c.out
}

// call sends a command and waits for its reply.
func (c *client) call(ctx context.Context, args ...any) (any, error) {
	ch := make(chan message, 1)
	id, err := c.send(args, func(m message) { ch <- m })
	if err != nil {
		return nil, err
	}

	select {
	case m := <-ch:
		if m.Error != "" && m.Error != "success" {
			return nil, &Error{Command: commandName(args), Message: m.Error}
		}
		return m.Data, nil
	case <-ctx.Done():
		c.forget(id)
		return nil, ctx.Err()
	case <-c.done:
		c.forget(id)
		return nil, backend.ErrClosed
	}
}

// post sends a command without waiting. A failed reply is logged.
func (c *client) post(args ...any) error {
	_, err := c.send(args, func(m message) {
		if m.Error != "" && m.Error != "success" {
			c.logger.WithField("command", commandName(args)).Warn(m.Error)
		}
	})
	return err
}

func (c *client) send(args []any, onReply reply) (uint64, error) {
	c.mu.Lock()
	if c.err != nil {
		c.mu.Unlock()
		return 0, backend.ErrClosed
	}
	c.nextID++
	id := c.nextID
	c.pending[id] = onReply
	c.mu.Unlock()

	payload, err := json.Marshal(request{Command: args, RequestID: id})
	if err != nil {
		c.forget(id)
		return 0, fmt.Errorf("marshal %s: %w", commandName(args), err)
	}

	c.writeMu.Lock()
	_, err = c.conn.Write(append(payload, '\n'))
	c.writeMu.Unlock()
	if err != nil {
		c.forget(id)
		return 0, fmt.Errorf("write %s: %w", commandName(args), err)
	}

	c.logger.Tracef("-> %s", payload)
	return id, nil
}

func (c *client) forget(id uint64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *client) readLoop() {
	scanner := bufio.NewScanner(c.conn)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var m message
		if err := json.Unmarshal(line, &m); err != nil {
			c.logger.WithError(err).Warn("unparseable message")
			continue
		}
		c.logger.Tracef("<- %s", line)
		c.dispatch(m)
	}

	err := scanner.Err()
	if err == nil {
		err = backend.ErrClosed
	}
	c.shutdown(err)
}

func (c *client) dispatch(m message) {
	if m.Event == "" {
		c.mu.Lock()
		onReply, ok := c.pending[m.RequestID]
		delete(c.pending, m.RequestID)
		c.mu.Unlock()

		if ok {
			onReply(m)
		}
		return
	}

	c.mu.Lock()
	c.queue = append(c.queue, notification(m))
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// pump forwards queued notifications and closes the channel once the connection
// is gone and the queue is drained.
func (c *client) pump() {
	defer close(c.out)

	for {
		c.mu.Lock()
		batch := c.queue
		c.queue = nil
		finished := c.err != nil
		c.mu.Unlock()

		for _, n := range batch {
			select {
			case c.out <- n:
			case <-c.stop:
				return
			}
		}

		if len(batch) > 0 {
			continue
		}
		if finished {
			return
		}

		select {
		case <-c.wake:
		case <-c.done:
		case <-c.stop:
			return
		}
	}
}

func (c *client) shutdown(err error) {
	c.mu.Lock()
	if c.err != nil {
		c.mu.Unlock()
		return
	}
	c.err = err
	c.pending = make(map[uint64]reply)
	c.mu.Unlock()

	close(c.done)
	if !errors.Is(err, backend.ErrClosed) {
		c.logger.WithError(err).Warn("connection lost")
	}
}

// closeConn drops the connection and stops delivering notifications.
func (c *client) closeConn() error {
	var err error
	c.close.Do(func() {
		close(c.stop)
		err = c.conn.Close()
	})
	return err
}

func notification(m message) backend.Notification {
	if m.Event == "property-change" {
		return backend.Notification{Kind: backend.Property, Name: m.Name, Value: m.Data}
	}

	n := backend.Notification{Kind: backend.Event, Name: m.Event}
	if m.Event == backend.EventEndFile {
		n.Reason = endReason(m.Reason)
		n.Err = m.FileError
	}
	return n
}

func endReason(reason string) backend.EndReason {
	switch r := backend.EndReason(reason); r {
	case backend.EndEOF, backend.EndStop, backend.EndQuit, backend.EndError, backend.EndRedirect:
		return r
	default:
		return backend.EndUnknown
	}
}

func commandName(args []any) string {
	if len(args) == 0 {
		return ""
	}
	name := fmt.Sprint(args[0])
	switch {
	case (name == "set_property" || name == "get_property") && len(args) > 1:
		return fmt.Sprintf("%s %v", name, args[1])
	case name == "observe_property" && len(args) > 2:
		return fmt.Sprintf("%s %v", name, args[2])
	}
	return name
}
