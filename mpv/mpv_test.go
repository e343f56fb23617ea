package mpv

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/playengine/playengine/backend"
	"github.com/playengine/playengine/log"
	. "github.com/smartystreets/goconvey/convey"
)

// fakeServer plays the mpv side of a pipe.
type fakeServer struct {
	conn     net.Conn
	requests chan request
	answer   func(request) message
}

func newFakeServer(conn net.Conn, answer func(request) message) *fakeServer {
	s := &fakeServer{conn: conn, requests: make(chan request, 64), answer: answer}
	go func() {
		scanner := bufio.NewScanner(conn)
		for scanner.Scan() {
			var req request
			if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
				continue
			}
			s.requests <- req
			if s.answer != nil {
				reply := s.answer(req)
				reply.RequestID = req.RequestID
				s.write(reply)
			}
		}
	}()
	return s
}

func (s *fakeServer) write(m any) {
	payload, _ := json.Marshal(m)
	_, _ = s.conn.Write(append(payload, '\n'))
}

func (s *fakeServer) next() request {
	select {
	case req := <-s.requests:
		return req
	case <-time.After(2 * time.Second):
		return request{}
	}
}

func receive(ch <-chan backend.Notification) (backend.Notification, bool) {
	select {
	case n, ok := <-ch:
		return n, ok
	case <-time.After(2 * time.Second):
		return backend.Notification{Name: "timeout"}, true
	}
}

func success(request) message {
	return message{Error: "success"}
}

func TestCommands(t *testing.T) {
	Convey("Given an mpv connection", t, func() {
		serverSide, clientSide := net.Pipe()
		server := newFakeServer(serverSide, func(req request) message {
			switch req.Command[0] {
			case "get_property":
				if req.Command[1] == "time-pos" {
					return message{Error: "property unavailable"}
				}
				return message{Error: "success", Data: 42.5}
			case "loadfile":
				return message{Error: "loading failed"}
			default:
				return message{Error: "success"}
			}
		})
		m := attach(clientSide, log.With("test"))
		Reset(func() {
			_ = m.Close()
			_ = serverSide.Close()
		})

		Convey("Get returns the decoded reply", func() {
			v, err := m.Get(context.Background(), "duration")
			So(err, ShouldBeNil)
			So(v, ShouldEqual, 42.5)

			req := server.next()
			So(req.Command, ShouldResemble, []any{"get_property", "duration"})
			So(req.RequestID, ShouldEqual, uint64(1))
		})

		Convey("Unavailable properties are recognizable", func() {
			_, err := m.Get(context.Background(), "time-pos")
			So(errors.Is(err, ErrUnavailable), ShouldBeTrue)
		})

		Convey("A failed command carries the command name", func() {
			_, err := m.Command(context.Background(), backend.CmdLoadFile, "/tmp/x.mkv", "replace")
			var mpvErr *Error
			So(errors.As(err, &mpvErr), ShouldBeTrue)
			So(mpvErr.Command, ShouldEqual, "loadfile")
			So(mpvErr.Message, ShouldEqual, "loading failed")
		})

		Convey("Durations are sent as seconds", func() {
			_, err := m.Command(context.Background(), backend.CmdSeek, 90*time.Second, "absolute")
			So(err, ShouldBeNil)
			So(server.next().Command, ShouldResemble, []any{"seek", 90.0, "absolute"})
		})

		Convey("Observed properties get distinct ids", func() {
			So(m.Observe("pause"), ShouldBeNil)
			So(m.Observe("time-pos"), ShouldBeNil)
			So(server.next().Command, ShouldResemble, []any{"observe_property", 1.0, "pause"})
			So(server.next().Command, ShouldResemble, []any{"observe_property", 2.0, "time-pos"})
		})

		Convey("SetOption does not wait for the reply", func() {
			So(m.SetOption("volume", 50.0), ShouldBeNil)
			So(server.next().Command, ShouldResemble, []any{"set_property", "volume", 50.0})
		})
	})

	Convey("Given a server that never answers", t, func() {
		serverSide, clientSide := net.Pipe()
		newFakeServer(serverSide, nil)
		m := attach(clientSide, log.With("test"))
		Reset(func() {
			_ = m.client.closeConn()
			_ = serverSide.Close()
		})

		Convey("Command honors the context deadline", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()
			_, err := m.Command(ctx, backend.CmdStop)
			So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)

			m.client.mu.Lock()
			pending := len(m.client.pending)
			m.client.mu.Unlock()
			So(pending, ShouldEqual, 0)
		})
	})
}

func TestNotifications(t *testing.T) {
	Convey("Given an mpv connection", t, func() {
		serverSide, clientSide := net.Pipe()
		server := newFakeServer(serverSide, success)
		m := attach(clientSide, log.With("test"))
		Reset(func() {
			_ = m.client.closeConn()
			_ = serverSide.Close()
		})

		Convey("Property changes become property notifications", func() {
			server.write(map[string]any{"event": "property-change", "id": 1, "name": "pause", "data": true})
			n, _ := receive(m.Notifications())
			So(n.Kind, ShouldEqual, backend.Property)
			So(n.Name, ShouldEqual, "pause")
			So(n.Value, ShouldEqual, true)
		})

		Convey("Unavailable properties carry no value", func() {
			server.write(map[string]any{"event": "property-change", "id": 2, "name": "duration"})
			n, _ := receive(m.Notifications())
			So(n.Name, ShouldEqual, "duration")
			So(n.Value, ShouldBeNil)
		})

		Convey("End of file carries its reason", func() {
			server.write(map[string]any{"event": "end-file", "reason": "error", "file_error": "unrecognized file format"})
			server.write(map[string]any{"event": "end-file", "reason": "something-new"})

			n, _ := receive(m.Notifications())
			So(n.Kind, ShouldEqual, backend.Event)
			So(n.Reason, ShouldEqual, backend.EndError)
			So(n.Err, ShouldEqual, "unrecognized file format")

			n, _ = receive(m.Notifications())
			So(n.Reason, ShouldEqual, backend.EndUnknown)
		})

		Convey("Events keep their order while nobody reads", func() {
			for _, name := range []string{"start-file", "file-loaded", "playback-restart"} {
				server.write(map[string]any{"event": name})
			}
			_, err := m.Get(context.Background(), "pause")
			So(err, ShouldBeNil)

			var names []string
			for i := 0; i < 3; i++ {
				n, _ := receive(m.Notifications())
				names = append(names, n.Name)
			}
			So(names, ShouldResemble, []string{"start-file", "file-loaded", "playback-restart"})
		})

		Convey("Losing the connection closes the channel and fails commands", func() {
			server.write(map[string]any{"event": "idle"})
			_ = serverSide.Close()

			n, ok := receive(m.Notifications())
			So(ok, ShouldBeTrue)
			So(n.Name, ShouldEqual, "idle")

			_, ok = receive(m.Notifications())
			So(ok, ShouldBeFalse)

			_, err := m.Get(context.Background(), "pause")
			So(err, ShouldNotBeNil)
		})
	})
}

func TestCommandName(t *testing.T) {
	Convey("Command names used in errors", t, func() {
		So(commandName([]any{"set_property", "volume", 1}), ShouldEqual, "set_property volume")
		So(commandName([]any{"observe_property", 3, "pause"}), ShouldEqual, "observe_property pause")
		So(commandName([]any{"sub-add", "/a.srt"}), ShouldEqual, "sub-add")
		So(commandName(nil), ShouldEqual, "")
	})
}
