package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/playengine/playengine/engine"
	"github.com/playengine/playengine/history"
	"github.com/playengine/playengine/icon"
	"github.com/playengine/playengine/log"
	"github.com/playengine/playengine/mpv"
	"github.com/playengine/playengine/mrl"
	"github.com/playengine/playengine/resolve"
	"github.com/playengine/playengine/style"
	"github.com/playengine/playengine/tui"
)

type playOptions struct {
	ExitOnEnd bool
	Headless  bool
	SeekStep  float64
}

func play(parent context.Context, raw string, options playOptions) error {
	loc, err := mrl.Parse(raw)
	if err != nil {
		return err
	}

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt)
	defer stop()

	opts, err := engine.OptionsFromConfig()
	if err != nil {
		return err
	}

	resolver := resolve.FromConfig()
	defer resolver.Close()

	opts.Resolver = resolver
	opts.History = history.Store{}
	opts.Presentation = engine.NewMirror()

	backend, err := mpv.Spawn(ctx, mpv.FromConfig())
	if err != nil {
		return err
	}

	e := engine.New(backend, opts)
	defer func() {
		if err := e.Close(); err != nil {
			log.With("cmd").WithError(err).Warn("closing engine")
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	running := make(chan error, 1)
	go func() { running <- e.Run(ctx) }()

	// A window closed by the user ends the session.
	go func() {
		select {
		case <-backend.Exited():
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := e.Load(ctx, loc); err != nil {
		return err
	}

	if options.Headless {
		err = monitor(ctx, e, options.ExitOnEnd)
	} else {
		err = tui.Run(e, &tui.Options{ExitOnEnd: options.ExitOnEnd, SeekStep: options.SeekStep})
	}
	if err != nil {
		return err
	}

	if status := e.Status(); status.State == engine.Error && status.Err != nil {
		return status.Err
	}

	cancel()
	if err := <-running; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// monitor prints a line per state change until playback ends or ctx is done.
func monitor(ctx context.Context, e *engine.Engine, exitOnEnd bool) error {
	updates, unsubscribe := e.Subscribe()
	defer unsubscribe()

	var (
		last    engine.State = -1
		started bool
	)
	for {
		select {
		case <-ctx.Done():
			return nil
		case status, ok := <-updates:
			if !ok {
				return nil
			}
			if status.State == last {
				continue
			}
			last = status.State

			switch status.State {
			case engine.Playing:
				started = true
				fmt.Printf("%s %s\n", icon.Get(icon.Play), style.Bold(status.Name()))
			case engine.Paused:
				fmt.Printf("%s paused\n", icon.Get(icon.Pause))
			case engine.Stopped:
				fmt.Printf("%s stopped\n", icon.Get(icon.Stop))
			case engine.Error:
				fmt.Printf("%s %v\n", icon.Get(icon.Fail), status.Err)
			}

			if status.State == engine.Error || (exitOnEnd && started && status.State == engine.Stopped) {
				return nil
			}
		}
	}
}
