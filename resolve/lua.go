package resolve

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/playengine/playengine/constant"
	"github.com/playengine/playengine/filesystem"
	"github.com/playengine/playengine/internal/script"
	"github.com/playengine/playengine/log"
	"github.com/playengine/playengine/mrl"
	"github.com/samber/lo"
	lua "github.com/yuin/gopher-lua"
)

// Lua runs user scripts from a directory. Each script defines Resolve(url) returning
// {url = ..., title = ..., headers = {...}} or nil when it does not handle the url.
type Lua struct {
	dir string

	once    sync.Once
	scripts []*script.Script
	errs    []error
}

func NewLua(dir string) *Lua {
	return &Lua{dir: dir}
}

func (*Lua) Name() string { return "lua" }

// Scripts loads the directory on first use and returns the scripts in name order.
func (l *Lua) Scripts() []*script.Script {
	l.once.Do(l.load)
	return l.scripts
}

// Errors lists scripts that failed to load.
func (l *Lua) Errors() []error {
	l.once.Do(l.load)
	return l.errs
}

func (l *Lua) load() {
	logger := log.With("resolve")

	entries, err := filesystem.API().ReadDir(l.dir)
	if err != nil {
		return
	}

	names := lo.FilterMap(entries, func(info os.FileInfo, _ int) (string, bool) {
		return info.Name(), info.Mode().IsRegular() && strings.EqualFold(filepath.Ext(info.Name()), ".lua")
	})
	sort.Strings(names)

	for _, name := range names {
		path := filepath.Join(l.dir, name)
		s, err := script.Load(path)
		if err == nil && !s.Defines(constant.ResolveFn) {
			s.Close()
			err = fmt.Errorf("function %s is required but not defined", constant.ResolveFn)
		}
		if err != nil {
			logger.WithError(err).WithField("script", path).Warn("skipping resolver script")
			l.errs = append(l.errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		l.scripts = append(l.scripts, s)
	}
}

func matches(s *script.Script, loc mrl.Locator) bool {
	return s.Meta.Pattern == "" || strings.Contains(loc.String(), s.Meta.Pattern)
}

func (l *Lua) Supports(loc mrl.Locator) bool {
	if !loc.IsStream() {
		return false
	}
	return lo.SomeBy(l.Scripts(), func(s *script.Script) bool { return matches(s, loc) })
}

func (l *Lua) Resolve(ctx context.Context, loc mrl.Locator) (mrl.Locator, error) {
	var errs []error
	for _, s := range l.Scripts() {
		if !matches(s, loc) {
			continue
		}

		out, ok, err := l.call(ctx, s, loc)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Meta.Name, err))
			continue
		}
		if ok {
			return out, nil
		}
	}

	if len(errs) > 0 {
		return mrl.Locator{}, errors.Join(errs...)
	}
	return mrl.Locator{}, ErrUnsupported
}

func (l *Lua) call(ctx context.Context, s *script.Script, loc mrl.Locator) (mrl.Locator, bool, error) {
	s.Lock()
	defer s.Unlock()

	s.State.SetContext(ctx)
	defer s.State.RemoveContext()

	ret, err := s.Call(constant.ResolveFn, lua.LString(loc.String()))
	if err != nil {
		return mrl.Locator{}, false, err
	}

	switch ret.Type() {
	case lua.LTNil:
		return mrl.Locator{}, false, nil
	case lua.LTString:
		out, err := mrl.Parse(ret.String())
		return out.WithName(loc.Label()), err == nil, err
	case lua.LTTable:
	default:
		return mrl.Locator{}, false, fmt.Errorf("%s returned %s, expected table", constant.ResolveFn, ret.Type())
	}

	tbl := ret.(*lua.LTable)
	url := script.StringField(tbl, "url")
	if url == "" {
		return mrl.Locator{}, false, errors.New("resolved media must have url")
	}

	out, err := mrl.Parse(url)
	if err != nil {
		return mrl.Locator{}, false, err
	}

	title := script.StringField(tbl, "title")
	if title == "" {
		title = loc.Label()
	}
	return out.WithName(title).WithHeaders(script.StringMap(tbl, "headers")), true, nil
}

func (l *Lua) Close() {
	for _, s := range l.scripts {
		s.Close()
	}
}
