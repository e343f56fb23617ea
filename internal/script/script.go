// Package script loads and runs user Lua scripts in a sandboxed state.
package script

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"
	"sync"

	libs "github.com/metafates/mangal-lua-libs"
	"github.com/playengine/playengine/filesystem"
	"github.com/playengine/playengine/util"
	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
)

var bytecodeCache sync.Map

type compiled struct {
	proto *lua.FunctionProto
	modTime int64
}

// Meta is the `-- @key value` header of a script.
type Meta struct {
	Name    string
	Pattern string
	Author  string
}

// Script is one loaded Lua file. Its state is not safe for concurrent use;
// callers serialize access with Lock.
type Script struct {
	sync.Mutex

	Path  string
	Meta  Meta
	State *lua.LState
}

// Load compiles path, reusing bytecode while the file is unchanged, and runs its top level
// in a fresh state with the mangal libraries and the http_tls module preloaded.
func Load(path string) (*Script, error) {
	source, err := filesystem.API().ReadFile(path)
	if err != nil {
		return nil, err
	}

	proto, err := compile(path, source)
	if err != nil {
		return nil, err
	}

	state := lua.NewState()
	libs.Preload(state)
	registerTLSClient(state)

	state.Push(state.NewFunctionFromProto(proto))
	if err := state.PCall(0, lua.MultRet, nil); err != nil {
		state.Close()
		return nil, fmt.Errorf("run %s: %w", path, err)
	}

	meta := ParseMeta(source)
	if meta.Name == "" {
		meta.Name = util.FileStem(path)
	}

	return &Script{Path: path, Meta: meta, State: state}, nil
}

func compile(path string, source []byte) (*lua.FunctionProto, error) {
	var modTime int64
	if info, err := filesystem.API().Stat(path); err == nil {
		modTime = info.ModTime().UnixNano()
	}

	if cached, ok := bytecodeCache.Load(path); ok {
		if c := cached.(compiled); c.modTime == modTime {
			return c.proto, nil
		}
	}

	chunk, err := parse.Parse(bytes.NewReader(source), path)
	if err != nil {
		return nil, err
	}

	proto, err := lua.Compile(chunk, path)
	if err != nil {
		return nil, err
	}

	bytecodeCache.Store(path, compiled{proto: proto, modTime: modTime})
	return proto, nil
}

// ParseMeta reads the leading comment block of a script.
func ParseMeta(source []byte) Meta {
	var meta Meta
	scanner := bufio.NewScanner(bytes.NewReader(source))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "--") {
			break
		}

		field, value, ok := strings.Cut(strings.TrimSpace(strings.TrimPrefix(line, "--")), " ")
		if !ok || !strings.HasPrefix(field, "@") {
			continue
		}

		value = strings.TrimSpace(value)
		switch field {
		case "@name":
			meta.Name = value
		case "@pattern":
			meta.Pattern = value
		case "@author":
			meta.Author = value
		}
	}
	return meta
}

// Call runs a global function with protection and returns its first result.
// The caller must hold the lock.
func (s *Script) Call(fn string, args ...lua.LValue) (lua.LValue, error) {
	luaFn := s.State.GetGlobal(fn)
	if luaFn.Type() != lua.LTFunction {
		return nil, fmt.Errorf("function %s is not defined in %s", fn, s.Meta.Name)
	}

	err := s.State.CallByParam(lua.P{
		Fn:      luaFn,
		NRet:    1,
		Protect: true,
	}, args...)
	if err != nil {
		return nil, err
	}

	ret := s.State.Get(-1)
	s.State.Pop(1)
	return ret, nil
}

// Defines reports whether the script declares a global function.
func (s *Script) Defines(fn string) bool {
	return s.State.GetGlobal(fn).Type() == lua.LTFunction
}

func (s *Script) Close() {
	s.Lock()
	defer s.Unlock()
	s.State.Close()
}

// StringField reads a string field of a table, empty if absent.
func StringField(table *lua.LTable, key string) string {
	val := table.RawGetString(key)
	if val.Type() == lua.LTString {
		return val.String()
	}
	return ""
}

// StringMap reads a table of strings keyed by strings.
func StringMap(table *lua.LTable, key string) map[string]string {
	tbl, ok := table.RawGetString(key).(*lua.LTable)
	if !ok {
		return nil
	}

	m := make(map[string]string)
	tbl.ForEach(func(k, v lua.LValue) {
		m[k.String()] = v.String()
	})
	return m
}
