package plugin

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
)

// DefaultLuaTimeout bounds one run of a Lua transform.
const DefaultLuaTimeout = 2 * time.Second

const luaEntryPoint = "transform"

// NewLuaTransform compiles script into a transform plugin. The script must
// define a global function transform(source, config) returning the new
// source as a string. Each run gets a fresh state with only the base, table,
// string and math libraries.
func NewLuaTransform(id, script string) (Plugin, error) {
	chunk, err := parse.Parse(strings.NewReader(script), id)
	if err != nil {
		return Plugin{}, fmt.Errorf("%w: lua transform %q: %w", ErrInvalidPlugin, id, err)
	}
	proto, err := lua.Compile(chunk, id)
	if err != nil {
		return Plugin{}, fmt.Errorf("%w: lua transform %q: %w", ErrInvalidPlugin, id, err)
	}

	// Load once so a missing entry point is reported at registration.
	L := newSandbox()
	defer L.Close()
	if err := load(L, proto); err != nil {
		return Plugin{}, fmt.Errorf("%w: lua transform %q: %w", ErrInvalidPlugin, id, err)
	}

	return Plugin{
		ID:          id,
		Name:        id,
		Description: "Lua source transform",
		Payload: Transform{Apply: func(source []byte, cfg Config) ([]byte, error) {
			return runLua(proto, source, cfg)
		}},
	}, nil
}

func runLua(proto *lua.FunctionProto, source []byte, cfg Config) ([]byte, error) {
	L := newSandbox()
	defer L.Close()

	ctx, cancel := context.WithTimeout(context.Background(), DefaultLuaTimeout)
	defer cancel()
	L.SetContext(ctx)

	if err := load(L, proto); err != nil {
		return nil, err
	}
	err := L.CallByParam(lua.P{
		Fn:      L.GetGlobal(luaEntryPoint),
		NRet:    1,
		Protect: true,
	}, lua.LString(source), toLua(L, map[string]any(cfg)))
	if err != nil {
		return nil, fmt.Errorf("lua transform: %w", err)
	}
	ret := L.Get(-1)
	L.Pop(1)
	s, ok := ret.(lua.LString)
	if !ok {
		return nil, fmt.Errorf("lua transform returned %s, want string", ret.Type())
	}
	return []byte(s), nil
}

func newSandbox() *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require", "module"} {
		L.SetGlobal(name, lua.LNil)
	}
	return L
}

func load(L *lua.LState, proto *lua.FunctionProto) error {
	L.Push(L.NewFunctionFromProto(proto))
	if err := L.PCall(0, lua.MultRet, nil); err != nil {
		return err
	}
	if fn := L.GetGlobal(luaEntryPoint); fn.Type() != lua.LTFunction {
		return fmt.Errorf("global %q is %s, want function", luaEntryPoint, fn.Type())
	}
	return nil
}

func toLua(L *lua.LState, v any) lua.LValue {
	switch t := v.(type) {
	case nil:
		return lua.LNil
	case string:
		return lua.LString(t)
	case bool:
		return lua.LBool(t)
	case int:
		return lua.LNumber(t)
	case int64:
		return lua.LNumber(t)
	case float64:
		return lua.LNumber(t)
	case Config:
		return toLua(L, map[string]any(t))
	case map[string]any:
		tbl := L.NewTable()
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			tbl.RawSetString(k, toLua(L, t[k]))
		}
		return tbl
	case []any:
		tbl := L.NewTable()
		for _, e := range t {
			tbl.Append(toLua(L, e))
		}
		return tbl
	case []string:
		tbl := L.NewTable()
		for _, e := range t {
			tbl.Append(lua.LString(e))
		}
		return tbl
	default:
		return lua.LString(fmt.Sprint(t))
	}
}
