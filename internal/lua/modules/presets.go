package modules

import (
	lua "github.com/yuin/gopher-lua"
)

// RegisterFunc receives presets declared by a script.
type RegisterFunc func(name string, fn *lua.LFunction)

// PresetsModule lets scripts declare presets.
//
//	local presets = require("presets")
//	presets.register("Ember", function(i, n, step, h, s, v)
//	  return h + (i % 8), s, v
//	end)
type PresetsModule struct {
	register RegisterFunc
	count    int
	setSize  int
}

// NewPresetsModule creates a presets module. count and setSize are exposed
// to scripts as presets.count and presets.set_size.
func NewPresetsModule(register RegisterFunc, count, setSize int) *PresetsModule {
	return &PresetsModule{register: register, count: count, setSize: setSize}
}

// Loader is the module loader for Lua
func (m *PresetsModule) Loader(L *lua.LState) int {
	mod := L.NewTable()

	L.SetField(mod, "register", L.NewFunction(m.registerPreset))
	L.SetField(mod, "count", lua.LNumber(m.count))
	L.SetField(mod, "set_size", lua.LNumber(m.setSize))

	L.Push(mod)
	return 1
}

func (m *PresetsModule) registerPreset(L *lua.LState) int {
	name := L.CheckString(1)
	fn := L.CheckFunction(2)

	if name == "" {
		L.ArgError(1, "preset name must not be empty")
		return 0
	}

	m.register(name, fn)
	return 0
}
