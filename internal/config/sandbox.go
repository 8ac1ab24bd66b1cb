package config

import (
	lua "github.com/yuin/gopher-lua"
)

// sandboxLibs are the only standard libraries opened in a config VM.
var sandboxLibs = []struct {
	name string
	open lua.LGFunction
}{
	{lua.BaseLibName, lua.OpenBase},
	{lua.TabLibName, lua.OpenTable},
	{lua.StringLibName, lua.OpenString},
	{lua.MathLibName, lua.OpenMath},
}

// sandboxRemoved are base library functions that load code or reach
// outside the VM.
var sandboxRemoved = []string{
	"require", "module",
	"dofile", "loadfile", "load", "loadstring",
	"collectgarbage",
	"getfenv", "setfenv",
	"rawset", "rawget", "setmetatable", "getmetatable",
}

// newSandboxedVM returns a Lua state with only the safe libraries loaded.
// os, io, debug and package are never opened.
func newSandboxedVM() *lua.LState {
	L := lua.NewState(lua.Options{
		SkipOpenLibs:  true,
		CallStackSize: luaCallStackSize,
		RegistrySize:  luaRegistrySize,
	})
	for _, lib := range sandboxLibs {
		L.Push(L.NewFunction(lib.open))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}
	for _, name := range sandboxRemoved {
		L.SetGlobal(name, lua.LNil)
	}
	return L
}
