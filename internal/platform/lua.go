package platform

import (
	lua "github.com/yuin/gopher-lua"
)

// InjectPlatformTable exposes info to configuration code as a read-only
// global named "platform". Call it before loading user configuration.
func InjectPlatformTable(L *lua.LState, info *Info) error {
	fields := map[string]lua.LValue{
		"os":         lua.LString(info.OS),
		"arch":       lua.LString(info.Arch),
		"arch_raw":   lua.LString(info.ArchRaw),
		"token":      lua.LString(info.Token()),
		"is_linux":   lua.LBool(info.IsLinux()),
		"is_macos":   lua.LBool(info.IsMacOS()),
		"is_windows": lua.LBool(info.IsWindows()),
		"distro":     distroValue(L, info),
		"when":       L.NewFunction(luaWhen),
	}

	tbl := L.NewTable()
	for k, v := range fields {
		tbl.RawSetString(k, v)
	}
	L.SetGlobal("platform", readOnly(L, "platform", tbl))
	return nil
}

// distroValue is nil off Linux or when the distribution is unknown.
func distroValue(L *lua.LState, info *Info) lua.LValue {
	if !info.IsLinux() || info.Platform == "" {
		return lua.LNil
	}
	d := L.NewTable()
	d.RawSetString("id", lua.LString(info.Platform))
	d.RawSetString("family", lua.LString(info.Family))
	d.RawSetString("version", lua.LString(info.Version))
	return d
}

// luaWhen implements platform.when(cond, value): value if cond, else nil.
func luaWhen(L *lua.LState) int {
	if L.CheckBool(1) {
		L.Push(L.Get(2))
	} else {
		L.Push(lua.LNil)
	}
	return 1
}

// readOnly wraps tbl in an empty proxy whose metatable forwards reads and
// rejects writes. Nested tables stay writable through the proxy; only the
// top-level keys are protected.
func readOnly(L *lua.LState, name string, tbl *lua.LTable) *lua.LTable {
	mt := L.NewTable()
	mt.RawSetString("__index", tbl)
	mt.RawSetString("__newindex", L.NewFunction(func(L *lua.LState) int {
		L.RaiseError("%s table is read-only and cannot be modified", name)
		return 0
	}))
	mt.RawSetString("__metatable", lua.LString("protected"))

	proxy := L.NewTable()
	L.SetMetatable(proxy, mt)
	return proxy
}
