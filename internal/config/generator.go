package config

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Generator generates Lua configuration code from a Config.
type Generator struct {
	indent string
	now    func() time.Time
}

// NewGenerator creates a new Lua config generator.
func NewGenerator() *Generator {
	return &Generator{indent: "  ", now: time.Now}
}

// Generate renders config as a config.lua the parser reads back into an
// equal Config. The GitHub token is never written; a comment points at
// GITHUB_TOKEN instead.
func (g *Generator) Generate(config *Config) string {
	var buf bytes.Buffer

	buf.WriteString("-- esvm configuration\n")
	buf.WriteString("-- Generated: ")
	buf.WriteString(g.now().Format(time.RFC3339))
	buf.WriteString("\n\n")

	buf.WriteString(luaGlobalESVM + " = {\n")

	buf.WriteString(g.indent + "-- selected when no status.json exists yet\n")
	buf.WriteString(g.indent + luaFieldEngines + " = {\n")
	for _, e := range config.Engines {
		buf.WriteString(g.indent + g.indent)
		buf.WriteString(g.quoteLuaString(e))
		buf.WriteString(",\n")
	}
	buf.WriteString(g.indent + "},\n\n")

	buf.WriteString(g.indent + luaFieldDownload + " = {\n")
	fmt.Fprintf(&buf, "%s%s%s = %d,\n", g.indent, g.indent, luaFieldRetries, config.Download.Retries)
	fmt.Fprintf(&buf, "%s%s%s = %s, -- seconds\n", g.indent, g.indent, luaFieldTimeout, formatSeconds(config.Download.Timeout))
	buf.WriteString(g.indent + "},\n\n")

	fmt.Fprintf(&buf, "%s-- %s = \"...\", -- prefer the %s environment variable\n", g.indent, luaFieldGitHubToken, EnvGitHubToken)
	buf.WriteString("}\n")

	return buf.String()
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}

// quoteLuaString quotes a string for Lua, handling special characters.
func (g *Generator) quoteLuaString(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\") // Escape backslashes first
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, "\r", "\\r")
	s = strings.ReplaceAll(s, "\t", "\\t")
	return "\"" + s + "\""
}
