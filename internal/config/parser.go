package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/ZebulonRouseFrantzich/esvm/internal/platform"
)

// Parser represents a Lua config parser with platform detection.
type Parser struct {
	detector platform.Detector
}

// NewParser creates a new config parser with the given platform detector.
// A nil detector leaves the platform table undefined.
func NewParser(detector platform.Detector) *Parser {
	return &Parser{detector: detector}
}

// Load parses the config file at path. A missing file yields Default().
func (p *Parser) Load(ctx context.Context, path string) (*Config, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxConfigSize+1))
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > MaxConfigSize {
		return nil, &ParseError{
			Message: "config file too large",
			Detail:  fmt.Sprintf("%s exceeds %d bytes", path, MaxConfigSize),
		}
	}
	return p.ParseString(ctx, string(data))
}

// ParseString parses a Lua config from a string.
func (p *Parser) ParseString(ctx context.Context, luaCode string) (*Config, error) {
	L := newSandboxedVM()
	defer L.Close()

	ctx, cancel := context.WithTimeout(ctx, ParseTimeout)
	defer cancel()
	L.SetContext(ctx)

	if p.detector != nil {
		info, err := p.detector.Detect(ctx)
		if err != nil {
			return nil, fmt.Errorf("platform detection failed: %w", err)
		}
		if err := platform.InjectPlatformTable(L, info); err != nil {
			return nil, fmt.Errorf("inject platform table: %w", err)
		}
	}

	if err := L.DoString(luaCode); err != nil {
		if ctx.Err() != nil {
			return nil, &ParseError{Message: "config evaluation timed out", Detail: err.Error()}
		}
		return nil, &ParseError{
			Message: "Lua syntax error",
			Detail:  err.Error(),
		}
	}

	return extractConfig(L)
}

// ParseError represents a config parsing error with friendly message.
type ParseError struct {
	Message string // User-friendly message
	Detail  string // Technical details (raw Lua error)
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Message, e.Detail)
}

// extractConfig reads the global esvm table. Absent fields keep their
// defaults.
func extractConfig(L *lua.LState) (*Config, error) {
	root := L.GetGlobal(luaGlobalESVM)
	if root.Type() != lua.LTTable {
		return nil, &ParseError{
			Message: "missing or invalid 'esvm' table",
			Detail:  fmt.Sprintf("expected table, got %s", root.Type()),
		}
	}
	table := root.(*lua.LTable)
	config := Default()

	switch v := table.RawGetString(luaFieldEngines); v.Type() {
	case lua.LTTable:
		config.Engines = extractStrings(v.(*lua.LTable))
	case lua.LTNil:
	default:
		return nil, fieldTypeError(luaFieldEngines, "table", v)
	}

	switch v := table.RawGetString(luaFieldDownload); v.Type() {
	case lua.LTTable:
		if err := extractDownload(v.(*lua.LTable), &config.Download); err != nil {
			return nil, err
		}
	case lua.LTNil:
	default:
		return nil, fieldTypeError(luaFieldDownload, "table", v)
	}

	switch v := table.RawGetString(luaFieldGitHubToken); v.Type() {
	case lua.LTString:
		config.GitHubToken = strings.TrimSpace(v.String())
	case lua.LTNil:
	default:
		return nil, fieldTypeError(luaFieldGitHubToken, "string", v)
	}

	if err := config.Validate(); err != nil {
		return nil, &ParseError{
			Message: "config validation failed",
			Detail:  err.Error(),
		}
	}
	return config, nil
}

// extractStrings collects the string elements of an array table. nil holes
// left by platform.when are skipped.
func extractStrings(table *lua.LTable) []string {
	var out []string
	table.ForEach(func(_, value lua.LValue) {
		if value.Type() == lua.LTString {
			out = append(out, value.String())
		}
	})
	return out
}

func extractDownload(table *lua.LTable, d *Download) error {
	if v := table.RawGetString(luaFieldRetries); v.Type() != lua.LTNil {
		n, ok := v.(lua.LNumber)
		if !ok || float64(n) != math.Trunc(float64(n)) {
			return fieldTypeError("download."+luaFieldRetries, "integer", v)
		}
		d.Retries = int(n)
	}
	if v := table.RawGetString(luaFieldTimeout); v.Type() != lua.LTNil {
		n, ok := v.(lua.LNumber)
		if !ok {
			return fieldTypeError("download."+luaFieldTimeout, "number", v)
		}
		d.Timeout = time.Duration(float64(n) * float64(time.Second))
	}
	return nil
}

func fieldTypeError(field, want string, got lua.LValue) error {
	return &ParseError{
		Message: fmt.Sprintf("invalid '%s' field", field),
		Detail:  fmt.Sprintf("expected %s, got %s", want, got.Type()),
	}
}

// FormatError formats a ParseError for user display.
// In verbose mode, show the raw Lua error. Otherwise, show friendly message.
func FormatError(err error, verbose bool) string {
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		if verbose {
			return fmt.Sprintf("%s\n\nDetails:\n%s", parseErr.Message, parseErr.Detail)
		}
		detail := parseErr.Detail
		if idx := strings.Index(detail, "stack traceback"); idx > 0 {
			detail = strings.TrimSpace(detail[:idx])
		}
		return fmt.Sprintf("%s: %s", parseErr.Message, detail)
	}
	return err.Error()
}
