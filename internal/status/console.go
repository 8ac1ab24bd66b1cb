// Package status renders per-engine progress on the terminal.
package status

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/ZebulonRouseFrantzich/esvm/internal/installer"
)

var (
	nameColor    = color.New(color.Bold)
	infoColor    = color.New(color.FgCyan)
	warnColor    = color.New(color.FgYellow)
	succeedColor = color.New(color.FgGreen)
	failColor    = color.New(color.FgRed)
)

// Symbols prefixed to each status line.
const (
	SymbolInfo    = "❯"
	SymbolWarn    = "!"
	SymbolSucceed = "✔"
	SymbolFail    = "✖"
)

// redrawInterval throttles progress bar redraws.
const redrawInterval = 100 * time.Millisecond

// Console writes status lines for every engine to one writer. It
// implements installer.Reporter.
type Console struct {
	mu  sync.Mutex
	out io.Writer
	tty bool
}

// New returns a Console writing to out. Progress bars are only drawn when
// tty is true.
func New(out io.Writer, tty bool) *Console {
	return &Console{out: out, tty: tty}
}

// Stdout returns a Console on standard output, drawing progress bars when
// it is a terminal.
func Stdout() *Console {
	return New(color.Output, term.IsTerminal(int(os.Stdout.Fd())))
}

// Engine returns the Status for one engine.
func (c *Console) Engine(name string) installer.Status {
	return &engineStatus{console: c, name: name}
}

// Println writes an unprefixed line.
func (c *Console) Println(a ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, a...)
}

func (c *Console) line(name string, symbol *color.Color, sym, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "%s %s %s\n", nameColor.Sprint(name), symbol.Sprint(sym), msg)
}

type engineStatus struct {
	console *Console
	name    string
}

func (s *engineStatus) Info(msg string) { s.console.line(s.name, infoColor, SymbolInfo, msg) }
func (s *engineStatus) Warn(msg string) { s.console.line(s.name, warnColor, SymbolWarn, msg) }
func (s *engineStatus) Succeed(msg string) {
	s.console.line(s.name, succeedColor, SymbolSucceed, msg)
}
func (s *engineStatus) Fail(msg string) { s.console.line(s.name, failColor, SymbolFail, msg) }

func (s *engineStatus) Progress(total int64) installer.Progress {
	if !s.console.tty {
		return nopProgress{}
	}
	return &bar{
		console: s.console,
		name:    s.name,
		total:   total,
		model:   progress.New(progress.WithDefaultGradient(), progress.WithWidth(30)),
		now:     time.Now,
	}
}

// bar redraws a single terminal line in place.
type bar struct {
	console *Console
	name    string
	total   int64
	model   progress.Model
	now     func() time.Time

	current  int64
	drawn    bool
	lastDraw time.Time
}

func (b *bar) Update(n int64) {
	b.current = n
	if b.drawn && b.now().Sub(b.lastDraw) < redrawInterval && n != b.total {
		return
	}
	b.draw()
}

func (b *bar) Stop() {
	if !b.drawn {
		return
	}
	b.draw()
	b.console.mu.Lock()
	defer b.console.mu.Unlock()
	fmt.Fprintln(b.console.out)
}

func (b *bar) draw() {
	b.console.mu.Lock()
	defer b.console.mu.Unlock()

	b.drawn = true
	b.lastDraw = b.now()
	fmt.Fprintf(b.console.out, "\r%s %s %s", nameColor.Sprint(b.name), infoColor.Sprint(SymbolInfo), b.view())
}

func (b *bar) view() string {
	if b.total <= 0 {
		return FormatBytes(b.current)
	}
	pct := float64(b.current) / float64(b.total)
	if pct > 1 {
		pct = 1
	}
	return fmt.Sprintf("%s %s / %s", b.model.ViewAs(pct), FormatBytes(b.current), FormatBytes(b.total))
}

type nopProgress struct{}

func (nopProgress) Update(int64) {}
func (nopProgress) Stop()        {}

// FormatBytes renders n with a binary unit, e.g. "12.3 MiB".
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
