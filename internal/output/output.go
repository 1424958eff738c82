// Package output writes results to the terminal or the clipboard.
package output

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/fatih/color"

	"github.com/mermaidchart/mmdsync/internal/config"
	"github.com/mermaidchart/mmdsync/internal/frontmatter"
	"github.com/mermaidchart/mmdsync/internal/reconcile"
)

// ============================================================================
// Clipboard Interface
// ============================================================================

// Clipboard copies text somewhere the user can paste it from
type Clipboard interface {
	Copy(text string) error
}

// systemClipboard pipes text into the first clipboard tool found in PATH
type systemClipboard struct{}

// ErrNoClipboard is returned when no clipboard tool is installed
var ErrNoClipboard = errors.New("no clipboard tool found (wl-copy, xclip, xsel, pbcopy)")

func (c *systemClipboard) Copy(text string) error {
	cmd := c.findClipboardCommand()
	if cmd == nil {
		return ErrNoClipboard
	}
	cmd.Stdin = strings.NewReader(text)
	return cmd.Run()
}

func (c *systemClipboard) findClipboardCommand() *exec.Cmd {
	switch {
	case commandExists("wl-copy"):
		return exec.Command("wl-copy")
	case commandExists("xclip"):
		return exec.Command("xclip", "-selection", "clipboard")
	case commandExists("xsel"):
		return exec.Command("xsel", "--clipboard", "--input")
	case commandExists("pbcopy"):
		return exec.Command("pbcopy")
	default:
		return nil
	}
}

func commandExists(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// ============================================================================
// Printer
// ============================================================================

// Mode is how a result is delivered
type Mode string

const (
	ModePrint Mode = "print"
	ModeCopy  Mode = "copy"
)

var (
	okColor      = color.New(color.FgGreen, color.Bold)
	warnColor    = color.New(color.FgYellow, color.Bold)
	errColor     = color.New(color.FgRed, color.Bold)
	dimColor     = color.New(color.FgHiBlack)
	currentColor = color.New(color.FgRed)
	remoteColor  = color.New(color.FgGreen)
	markerColor  = color.New(color.FgMagenta, color.Bold)
)

// Printer writes results to out and status lines to errOut
type Printer struct {
	out       io.Writer
	errOut    io.Writer
	clipboard Clipboard
	style     string
}

// NewPrinter creates a printer on stdout/stderr using the configured
// color mode and highlight style
func NewPrinter() *Printer {
	switch config.GetColor() {
	case "always":
		color.NoColor = false
	case "never":
		color.NoColor = true
	}
	return &Printer{
		out:       os.Stdout,
		errOut:    os.Stderr,
		clipboard: &systemClipboard{},
		style:     config.GetHighlightStyle(),
	}
}

// WithClipboard sets a custom clipboard implementation (useful for testing)
func (p *Printer) WithClipboard(c Clipboard) *Printer {
	p.clipboard = c
	return p
}

// WithWriters redirects result and status output
func (p *Printer) WithWriters(out, errOut io.Writer) *Printer {
	p.out = out
	p.errOut = errOut
	return p
}

// Emit delivers text using the configured output mode
func (p *Printer) Emit(text string) error {
	return p.EmitWithMode(text, Mode(config.GetOutput()))
}

// EmitWithMode delivers text with an explicit mode
func (p *Printer) EmitWithMode(text string, mode Mode) error {
	switch mode {
	case ModeCopy:
		if err := p.clipboard.Copy(text); err != nil {
			return fmt.Errorf("copying to clipboard: %w", err)
		}
		p.OK("copied to clipboard")
		return nil
	default: // print
		_, err := fmt.Fprintln(p.out, text)
		return err
	}
}

// OK prints a success status line
func (p *Printer) OK(format string, a ...any) {
	okColor.Fprint(p.errOut, "✓ ")
	fmt.Fprintf(p.errOut, format+"\n", a...)
}

// Warn prints a warning status line
func (p *Printer) Warn(format string, a ...any) {
	warnColor.Fprint(p.errOut, "! ")
	fmt.Fprintf(p.errOut, format+"\n", a...)
}

// Error prints an error status line
func (p *Printer) Error(err error) {
	errColor.Fprint(p.errOut, "✗ ")
	fmt.Fprintln(p.errOut, err)
}

// Field prints an aligned key/value line
func (p *Printer) Field(key string, value any) {
	dimColor.Fprintf(p.out, "%-16s", key+":")
	fmt.Fprintln(p.out, value)
}

// ============================================================================
// Highlighting
// ============================================================================

// Diagram prints diagram text with its frontmatter highlighted as YAML.
// Without color the text is printed unchanged.
func (p *Printer) Diagram(text string) error {
	parts := frontmatter.Split(text)
	if color.NoColor || !parts.Present {
		_, err := fmt.Fprintln(p.out, text)
		return err
	}

	header := text[:len(text)-len(parts.Body)]
	if err := highlight(p.out, header, "yaml", p.style); err != nil {
		fmt.Fprint(p.out, header)
	}
	_, err := fmt.Fprintln(p.out, parts.Body)
	return err
}

func highlight(w io.Writer, source, lexer, style string) error {
	l := lexers.Get(lexer)
	if l == nil {
		l = lexers.Fallback
	}
	l = chroma.Coalesce(l)

	f := formatters.Get("terminal256")
	s := styles.Get(style)

	it, err := l.Tokenise(nil, source)
	if err != nil {
		return err
	}
	return f.Format(w, s, it)
}

// Conflict prints merged text with the two sides of each conflict colored
func (p *Printer) Conflict(text string) {
	side := 0
	for _, line := range strings.Split(text, "\n") {
		marker := strings.TrimSpace(line)
		switch {
		case marker == reconcile.MarkerCurrent:
			side = 1
			markerColor.Fprintln(p.out, line)
		case marker == reconcile.MarkerSeparator && side == 1:
			side = 2
			markerColor.Fprintln(p.out, line)
		case marker == reconcile.MarkerRemote:
			side = 0
			markerColor.Fprintln(p.out, line)
		case side == 1:
			currentColor.Fprintln(p.out, line)
		case side == 2:
			remoteColor.Fprintln(p.out, line)
		default:
			fmt.Fprintln(p.out, line)
		}
	}
}

// Diff prints a unified diff with removed and added lines colored
func (p *Printer) Diff(diff string) {
	for _, line := range strings.SplitAfter(diff, "\n") {
		switch {
		case line == "":
		case strings.HasPrefix(line, "---"), strings.HasPrefix(line, "+++"):
			dimColor.Fprint(p.out, line)
		case strings.HasPrefix(line, "-"):
			currentColor.Fprint(p.out, line)
		case strings.HasPrefix(line, "+"):
			remoteColor.Fprint(p.out, line)
		case strings.HasPrefix(line, "@@"):
			markerColor.Fprint(p.out, line)
		default:
			fmt.Fprint(p.out, line)
		}
	}
}
