// Package printer writes human-facing command output. Styling is applied
// only when the output is a terminal.
package printer

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"golang.org/x/term"

	"github.com/colonyops/backlog/internal/core/notify"
)

// Printer writes styled messages to an output and an error stream.
type Printer struct {
	out    io.Writer
	errOut io.Writer
	styled bool
	st     styles
}

var _ notify.Notifier = (*Printer)(nil)

// New returns a printer that styles output when out is a terminal.
func New(out, errOut io.Writer) *Printer {
	return &Printer{
		out:    out,
		errOut: errOut,
		styled: isTerminal(out),
		st:     newStyles(),
	}
}

// NewPlain returns a printer that never styles output.
func NewPlain(out, errOut io.Writer) *Printer {
	return &Printer{out: out, errOut: errOut, st: newStyles()}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

type ctxKey struct{}

// WithContext returns a context carrying p.
func WithContext(ctx context.Context, p *Printer) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// Ctx returns the printer stored in ctx, or an unstyled stdout printer.
func Ctx(ctx context.Context) *Printer {
	if p, ok := ctx.Value(ctxKey{}).(*Printer); ok && p != nil {
		return p
	}
	return NewPlain(os.Stdout, os.Stderr)
}

// Styled reports whether output is decorated.
func (p *Printer) Styled() bool { return p.styled }

// Writer returns the primary output stream.
func (p *Printer) Writer() io.Writer { return p.out }

func (p *Printer) render(s lipgloss.Style, text string) string {
	if !p.styled {
		return text
	}
	return s.Render(text)
}

// Printf writes a plain line.
func (p *Printer) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(p.out, format+"\n", args...)
}

// Infof writes an informational line.
func (p *Printer) Infof(format string, args ...any) {
	p.line(p.out, p.st.info, "•", fmt.Sprintf(format, args...))
}

// Successf writes a success line.
func (p *Printer) Successf(format string, args ...any) {
	p.line(p.out, p.st.success, "✔", fmt.Sprintf(format, args...))
}

// Success writes a success title followed by an optional muted description.
func (p *Printer) Success(title, description string) {
	p.Successf("%s", title)
	p.detail(p.out, description)
}

// Warnf writes a warning line to the error stream.
func (p *Printer) Warnf(format string, args ...any) {
	p.line(p.errOut, p.st.warn, "!", fmt.Sprintf(format, args...))
}

// Errorf writes an error line to the error stream.
func (p *Printer) Errorf(format string, args ...any) {
	p.line(p.errOut, p.st.err, "✘", fmt.Sprintf(format, args...))
}

func (p *Printer) line(w io.Writer, s lipgloss.Style, icon, msg string) {
	_, _ = fmt.Fprintf(w, "%s %s\n", p.render(s, icon), msg)
}

func (p *Printer) detail(w io.Writer, description string) {
	if description == "" {
		return
	}
	_, _ = fmt.Fprintf(w, "  %s\n", p.render(p.st.muted, description))
}

// Notify renders a notification. Errors and warnings go to the error stream.
func (p *Printer) Notify(_ context.Context, n notify.Notification) error {
	switch n.Level {
	case notify.LevelError:
		p.Errorf("%s", n.Title)
		p.detail(p.errOut, n.Description)
	case notify.LevelWarning:
		p.Warnf("%s", n.Title)
		p.detail(p.errOut, n.Description)
	default:
		p.Success(n.Title, n.Description)
	}
	return nil
}

// Heading writes a bold section title.
func (p *Printer) Heading(title string) {
	_, _ = fmt.Fprintln(p.out, p.render(p.st.heading, title))
}

// Muted returns text in the muted style.
func (p *Printer) Muted(text string) string {
	return p.render(p.st.muted, text)
}

// Table writes rows under headers. Styled output uses a bordered table;
// plain output is tab-aligned.
func (p *Printer) Table(headers []string, rows [][]string) {
	if !p.styled {
		w := tabwriter.NewWriter(p.out, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, strings.Join(headers, "\t"))
		for _, r := range rows {
			_, _ = fmt.Fprintln(w, strings.Join(r, "\t"))
		}
		_ = w.Flush()
		return
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(p.st.border).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return p.st.tableHeader
			}
			return p.st.tableCell
		})
	_, _ = fmt.Fprintln(p.out, t.Render())
}

// Markdown renders md for the terminal. Plain output returns md unchanged.
func (p *Printer) Markdown(md string) string {
	if !p.styled || strings.TrimSpace(md) == "" {
		return md
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}
