// Package report prints categorized user-facing messages.
package report

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Category classifies a message.
type Category string

const (
	Note    Category = "note"
	Info    Category = "info"
	Success Category = "ok"
	Warn    Category = "warn"
	Error   Category = "error"
	Failed  Category = "failed"
)

// styleTable maps each category to the style of its label.
func styleTable(r *lipgloss.Renderer) map[Category]lipgloss.Style {
	base := r.NewStyle().Bold(true)
	return map[Category]lipgloss.Style{
		Note:    base.Foreground(lipgloss.Color("6")),
		Info:    r.NewStyle().Foreground(lipgloss.Color("8")),
		Success: base.Foreground(lipgloss.Color("2")),
		Warn:    base.Foreground(lipgloss.Color("3")),
		Error:   base.Foreground(lipgloss.Color("1")),
		Failed:  base.Foreground(lipgloss.Color("9")),
	}
}

// Reporter writes one labelled line per message.
type Reporter struct {
	out    io.Writer
	color  bool
	styles map[Category]lipgloss.Style
}

// New creates a reporter writing to out. Colors are used only when out is a
// terminal and NO_COLOR is unset.
func New(out io.Writer) *Reporter {
	color := false
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		color = os.Getenv("NO_COLOR") == "" && os.Getenv("TERM") != "dumb"
	}
	return &Reporter{
		out:    out,
		color:  color,
		styles: styleTable(lipgloss.NewRenderer(out)),
	}
}

// Writer returns the underlying output.
func (r *Reporter) Writer() io.Writer {
	return r.out
}

// Label renders the category label, styled when colors are enabled.
func (r *Reporter) Label(c Category) string {
	label := string(c) + ":"
	if !r.color {
		return label
	}
	return r.styles[c].Render(label)
}

// Printf writes a message of the given category.
func (r *Reporter) Printf(c Category, format string, args ...interface{}) {
	fmt.Fprintf(r.out, "%s %s\n", r.Label(c), fmt.Sprintf(format, args...))
}

func (r *Reporter) Notef(format string, args ...interface{})    { r.Printf(Note, format, args...) }
func (r *Reporter) Infof(format string, args ...interface{})    { r.Printf(Info, format, args...) }
func (r *Reporter) Successf(format string, args ...interface{}) { r.Printf(Success, format, args...) }
func (r *Reporter) Warnf(format string, args ...interface{})    { r.Printf(Warn, format, args...) }

// Error prints err once under the error category and returns it marked as
// reported. Errors already reported are returned unchanged without printing.
func (r *Reporter) Error(err error) error {
	return r.report(Error, err)
}

// Failure is like Error but uses the failed category.
func (r *Reporter) Failure(err error) error {
	return r.report(Failed, err)
}

func (r *Reporter) report(c Category, err error) error {
	if err == nil || IsReported(err) {
		return err
	}
	r.Printf(c, "%v", err)
	return MarkReported(err)
}

type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

// MarkReported wraps err so IsReported reports true for it and anything
// wrapping it.
func MarkReported(err error) error {
	if err == nil || IsReported(err) {
		return err
	}
	return &reportedError{err: err}
}

// IsReported reports whether err has already been shown to the user.
func IsReported(err error) bool {
	var r *reportedError
	return errors.As(err, &r)
}
