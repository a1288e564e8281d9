package session

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// Console writes human readable progress lines. Colours are used only when
// the output is a terminal that supports them.
type Console struct {
	out *termenv.Output
}

// NewConsole returns a console writing to w.
func NewConsole(w io.Writer) *Console {
	return &Console{out: termenv.NewOutput(w)}
}

// Println writes a plain line.
func (c *Console) Println(format string, args ...interface{}) {
	fmt.Fprintf(c.out, format+"\n", args...)
}

// Success writes a line in green.
func (c *Console) Success(format string, args ...interface{}) {
	c.colored("2", format, args...)
}

// Failure writes a line in red.
func (c *Console) Failure(format string, args ...interface{}) {
	c.colored("1", format, args...)
}

// Notice writes a line in yellow.
func (c *Console) Notice(format string, args ...interface{}) {
	c.colored("3", format, args...)
}

// Prompt writes a prompt without a line break.
func (c *Console) Prompt(p string) {
	fmt.Fprint(c.out, c.out.String(p).Bold())
}

func (c *Console) colored(color, format string, args ...interface{}) {
	s := c.out.String(fmt.Sprintf(format, args...)).Foreground(c.out.Color(color))
	fmt.Fprintln(c.out, s)
}
