package commands

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/alkoleft/web-transport-addin/internal/event"
)

// printer writes host-side output to the console.
type printer struct {
	out io.Writer

	info   *color.Color
	muted  *color.Color
	errc   *color.Color
	name   *color.Color
	accent *color.Color
}

func newPrinter(out io.Writer, noColor bool) *printer {
	if noColor {
		color.NoColor = true
	}
	return &printer{
		out:    out,
		info:   color.New(color.FgGreen, color.Bold),
		muted:  color.New(color.FgHiBlack),
		errc:   color.New(color.FgRed),
		name:   color.New(color.FgCyan, color.Bold),
		accent: color.New(color.FgYellow),
	}
}

func (p *printer) Info(format string, args ...any) {
	fmt.Fprintln(p.out, p.info.Sprintf(format, args...))
}

func (p *printer) Muted(format string, args ...any) {
	fmt.Fprintln(p.out, p.muted.Sprintf(format, args...))
}

func (p *printer) Error(format string, args ...any) {
	fmt.Fprintln(p.out, p.errc.Sprintf(format, args...))
}

// Notification prints one event delivered by the listener.
func (p *printer) Notification(n event.Notification) {
	fmt.Fprintf(p.out, "%s %s %s\n",
		p.muted.Sprint(n.Time.Format("15:04:05.000")),
		p.name.Sprintf("%s/%s", n.Source, n.Name),
		n.Data,
	)
}

// Lifecycle prints one lifecycle event from the bus mirror.
func (p *printer) Lifecycle(kind string, payload []byte) {
	fmt.Fprintf(p.out, "%s %s\n", p.accent.Sprintf("· %s", kind), p.muted.Sprint(string(payload)))
}

// Frame prints one WebSocket frame.
func (p *printer) Frame(direction, text string) {
	fmt.Fprintf(p.out, "%s %s\n", p.name.Sprint(direction), text)
}
