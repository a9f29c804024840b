// Package render turns the run's event stream into output: the classic
// line-per-event report, or structured zerolog records.
package render

import (
	"fmt"
	"io"
	"sync"
	"time"

	"srdb/internal/report"
)

// Console writes one human-readable line per event.
type Console struct {
	mu     sync.Mutex
	w      io.Writer
	dryRun bool
}

// NewConsole writes to w. dryRun only changes the wording of the summary.
func NewConsole(w io.Writer, dryRun bool) *Console {
	return &Console{w: w, dryRun: dryRun}
}

// Emit implements report.Sink.
func (c *Console) Emit(e report.Event) {
	line := c.line(e)
	if line == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.w, line)
}

func (c *Console) line(e report.Event) string {
	switch e.Kind {
	case report.KindError:
		return fmt.Sprintf("%s: %s", e.Category, e.Message)
	case report.KindTableStart:
		return fmt.Sprintf("%s: replacing %s with %s", e.Table, report.Pairs(e.Search), report.Pairs(e.Replace))
	case report.KindTableEnd:
		tr := e.TableReport
		return fmt.Sprintf("%s: %d rows, %d changes found, %d updates made in %s seconds",
			e.Table, tr.Rows, tr.Changes, tr.Updates, Seconds(tr.Elapsed()))
	case report.KindRunEnd:
		r := e.RunReport
		if len(e.Search) == 0 {
			// maintenance runs report per table only
			return ""
		}
		verb := "were"
		if c.dryRun || r.DryRun {
			verb = "would have been"
		}
		return fmt.Sprintf("\nReplacing %s with %s on %d tables with %d rows\n%d changes %s made\n%d updates were actually made\nIt took %s seconds",
			report.Pairs(e.Search), report.Pairs(e.Replace), r.TableCount(), r.Rows,
			r.Changes, verb, r.Updates, Seconds(r.Elapsed()))
	case report.KindEngineConverted:
		return converted(e, e.Engine)
	case report.KindCollationConverted:
		return converted(e, e.Collation)
	}
	return ""
}

func converted(e report.Event, target string) string {
	verb := "has not been"
	if Converted(e) {
		verb = "has been"
	}
	return fmt.Sprintf("%s %s converted to %s", e.Table, verb, target)
}

// Converted reports whether the table named by a conversion event was
// converted, read from the run's converted map.
func Converted(e report.Event) bool {
	if e.RunReport != nil {
		return e.RunReport.Converted[e.Table]
	}
	return e.TableReport != nil && e.TableReport.Converted
}

// Seconds formats d with eight decimals. Negative durations keep their sign.
func Seconds(d time.Duration) string {
	return fmt.Sprintf("%.8f", d.Seconds())
}
