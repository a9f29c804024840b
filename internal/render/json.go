package render

import (
	"io"
	"time"

	"github.com/rs/zerolog"

	"srdb/internal/report"
)

// Structured writes every event as a zerolog record.
type Structured struct {
	log zerolog.Logger
}

// NewJSON writes one JSON object per event to w.
func NewJSON(w io.Writer) *Structured {
	return &Structured{log: zerolog.New(w).With().Timestamp().Logger()}
}

// NewText writes levelled, timestamped lines to w.
func NewText(w io.Writer) *Structured {
	out := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: true}
	return &Structured{log: zerolog.New(out).With().Timestamp().Logger()}
}

// Emit implements report.Sink.
func (s *Structured) Emit(e report.Event) {
	var ev *zerolog.Event
	switch e.Kind {
	case report.KindError:
		if e.Category.AffectsResults() {
			ev = s.log.Error()
		} else {
			ev = s.log.Warn()
		}
		ev = ev.Str("category", string(e.Category)).Str("error", e.Message)
	case report.KindTableStart:
		ev = s.log.Info().Strs("search", e.Search).Strs("replace", e.Replace)
	case report.KindTableEnd:
		tr := e.TableReport
		ev = s.log.Info().
			Int64("rows", tr.Rows).
			Int64("changes", tr.Changes).
			Int64("updates", tr.Updates).
			Dur("elapsed", tr.Elapsed())
	case report.KindRunEnd:
		r := e.RunReport
		ev = s.log.Info().
			Int("tables", r.TableCount()).
			Int64("rows", r.Rows).
			Int64("changes", r.Changes).
			Int64("updates", r.Updates).
			Bool("dry_run", r.DryRun).
			Dur("elapsed", r.Elapsed())
		if len(e.Search) > 0 {
			ev = ev.Strs("search", e.Search).Strs("replace", e.Replace)
		}
	case report.KindEngineConverted, report.KindCollationConverted:
		ok := Converted(e)
		if ok {
			ev = s.log.Info()
		} else {
			ev = s.log.Warn()
		}
		ev = ev.Bool("converted", ok)
		if e.RunReport != nil {
			ev = ev.Interface("converted_tables", e.RunReport.Converted)
		}
		if e.Engine != "" {
			ev = ev.Str("engine", e.Engine)
		}
		if e.Collation != "" {
			ev = ev.Str("collation", e.Collation)
		}
	default:
		ev = s.log.Debug()
	}
	if e.Table != "" {
		ev = ev.Str("table", e.Table)
	}
	ev.Str("event", string(e.Kind)).Send()
}
