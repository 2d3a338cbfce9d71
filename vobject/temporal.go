package vobject

import (
	"strings"
	"time"

	"github.com/samber/mo"
)

// TemporalKind tags which of the three RFC 5545 date-time encodings a value
// uses.
type TemporalKind int

const (
	// KindUTC is an absolute instant, serialized with a trailing Z.
	KindUTC TemporalKind = iota
	// KindFloating is a wall-clock time with no zone attached. It is never
	// implicitly converted to UTC.
	KindFloating
	// KindDateOnly is a calendar date with no time-of-day component.
	KindDateOnly
)

const (
	layoutUTC      = "20060102T150405Z"
	layoutFloating = "20060102T150405"
	layoutDateOnly = "20060102"
)

// Temporal is a date or date-time value tagged with its encoding. The wall
// fields are stored in the UTC location for all three kinds so that values
// compare with == regardless of how they were constructed; for Floating and
// DateOnly the location carries no meaning.
type Temporal struct {
	Kind TemporalKind
	Time time.Time
}

// UTC builds a Temporal for an absolute instant.
func UTC(t time.Time) Temporal {
	return Temporal{Kind: KindUTC, Time: t.UTC()}
}

// Floating builds a Temporal for zoneless wall-clock fields, keeping the
// fields of t and discarding its location.
func Floating(t time.Time) Temporal {
	return Temporal{Kind: KindFloating, Time: rezone(t)}
}

// DateOnly builds a Temporal for a calendar date. No time of day is kept.
func DateOnly(year int, month time.Month, day int) Temporal {
	return Temporal{Kind: KindDateOnly, Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func rezone(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
}

// ParseTemporal decodes one DATE or DATE-TIME value. A value ending in Z is
// UTC, the same pattern without Z is floating, and an 8-digit value is a
// date. Attempts run in that order; anything else yields None rather than an
// error, so callers can tell "could not parse" apart from "parsed as floating
// because no zone info was present".
func ParseTemporal(s string) mo.Option[Temporal] {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(layoutUTC, s); err == nil {
		return mo.Some(Temporal{Kind: KindUTC, Time: t.UTC()})
	}
	if t, err := time.Parse(layoutFloating, s); err == nil {
		return mo.Some(Temporal{Kind: KindFloating, Time: rezone(t)})
	}
	if len(s) == len(layoutDateOnly) {
		if t, err := time.Parse(layoutDateOnly, s); err == nil {
			return mo.Some(Temporal{Kind: KindDateOnly, Time: rezone(t)})
		}
	}
	return mo.None[Temporal]()
}

// FormatTemporal is the exact inverse of ParseTemporal: zero-padded, fixed
// calendar, no locale sensitivity.
func FormatTemporal(v Temporal) string {
	switch v.Kind {
	case KindUTC:
		return v.Time.UTC().Format(layoutUTC)
	case KindDateOnly:
		return v.Time.Format(layoutDateOnly)
	default:
		return v.Time.Format(layoutFloating)
	}
}
