package vobject

import (
	"strings"

	"github.com/cyp0633/davsync/daverr"
	"github.com/samber/mo"
)

// VTimeZone holds the offsets extracted from one VTIMEZONE component.
// Offsets are signed seconds east of UTC. DaylightOffset is absent when the
// zone declares no DST rule. Values are immutable once parsed; callers cache
// them if they want caching.
type VTimeZone struct {
	TZID           string
	StandardOffset int
	DaylightOffset mo.Option[int]
}

// ParseVTimeZone extracts the TZID and offsets from one VTIMEZONE block.
// BEGIN:VTIMEZONE with a matching END:VTIMEZONE and a TZID line are required.
// TZOFFSETFROM/TZOFFSETTO lines inside a STANDARD sub-block set the standard
// offset, inside a DAYLIGHT sub-block the daylight offset; an offset line
// outside both is counted as standard, which keeps minimal legacy producers
// parseable. The last observed offset of each kind wins. A malformed offset
// value skips that line; a VTIMEZONE with no usable offset at all fails.
func ParseVTimeZone(text string) (VTimeZone, error) {
	lines := Unfold(text)

	var (
		zone       VTimeZone
		inZone     bool
		sawBegin   bool
		sawEnd     bool
		sub        string // "", "STANDARD" or "DAYLIGHT"
		sawOffset  bool
		sawTZID    bool
		standard   int
		daylight   mo.Option[int]
		hasDefault bool
	)

	for _, line := range lines {
		upper := strings.ToUpper(line)
		switch {
		case upper == "BEGIN:VTIMEZONE":
			sawBegin = true
			inZone = true
			continue
		case upper == "END:VTIMEZONE":
			sawEnd = true
			inZone = false
			continue
		}
		if !inZone {
			continue
		}

		switch upper {
		case "BEGIN:STANDARD":
			sub = "STANDARD"
			continue
		case "END:STANDARD", "END:DAYLIGHT":
			sub = ""
			continue
		case "BEGIN:DAYLIGHT":
			sub = "DAYLIGHT"
			continue
		}

		cl, err := ParseContentLine(line)
		if err != nil {
			continue
		}

		switch cl.Name {
		case "TZID":
			if sub == "" { // a TZID inside STANDARD/DAYLIGHT names a rule, not the zone
				zone.TZID = cl.Value
				sawTZID = true
			}
		case "TZOFFSETFROM", "TZOFFSETTO":
			offset, ok := parseUTCOffset(cl.Value)
			if !ok {
				continue
			}
			sawOffset = true
			switch sub {
			case "DAYLIGHT":
				daylight = mo.Some(offset)
			default:
				standard = offset
				hasDefault = true
			}
		}
	}

	if !sawBegin || !sawEnd {
		return VTimeZone{}, daverr.Parsing("missing BEGIN:VTIMEZONE/END:VTIMEZONE pair")
	}
	if !sawTZID || zone.TZID == "" {
		return VTimeZone{}, daverr.Parsing("missing TZID in VTIMEZONE")
	}
	if !sawOffset {
		return VTimeZone{}, daverr.Parsing("VTIMEZONE %q carries no parseable offset", zone.TZID)
	}

	// A zone that only declared a DAYLIGHT offset still needs a standard
	// offset; reuse the daylight value rather than fail.
	if !hasDefault {
		standard = daylight.MustGet()
	}
	zone.StandardOffset = standard
	zone.DaylightOffset = daylight
	return zone, nil
}

// ExtractTZID returns the TZID value of the first TZID line in text without
// requiring the full VTIMEZONE grammar to be well-formed. Meant as a cheap
// index key for callers that map zone references before a full parse.
func ExtractTZID(text string) mo.Option[string] {
	for _, line := range Unfold(text) {
		upper := strings.ToUpper(line)
		if !strings.HasPrefix(upper, "TZID") {
			continue
		}
		cl, err := ParseContentLine(line)
		if err != nil || cl.Name != "TZID" || cl.Value == "" {
			continue
		}
		return mo.Some(cl.Value)
	}
	return mo.None[string]()
}

// parseUTCOffset decodes the RFC 5545 UTC-OFFSET grammar: optional sign, HH,
// MM and optional SS, all two digits. Anything else is rejected.
func parseUTCOffset(s string) (int, bool) {
	sign := 1
	switch {
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	case strings.HasPrefix(s, "-"):
		sign = -1
		s = s[1:]
	}
	if len(s) != 4 && len(s) != 6 {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}

	hours := int(s[0]-'0')*10 + int(s[1]-'0')
	minutes := int(s[2]-'0')*10 + int(s[3]-'0')
	seconds := 0
	if len(s) == 6 {
		seconds = int(s[4]-'0')*10 + int(s[5]-'0')
	}
	return sign * (hours*3600 + minutes*60 + seconds), true
}
