package vobject

import (
	"strconv"
	"strings"

	"github.com/cyp0633/davsync/daverr"
	"github.com/samber/mo"
)

// ComponentKind tags which component an Entity was parsed from.
type ComponentKind int

const (
	ComponentEvent ComponentKind = iota
	ComponentTodo
)

// Entity is one parsed VEVENT or VTODO. UID is its identity across syncs and
// Sequence orders edits of the same UID. Temporal fields keep their encoding:
// a floating DTSTART with a TZID parameter stays floating and records the
// reference in TZID; resolving it against a parsed VTimeZone to a UTC
// instant is a known gap, not performed here.
type Entity struct {
	UID      string
	Sequence int
	Kind     ComponentKind
	Summary  string
	Start    mo.Option[Temporal]
	End      mo.Option[Temporal]
	Due      mo.Option[Temporal]
	TZID     mo.Option[string]
	Props    []ContentLine // everything not otherwise modeled
}

// Calendar is the result of parsing one iCalendar stream: the entities it
// carries plus any VTIMEZONE components, already reduced to their offsets.
type Calendar struct {
	Entities  []Entity
	TimeZones []VTimeZone
}

// ParseCalendar walks the BEGIN/END component structure of an iCalendar
// stream and extracts every VEVENT and VTODO, plus the offsets of every
// VTIMEZONE. Nested sub-components (VALARM and friends) are not retained.
func ParseCalendar(text string) (*Calendar, error) {
	lines := Unfold(text)
	cal := &Calendar{}

	for i := 0; i < len(lines); i++ {
		upper := strings.ToUpper(lines[i])
		name, ok := strings.CutPrefix(upper, "BEGIN:")
		if !ok {
			continue
		}

		switch name {
		case "VEVENT", "VTODO":
			block, next, err := componentBlock(lines, i, name)
			if err != nil {
				return nil, err
			}
			kind := ComponentEvent
			if name == "VTODO" {
				kind = ComponentTodo
			}
			entity, err := parseEntity(block, kind)
			if err != nil {
				return nil, err
			}
			cal.Entities = append(cal.Entities, entity)
			i = next
		case "VTIMEZONE":
			block, next, err := componentBlock(lines, i, name)
			if err != nil {
				return nil, err
			}
			zone, err := ParseVTimeZone(strings.Join(block, "\r\n"))
			if err != nil {
				return nil, err
			}
			cal.TimeZones = append(cal.TimeZones, zone)
			i = next
		}
	}
	return cal, nil
}

// componentBlock returns lines[start..end] for the component opened at start,
// END line included, tracking nested BEGIN/END pairs. The second result is
// the index of the END line.
func componentBlock(lines []string, start int, name string) ([]string, int, error) {
	depth := 0
	for i := start; i < len(lines); i++ {
		upper := strings.ToUpper(lines[i])
		if strings.HasPrefix(upper, "BEGIN:") {
			depth++
		} else if strings.HasPrefix(upper, "END:") {
			depth--
			if depth == 0 {
				if upper != "END:"+name {
					return nil, 0, daverr.Parsing("expected END:%s, got %q", name, lines[i])
				}
				return lines[start : i+1], i, nil
			}
		}
	}
	return nil, 0, daverr.Parsing("missing END:%s", name)
}

func parseEntity(block []string, kind ComponentKind) (Entity, error) {
	entity := Entity{Kind: kind}

	depth := 0
	for _, line := range block[1 : len(block)-1] {
		upper := strings.ToUpper(line)
		if strings.HasPrefix(upper, "BEGIN:") {
			depth++
			continue
		}
		if strings.HasPrefix(upper, "END:") {
			depth--
			continue
		}
		if depth > 0 {
			continue // property of a nested sub-component
		}

		cl, err := ParseContentLine(line)
		if err != nil {
			return Entity{}, err
		}

		switch cl.Name {
		case "UID":
			entity.UID = cl.Value
		case "SEQUENCE":
			if n, err := strconv.Atoi(strings.TrimSpace(cl.Value)); err == nil && n >= 0 {
				entity.Sequence = n
			}
		case "SUMMARY":
			entity.Summary = cl.Value
		case "DTSTART":
			entity.Start = ParseTemporal(cl.Value)
			recordTZID(&entity, cl)
		case "DTEND":
			entity.End = ParseTemporal(cl.Value)
			recordTZID(&entity, cl)
		case "DUE":
			entity.Due = ParseTemporal(cl.Value)
			recordTZID(&entity, cl)
		default:
			entity.Props = append(entity.Props, cl)
		}
	}

	if entity.UID == "" {
		return Entity{}, daverr.Parsing("missing UID in component")
	}
	return entity, nil
}

func recordTZID(entity *Entity, cl ContentLine) {
	if tzid := cl.Param("TZID"); tzid != "" && entity.TZID.IsAbsent() {
		entity.TZID = mo.Some(tzid)
	}
}
