package vobject

import (
	"strings"

	"github.com/cyp0633/davsync/daverr"
)

// Card is one parsed VCARD. FormattedName maps FN, the one property RFC 6350
// makes mandatory; everything else lands in the property bag.
type Card struct {
	UID           string
	FormattedName string
	Props         []ContentLine
}

// ParseCard parses a single vCard through the same unfold/tokenize pipeline
// as iCalendar components.
func ParseCard(text string) (Card, error) {
	lines := Unfold(text)

	var (
		card     Card
		inCard   bool
		sawBegin bool
		sawEnd   bool
	)
	for _, line := range lines {
		upper := strings.ToUpper(line)
		switch upper {
		case "BEGIN:VCARD":
			sawBegin = true
			inCard = true
			continue
		case "END:VCARD":
			sawEnd = true
			inCard = false
			continue
		}
		if !inCard {
			continue
		}

		cl, err := ParseContentLine(line)
		if err != nil {
			return Card{}, err
		}
		switch cl.Name {
		case "UID":
			card.UID = cl.Value
		case "FN":
			card.FormattedName = cl.Value
		case "VERSION":
			// implied by the container, not part of the bag
		default:
			card.Props = append(card.Props, cl)
		}
	}

	if !sawBegin || !sawEnd {
		return Card{}, daverr.Parsing("missing BEGIN:VCARD/END:VCARD pair")
	}
	if card.FormattedName == "" {
		return Card{}, daverr.Parsing("missing FN in VCARD")
	}
	return card, nil
}
