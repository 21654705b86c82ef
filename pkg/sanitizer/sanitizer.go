package sanitizer

import (
	"strings"
	"unicode"
)

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

func dropControl(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// SanitizeProduct cleans a product label. Case is preserved.
func SanitizeProduct(input string) string {
	p := Pipeline{
		dropControl,
		collapseSpace,
	}
	return p.Apply(input)
}

// SanitizeParticipant cleans a display name. Case is preserved because item
// attribution matches names exactly.
func SanitizeParticipant(input string) string {
	p := Pipeline{
		dropControl,
		collapseSpace,
	}
	return p.Apply(input)
}
