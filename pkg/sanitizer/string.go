package sanitizer

import "strings"

// collapseSpace joins the words of s with single spaces, so "Oat  Milk",
// " Oat Milk" and "Oat\tMilk" all name the same product or participant.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
