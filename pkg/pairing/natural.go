package pairing

import (
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// naturalOrder compares strings the way people sort file listings: digit
// runs by numeric value, letters ignoring case and accents.
// A Collator keeps internal buffers, so each sort gets its own.
type naturalOrder struct {
	col *collate.Collator
}

func newNaturalOrder() *naturalOrder {
	return &naturalOrder{
		col: collate.New(language.Und, collate.Numeric, collate.IgnoreCase, collate.IgnoreDiacritics),
	}
}

func (n *naturalOrder) compare(a, b string) int {
	if c := n.col.CompareString(a, b); c != 0 {
		return c
	}
	if c := strings.Compare(strings.ToLower(a), strings.ToLower(b)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

// NaturalSort sorts keys in place in natural order.
func NaturalSort(keys []string) {
	n := newNaturalOrder()
	slices.SortFunc(keys, n.compare)
}
