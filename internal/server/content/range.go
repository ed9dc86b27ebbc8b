package content

import (
	"regexp"
	"strconv"

	"github.com/Fwea-Go/remix-exp/pkg/object"
)

var rangePattern = regexp.MustCompile(`^bytes=(\d+)-(\d+)?$`)

// ParseRange parses a single "bytes=start-[end]" Range header. Anything it
// cannot use, including suffix ranges, multiple ranges and end < start,
// yields nil so the caller serves the full object.
func ParseRange(h string) *object.Range {
	m := rangePattern.FindStringSubmatch(h)
	if m == nil {
		return nil
	}
	start, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return nil
	}
	if m[2] == "" {
		return &object.Range{Start: start, End: -1}
	}
	end, err := strconv.ParseInt(m[2], 10, 64)
	if err != nil || end < start {
		return nil
	}
	return &object.Range{Start: start, End: end}
}
