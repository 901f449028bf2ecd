package ranges

import (
	"fmt"
	"strconv"
	"strings"
)

// AllToken expands to the whole addressed buffer.
const AllToken = "$all"

// Parse reads OFFSET+SIZE or OFFSET-END. Integers accept any Go literal base.
// The result must fit inside maxLen.
func Parse(text string, maxLen int64) (Range, error) {
	text = strings.TrimSpace(text)
	if text == AllToken {
		text = fmt.Sprintf("0+%d", maxLen)
	}

	sep := "+"
	if strings.Contains(text, "-") {
		sep = "-"
	}

	parts := strings.Split(text, sep)
	if len(parts) != 2 {
		return Range{}, fmt.Errorf("%w: %q", ErrValidation, text)
	}

	offset, err := strconv.ParseInt(parts[0], 0, 64)
	if err != nil {
		return Range{}, fmt.Errorf("%w: %q", ErrValidation, text)
	}

	second, err := strconv.ParseInt(parts[1], 0, 64)
	if err != nil {
		return Range{}, fmt.Errorf("%w: %q", ErrValidation, text)
	}

	var r Range
	if sep == "-" {
		r, err = FromBounds(offset, second)
	} else {
		r, err = New(offset, second)
	}

	if err != nil {
		return Range{}, err
	}

	if r.End() > maxLen {
		return Range{}, fmt.Errorf("%w: %s exceeds size %d", ErrValidation, r, maxLen)
	}

	return r, nil
}
