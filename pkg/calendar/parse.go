package calendar

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Parse errors. Check with errors.Is(err, calendar.ErrSummaryShape).
var (
	// ErrSummaryShape indicates a price summary with an unexpected token count.
	ErrSummaryShape = errors.New("unexpected price summary shape")
	// ErrSummaryAmount indicates a price summary token that is not an amount.
	ErrSummaryAmount = errors.New("invalid amount in price summary")
	// ErrNameFormat indicates a compound "Name, Date" value that did not match.
	ErrNameFormat = errors.New("unrecognised name and date format")
)

// SplitTitle splits a slot title on the first occurrence of sep. The leading
// segment is the class name, the remainder (possibly empty) usually the time.
func SplitTitle(title, sep string) (name, rest string) {
	title = cleanText(title)
	if sep == "" {
		return title, ""
	}
	before, after, found := strings.Cut(title, sep)
	if !found {
		return title, ""
	}
	return strings.TrimSpace(before), strings.TrimSpace(after)
}

// A name is one or two comma separated runs of letters, spaces and name
// punctuation. Text before the name and after the time is ignored.
var compoundNameRE = regexp.MustCompile(
	`(\p{L}[\p{L}'.\- ]*(?:, ?\p{L}[\p{L}'.\- ]*)?),?\s+(\d{1,2} \p{L}+ \d{4}, \d{1,2}:\d{2})`)

// ParseCompoundName finds "<Name>, <DD Month YYYY, HH:MM>" in s and returns
// its name and date parts. The comma after the name is optional.
func ParseCompoundName(s string) (name, when string, err error) {
	s = cleanText(s)
	m := compoundNameRE.FindStringSubmatch(s)
	if m == nil {
		return "", "", fmt.Errorf("%w: %q", ErrNameFormat, s)
	}
	return strings.TrimSpace(m[1]), m[2], nil
}

// Money holds the three amounts of a booking's price summary, currency
// symbols stripped.
type Money struct {
	Price string
	Paid  string
	Due   string
}

// Token positions of price, paid and due for each accepted summary length.
var summaryPositions = map[int][3]int{
	// "£120.00 Total paid: £120.00 Total due: £0.00"
	7: {0, 3, 6},
	// "£120 paid £120 due £0"
	5: {0, 2, 4},
}

var amountRE = regexp.MustCompile(`^\d+(?:,\d{3})*(?:\.\d+)?$`)

// ParseMoneySummary reads price, paid and due from a whitespace separated
// summary string. Any other token count is ErrSummaryShape.
func ParseMoneySummary(s string) (Money, error) {
	tokens := strings.Fields(s)
	pos, ok := summaryPositions[len(tokens)]
	if !ok {
		return Money{}, fmt.Errorf("%w: %d tokens in %q", ErrSummaryShape, len(tokens), s)
	}

	var amounts [3]string
	for i, p := range pos {
		a, err := parseAmount(tokens[p])
		if err != nil {
			return Money{}, err
		}
		amounts[i] = a
	}
	return Money{Price: amounts[0], Paid: amounts[1], Due: amounts[2]}, nil
}

func parseAmount(tok string) (string, error) {
	a := strings.TrimLeft(tok, "(£$€")
	a = strings.TrimRight(a, ",;:)")
	if !amountRE.MatchString(a) {
		return "", fmt.Errorf("%w: %q", ErrSummaryAmount, tok)
	}
	return a, nil
}
