package tour

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	integerPattern  = regexp.MustCompile(`\d+`)
	durationPattern = regexp.MustCompile(`(\d+)\s*days?`)

	amountPatterns = map[Currency]*regexp.Regexp{
		USD: regexp.MustCompile(`\$(\d+[,\d]*)`),
		CAD: regexp.MustCompile(`\$(\d+[,\d]*)`),
		AUD: regexp.MustCompile(`\$(\d+[,\d]*)`),
		NZD: regexp.MustCompile(`\$(\d+[,\d]*)`),
		EUR: regexp.MustCompile(`€(\d+[,\d]*)`),
		GBP: regexp.MustCompile(`£(\d+[,\d]*)`),
	}
)

// ExtractNumber returns the first integer in text, or 0.
func ExtractNumber(text string) int {
	m := integerPattern.FindString(text)
	if m == "" {
		return 0
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	return n
}

// ParseDuration reads "12 days" style text. Days is 0 when no count is found.
func ParseDuration(text string) Duration {
	d := Duration{Display: text}
	if m := durationPattern.FindStringSubmatch(strings.ToLower(text)); m != nil {
		d.Days, _ = strconv.Atoi(m[1])
	}
	return d
}

// ParseAgeRange reads "18-35" style text. Two or more numbers set Min and
// Max from the first two; a single number sets Min only.
func ParseAgeRange(text string) AgeRange {
	a := AgeRange{Display: text}
	nums := integerPattern.FindAllString(text, -1)
	if len(nums) >= 1 {
		a.Min, _ = strconv.Atoi(nums[0])
	}
	if len(nums) >= 2 {
		a.Max, _ = strconv.Atoi(nums[1])
	}
	return a
}

// ParseAmounts returns every amount in text written with the currency's
// symbol, thousands separators removed.
func ParseAmounts(text string, c Currency) []int {
	pattern, ok := amountPatterns[c]
	if !ok {
		return nil
	}
	var out []int
	for _, m := range pattern.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	return out
}

// ParseLedgerInt parses a CSV cell as an integer; ok is false for empty
// or malformed cells.
func ParseLedgerInt(cell string) (int, bool) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return 0, false
	}
	n, err := strconv.Atoi(cell)
	if err != nil {
		return 0, false
	}
	return n, true
}
