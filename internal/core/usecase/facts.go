package usecase

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Fact extraction is rule-based on purpose: review must never depend on
// model inference to decide whether a number in a filing is right.

type factKind int

const (
	factNumeric factKind = iota
	factDate
)

type fact struct {
	kind factKind
	raw  string
	pos  int

	// numeric facts
	value float64 // magnitude after scale normalization
	bare  float64 // magnitude before scale normalization
	unit  string  // "$", "%", or ""
	scale float64

	// date facts, normalized to "2006-01-02" or "2006" for bare years
	date     string
	yearOnly bool
}

var (
	isoDateRe  = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`)
	longDateRe = regexp.MustCompile(`\b(January|February|March|April|May|June|July|August|September|October|November|December)\s+(\d{1,2}),\s+(\d{4})\b`)
	numberRe   = regexp.MustCompile(`(\$\s?)?(\d{1,3}(?:,\d{3})+(?:\.\d+)?|\d+(?:\.\d+)?)(?:\s?(thousand|million|billion|trillion))?(\s?(?:%|percent))?`)
)

var monthNumbers = map[string]int{
	"January": 1, "February": 2, "March": 3, "April": 4,
	"May": 5, "June": 6, "July": 7, "August": 8,
	"September": 9, "October": 10, "November": 11, "December": 12,
}

var scaleFactors = map[string]float64{
	"thousand": 1e3,
	"million":  1e6,
	"billion":  1e9,
	"trillion": 1e12,
}

// extractFacts pulls monetary amounts, percentages, plain numbers, and
// dates out of free text, in order of appearance. Date spans are claimed
// first so their digits are not re-read as numbers.
func extractFacts(text string) []fact {
	facts := make([]fact, 0, 8)
	claimed := make([][2]int, 0, 4)

	for _, loc := range isoDateRe.FindAllStringIndex(text, -1) {
		facts = append(facts, fact{
			kind: factDate,
			raw:  text[loc[0]:loc[1]],
			pos:  loc[0],
			date: text[loc[0]:loc[1]],
		})
		claimed = append(claimed, [2]int{loc[0], loc[1]})
	}

	for _, m := range longDateRe.FindAllStringSubmatchIndex(text, -1) {
		raw := text[m[0]:m[1]]
		month := monthNumbers[text[m[2]:m[3]]]
		day, _ := strconv.Atoi(text[m[4]:m[5]])
		year := text[m[6]:m[7]]
		facts = append(facts, fact{
			kind: factDate,
			raw:  raw,
			pos:  m[0],
			date: year + "-" + pad2(month) + "-" + pad2(day),
		})
		claimed = append(claimed, [2]int{m[0], m[1]})
	}

	for _, m := range numberRe.FindAllStringSubmatchIndex(text, -1) {
		if overlapsClaimed(claimed, m[0], m[1]) {
			continue
		}
		raw := text[m[0]:m[1]]
		digits := strings.ReplaceAll(text[m[4]:m[5]], ",", "")
		bare, err := strconv.ParseFloat(digits, 64)
		if err != nil {
			continue
		}

		currency := m[2] >= 0
		scaleWord := ""
		if m[6] >= 0 {
			scaleWord = text[m[6]:m[7]]
		}
		percent := m[8] >= 0

		// A bare 4-digit integer in filing-year range reads as a year.
		if !currency && !percent && scaleWord == "" && looksLikeYear(digits) {
			facts = append(facts, fact{
				kind:     factDate,
				raw:      raw,
				pos:      m[0],
				date:     digits,
				yearOnly: true,
			})
			continue
		}

		scale := 1.0
		if scaleWord != "" {
			scale = scaleFactors[scaleWord]
		}
		unit := ""
		switch {
		case percent:
			unit = "%"
		case currency:
			unit = "$"
		}

		facts = append(facts, fact{
			kind:  factNumeric,
			raw:   strings.TrimSpace(raw),
			pos:   m[0],
			value: bare * scale,
			bare:  bare,
			unit:  unit,
			scale: scale,
		})
	}

	sort.SliceStable(facts, func(i, j int) bool { return facts[i].pos < facts[j].pos })
	return facts
}

func overlapsClaimed(claimed [][2]int, start, end int) bool {
	for _, span := range claimed {
		if start < span[1] && end > span[0] {
			return true
		}
	}
	return false
}

func looksLikeYear(digits string) bool {
	if len(digits) != 4 {
		return false
	}
	year, err := strconv.Atoi(digits)
	if err != nil {
		return false
	}
	return year >= 1900 && year <= 2099
}

func pad2(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

// sameDate reports whether a paragraph date matches an evidence date. Exact
// match is required; a year-only claim is supported by any evidence date in
// that year, but a full-date claim needs the full date in evidence.
func sameDate(claim, evidence fact) bool {
	if claim.yearOnly {
		return claim.date == evidence.date || strings.HasPrefix(evidence.date, claim.date+"-")
	}
	return claim.date == evidence.date
}

// compatibleUnits: an unadorned number can support a monetary claim, but a
// percentage never matches a non-percentage and vice versa.
func compatibleUnits(a, b string) bool {
	if a == b {
		return true
	}
	return a != "%" && b != "%"
}
