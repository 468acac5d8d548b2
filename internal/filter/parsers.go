package filter

import (
	"regexp"
	"strconv"
	"strings"
)

// YearsParser extracts a required-experience figure from free text. The
// boolean reports whether a confident value was found.
type YearsParser func(text string) (int, bool)

// SalaryParser extracts the maximum salary figure, in dollars, from free
// text. The boolean reports whether a confident value was found.
type SalaryParser func(text string) (int, bool)

// Matches "3+ years", "3-5 years", "3 years".
var experiencePattern = regexp.MustCompile(`(?i)(\d{1,2})\s*[-+]?\s*(?:\d{1,2}\s*)?years?\b`)

// Salary figures: $120,000 / $120k with an optional cents suffix, and bare
// 120k forms (the k is required without a dollar sign).
var (
	dollarSalaryPattern = regexp.MustCompile(`\$\s*(\d{1,3}(?:,\d{3})*|\d+)(?:\.\d{2})?\s*([kK])?`)
	kSalaryPattern      = regexp.MustCompile(`\b(\d{2,3})\s*[kK]\b`)

	// A figure only counts as compensation when annual-pay language appears
	// nearby; this keeps headcount and revenue numbers out of the signal.
	compensationContextPattern = regexp.MustCompile(
		`(?i)\b(?:salary|compensation|base\s+pay|base\s+salary|pay\s+range|salary\s+range|` +
			`total\s+comp(?:ensation)?|annual(?:ly)?|per\s+year|yearly|ote|on-target)\b`)
)

// Plausible annual salary band. Figures outside it are ignored.
const (
	minPlausibleSalary = 30_000
	maxPlausibleSalary = 450_000
)

const contextWindow = 80

// ParseExperienceYears returns the largest minimum-years figure in the text,
// e.g. "3-5 years of experience" contributes 3 and "5+ years" contributes 5.
func ParseExperienceYears(text string) (int, bool) {
	matches := experiencePattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return 0, false
	}
	best := 0
	for _, m := range matches {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if n > best {
			best = n
		}
	}
	return best, best > 0
}

// ParseSalaryMax returns the largest plausible annual salary mentioned in
// compensation context. Retirement-plan references like "401k" are excluded
// explicitly so they never corrupt the signal.
func ParseSalaryMax(text string) (int, bool) {
	best := 0

	for _, loc := range dollarSalaryPattern.FindAllStringSubmatchIndex(text, -1) {
		raw := strings.ReplaceAll(text[loc[2]:loc[3]], ",", "")
		value, err := strconv.Atoi(raw)
		if err != nil {
			continue
		}
		if loc[4] >= 0 {
			value *= 1000
		}
		if !inCompensationContext(text, loc[0], loc[1]) {
			continue
		}
		if value >= minPlausibleSalary && value <= maxPlausibleSalary && value > best {
			best = value
		}
	}

	for _, loc := range kSalaryPattern.FindAllStringSubmatchIndex(text, -1) {
		token := strings.ToLower(strings.ReplaceAll(text[loc[0]:loc[1]], " ", ""))
		if token == "401k" {
			continue
		}
		value, err := strconv.Atoi(text[loc[2]:loc[3]])
		if err != nil {
			continue
		}
		value *= 1000
		if !inCompensationContext(text, loc[0], loc[1]) {
			continue
		}
		if value >= minPlausibleSalary && value <= maxPlausibleSalary && value > best {
			best = value
		}
	}

	return best, best > 0
}

func inCompensationContext(text string, start, end int) bool {
	lo := start - contextWindow
	if lo < 0 {
		lo = 0
	}
	hi := end + contextWindow
	if hi > len(text) {
		hi = len(text)
	}
	return compensationContextPattern.MatchString(text[lo:hi])
}
