package filter

import (
	"regexp"

	"github.com/cjordan223/web-scrape-ai/internal/scrape"
)

// seniorityPatterns are checked in order; first match wins. "Staff Security
// Engineer" must classify as staff, not senior, so the broader senior pattern
// comes last.
var seniorityPatterns = []struct {
	re    *regexp.Regexp
	level scrape.Seniority
}{
	{regexp.MustCompile(`(?i)\b(?:junior|jr\.?|entry[\s-]?level|associate)\b`), scrape.SeniorityJunior},
	{regexp.MustCompile(`(?i)\bmid[\s-]?level\b`), scrape.SeniorityMid},
	{regexp.MustCompile(`(?i)\bstaff\b`), scrape.SeniorityStaff},
	{regexp.MustCompile(`(?i)\bprincipal\b`), scrape.SeniorityPrincipal},
	{regexp.MustCompile(`(?i)\bdirector\b`), scrape.SeniorityDirector},
	{regexp.MustCompile(`(?i)\b(?:manager|management)\b`), scrape.SeniorityManager},
	{regexp.MustCompile(`(?i)\b(?:lead|team\s+lead)\b`), scrape.SeniorityLead},
	{regexp.MustCompile(`(?i)\b(?:senior|sr\.?)\b`), scrape.SenioritySenior},
}

// DetectSeniority infers a seniority level from a posting title.
func DetectSeniority(title string) scrape.Seniority {
	cleaned := cleanTitle(title)
	for _, p := range seniorityPatterns {
		if p.re.MatchString(cleaned) {
			return p.level
		}
	}
	return scrape.SeniorityUnknown
}
