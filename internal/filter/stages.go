package filter

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/cjordan223/web-scrape-ai/internal/scrape"
)

// Stage names recorded in verdict trails.
const (
	StageURLDomain        = "url_domain"
	StageEarlyCareer      = "early_career"
	StageContentBlocklist = "content_blocklist"
	StageRemotePolicy     = "remote_policy"
	StageTitleRelevance   = "title_relevance"
	StageTitleRole        = "title_role"
	StageSeniority        = "seniority"
	StageJDQuality        = "jd_quality"
	StageExperience       = "experience"
	StageSalary           = "salary"
)

// Soft-signal score contributions.
const (
	scoreTitleMatch    = 2
	scoreTitleMiss     = -2
	scoreRoleMatch     = 1
	scoreRoleMiss      = -1
	scoreSeniorityMiss = -2
	scoreJDPresent     = 1
	scoreJDMissing     = -1
	scoreJDShell       = -2
	scoreYearsWithin   = 1
	scoreSalaryMeets   = 1
	scoreSalaryBelow   = -2
)

var (
	remotePattern    = regexp.MustCompile(`(?i)\b(?:remote|work[\s-]?from[\s-]?home|distributed|anywhere)\b`)
	onsitePattern    = regexp.MustCompile(`(?i)\b(?:on[\s-]?site|onsite|in[\s-]?office|office[\s-]?based)\b`)
	hybridPattern    = regexp.MustCompile(`(?i)\bhybrid\b`)
	nonRemotePattern = regexp.MustCompile(`(?i)\b(?:not\s+remote|non[\s-]?remote|must\s+be\s+on[\s-]?site)\b`)

	earlyCareerPattern = regexp.MustCompile(
		`(?i)\b(?:intern|internship|new[\s-]?grad(?:uate)?|co[\s-]?op|apprentice|fellowship)\b`)

	shellTextPattern = regexp.MustCompile(
		`(?i)(skip to main content linkedin|agree & join linkedin|sign in to view|` +
			`this button displays the currently selected search type)`)
	closedPostingPattern = regexp.MustCompile(
		`(?i)\b(?:no longer available|no longer accepting applications|position\s+has been filled|` +
			`posting is no longer active|page not found)\b`)
	listingTitlePattern = regexp.MustCompile(
		`(?i)\b(?:jobs?,\s*employment|jobs?\s+in\s+|search results?|open positions?)\b`)

	camelBoundaryPattern = regexp.MustCompile(`([a-z])([A-Z])`)
)

// keywordPattern pairs a configured keyword with its compiled word-boundary
// matcher. Substring matching is deliberately avoided: "soc" must not match
// inside "associate".
type keywordPattern struct {
	word string
	re   *regexp.Regexp
}

func compileKeywords(words []string) []keywordPattern {
	patterns := make([]keywordPattern, 0, len(words))
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(w) + `\b`)
		patterns = append(patterns, keywordPattern{word: w, re: re})
	}
	return patterns
}

func firstMatch(patterns []keywordPattern, text string) (string, bool) {
	for _, p := range patterns {
		if p.re.MatchString(text) {
			return p.word, true
		}
	}
	return "", false
}

// hostBlocklist matches hosts exactly or by domain suffix, so "reddit.com"
// also blocks "old.reddit.com".
type hostBlocklist struct {
	hosts []string
}

func newHostBlocklist(entries []string) *hostBlocklist {
	b := &hostBlocklist{}
	for _, raw := range entries {
		host := strings.TrimPrefix(strings.TrimSpace(strings.ToLower(raw)), "*.")
		host = strings.TrimPrefix(host, ".")
		if host != "" {
			b.hosts = append(b.hosts, host)
		}
	}
	return b
}

func (b *hostBlocklist) Match(host string) (string, bool) {
	host = strings.ToLower(host)
	for _, blocked := range b.hosts {
		if host == blocked || strings.HasSuffix(host, "."+blocked) {
			return blocked, true
		}
	}
	return "", false
}

// cleanTitle splits concatenated board titles like "SecurityEngineering" and
// drops trailing bullet-separated location noise.
func cleanTitle(raw string) string {
	cleaned := camelBoundaryPattern.ReplaceAllString(raw, "$1 $2")
	if idx := strings.Index(cleaned, "•"); idx >= 0 {
		cleaned = cleaned[:idx]
	}
	return strings.TrimSpace(cleaned)
}

func combinedText(p scrape.CandidatePosting) string {
	return p.Title + " " + p.Snippet + " " + p.JDText
}

// --- hard stages ---

func (e *Engine) checkURLDomain(p scrape.CandidatePosting, _ *evalState) scrape.FilterVerdict {
	u, err := url.Parse(p.URL)
	if err != nil || u.Hostname() == "" {
		return scrape.FilterVerdict{
			Stage:   StageURLDomain,
			Outcome: scrape.OutcomeHardBlock,
			Reason:  fmt.Sprintf("unparseable url: %s", p.URL),
		}
	}
	if blocked, hit := e.domains.Match(u.Hostname()); hit {
		return scrape.FilterVerdict{
			Stage:   StageURLDomain,
			Outcome: scrape.OutcomeHardBlock,
			Reason:  fmt.Sprintf("blocked domain: %s", blocked),
		}
	}
	return scrape.FilterVerdict{Stage: StageURLDomain, Outcome: scrape.OutcomePass, Reason: "domain ok"}
}

func (e *Engine) checkEarlyCareer(p scrape.CandidatePosting, _ *evalState) scrape.FilterVerdict {
	if m := earlyCareerPattern.FindString(combinedText(p)); m != "" {
		return scrape.FilterVerdict{
			Stage:   StageEarlyCareer,
			Outcome: scrape.OutcomeHardBlock,
			Reason:  fmt.Sprintf("early-career term: %q", m),
		}
	}
	return scrape.FilterVerdict{Stage: StageEarlyCareer, Outcome: scrape.OutcomePass, Reason: "not early-career"}
}

func (e *Engine) checkContentBlocklist(p scrape.CandidatePosting, _ *evalState) scrape.FilterVerdict {
	if term, hit := firstMatch(e.blockTerms, combinedText(p)); hit {
		return scrape.FilterVerdict{
			Stage:   StageContentBlocklist,
			Outcome: scrape.OutcomeHardBlock,
			Reason:  fmt.Sprintf("blocked term: %q", term),
		}
	}
	return scrape.FilterVerdict{Stage: StageContentBlocklist, Outcome: scrape.OutcomePass, Reason: "clean"}
}

// checkRemotePolicy trusts title/snippet over JD body: company boilerplate
// often says "on-site" even for remote roles.
func (e *Engine) checkRemotePolicy(p scrape.CandidatePosting, _ *evalState) scrape.FilterVerdict {
	pass := func(reason string) scrape.FilterVerdict {
		return scrape.FilterVerdict{Stage: StageRemotePolicy, Outcome: scrape.OutcomePass, Reason: reason}
	}
	block := func(reason string) scrape.FilterVerdict {
		return scrape.FilterVerdict{Stage: StageRemotePolicy, Outcome: scrape.OutcomeHardBlock, Reason: reason}
	}

	titleSnippet := p.Title + " " + p.Snippet
	if onsitePattern.MatchString(titleSnippet) {
		return block("onsite in title/snippet")
	}
	if remotePattern.MatchString(titleSnippet) {
		return pass("remote in title/snippet")
	}

	combined := combinedText(p)
	switch {
	case nonRemotePattern.MatchString(combined):
		return block("explicit non-remote signal")
	case remotePattern.MatchString(combined):
		return pass("remote keyword found")
	case hybridPattern.MatchString(combined):
		if e.cfg.HybridCountsAsRemote {
			return pass("hybrid treated as remote-compatible")
		}
		return block("hybrid only")
	case onsitePattern.MatchString(combined):
		return block("onsite signal found")
	case e.cfg.RequireExplicitRemote:
		return block("no explicit remote signal")
	default:
		return pass("no onsite signal")
	}
}

// --- soft stages ---

func (e *Engine) checkTitleRelevance(p scrape.CandidatePosting, _ *evalState) scrape.FilterVerdict {
	if kw, hit := firstMatch(e.titleWords, cleanTitle(p.Title)); hit {
		return scrape.FilterVerdict{
			Stage:   StageTitleRelevance,
			Outcome: scrape.OutcomePass,
			Reason:  fmt.Sprintf("matched %q", kw),
			Score:   scoreTitleMatch,
		}
	}
	return scrape.FilterVerdict{
		Stage:   StageTitleRelevance,
		Outcome: scrape.OutcomeSoftFail,
		Reason:  "no title keyword match",
		Score:   scoreTitleMiss,
	}
}

func (e *Engine) checkTitleRole(p scrape.CandidatePosting, st *evalState) scrape.FilterVerdict {
	if word, hit := firstMatch(e.roleWords, cleanTitle(p.Title)); hit {
		return scrape.FilterVerdict{
			Stage:   StageTitleRole,
			Outcome: scrape.OutcomePass,
			Reason:  fmt.Sprintf("role: %q", word),
			Score:   scoreRoleMatch,
		}
	}
	st.cannotAutoAccept = true
	return scrape.FilterVerdict{
		Stage:   StageTitleRole,
		Outcome: scrape.OutcomeSoftFail,
		Reason:  "no job role word in title",
		Score:   scoreRoleMiss,
	}
}

func (e *Engine) checkSeniority(p scrape.CandidatePosting, st *evalState) scrape.FilterVerdict {
	st.seniority = DetectSeniority(p.Title)
	if _, excluded := e.excludedLvl[st.seniority]; excluded {
		return scrape.FilterVerdict{
			Stage:   StageSeniority,
			Outcome: scrape.OutcomeSoftFail,
			Reason:  fmt.Sprintf("excluded level: %s", st.seniority),
			Score:   scoreSeniorityMiss,
		}
	}
	return scrape.FilterVerdict{
		Stage:   StageSeniority,
		Outcome: scrape.OutcomePass,
		Reason:  fmt.Sprintf("level: %s", st.seniority),
	}
}

func (e *Engine) checkJDQuality(p scrape.CandidatePosting, _ *evalState) scrape.FilterVerdict {
	softFail := func(reason string, score int) scrape.FilterVerdict {
		return scrape.FilterVerdict{Stage: StageJDQuality, Outcome: scrape.OutcomeSoftFail, Reason: reason, Score: score}
	}

	if listingTitlePattern.MatchString(cleanTitle(p.Title)) {
		return softFail("listing/search page title", scoreJDShell)
	}
	jd := strings.TrimSpace(p.JDText)
	if jd == "" {
		return softFail("missing JD text", scoreJDMissing)
	}
	if len(jd) < e.cfg.MinJDChars {
		return softFail(fmt.Sprintf("JD too short (<%d chars)", e.cfg.MinJDChars), scoreJDMissing)
	}
	if shellTextPattern.MatchString(jd) {
		return softFail("shell-like JD text", scoreJDShell)
	}
	if closedPostingPattern.MatchString(jd) {
		return softFail("closed/expired posting", scoreJDShell)
	}
	return scrape.FilterVerdict{
		Stage:   StageJDQuality,
		Outcome: scrape.OutcomePass,
		Reason:  "substantive JD",
		Score:   scoreJDPresent,
	}
}

func (e *Engine) checkExperience(p scrape.CandidatePosting, _ *evalState) scrape.FilterVerdict {
	neutral := func(reason string) scrape.FilterVerdict {
		return scrape.FilterVerdict{Stage: StageExperience, Outcome: scrape.OutcomePass, Reason: reason}
	}
	if p.JDText == "" {
		return neutral("no JD text")
	}
	years, ok := e.parseYears(p.JDText)
	if !ok {
		// Ambiguous parse resolves to a neutral contribution, never a block.
		return neutral("no experience requirement found")
	}
	if years > e.cfg.MaxExperienceYears {
		over := years - e.cfg.MaxExperienceYears
		penalty := -2
		if over > 2 {
			penalty = -3
		}
		return scrape.FilterVerdict{
			Stage:   StageExperience,
			Outcome: scrape.OutcomeSoftFail,
			Reason:  fmt.Sprintf("%dyr > %dyr max", years, e.cfg.MaxExperienceYears),
			Score:   penalty,
		}
	}
	return scrape.FilterVerdict{
		Stage:   StageExperience,
		Outcome: scrape.OutcomePass,
		Reason:  fmt.Sprintf("%dyr <= %dyr max", years, e.cfg.MaxExperienceYears),
		Score:   scoreYearsWithin,
	}
}

func (e *Engine) checkSalary(p scrape.CandidatePosting, _ *evalState) scrape.FilterVerdict {
	neutral := func(reason string) scrape.FilterVerdict {
		return scrape.FilterVerdict{Stage: StageSalary, Outcome: scrape.OutcomePass, Reason: reason}
	}
	if e.cfg.MinSalaryK <= 0 {
		return neutral("salary floor disabled")
	}
	if p.JDText == "" {
		return neutral("no JD text")
	}
	salary, ok := e.parseSalary(p.JDText)
	if !ok {
		return neutral("no salary signal found")
	}
	floor := e.cfg.MinSalaryK * 1000
	if salary < floor {
		return scrape.FilterVerdict{
			Stage:   StageSalary,
			Outcome: scrape.OutcomeSoftFail,
			Reason:  fmt.Sprintf("max salary $%d < $%dK floor", salary, e.cfg.MinSalaryK),
			Score:   scoreSalaryBelow,
		}
	}
	return scrape.FilterVerdict{
		Stage:   StageSalary,
		Outcome: scrape.OutcomePass,
		Reason:  fmt.Sprintf("salary $%d meets $%dK floor", salary, e.cfg.MinSalaryK),
		Score:   scoreSalaryMeets,
	}
}
