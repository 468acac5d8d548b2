// Package urlnorm normalizes posting URLs into stable dedup keys.
package urlnorm

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/cjordan223/web-scrape-ai/internal/scrape"
)

// BoardRule describes board-specific canonicalization for hosts matching
// HostContains. Rules are configuration, not code: adding a board never
// changes the algorithm.
type BoardRule struct {
	// HostContains matches when the substring appears in the lowercased host.
	HostContains string
	// DropQuery discards the entire query string; the job identity lives in
	// the path on these boards.
	DropQuery bool
	// StripParams lists additional query parameters to drop, lowercased.
	StripParams []string
	// PathPattern/PathReplace rewrite apply/login path variants back to the
	// canonical posting path.
	PathPattern *regexp.Regexp
	PathReplace string
}

// Rules holds the full canonicalization table.
type Rules struct {
	trackingParams map[string]struct{}
	hostAliases    map[string]string
	boards         []BoardRule
}

// NewRules builds a rule table from a tracking-parameter list, host alias
// map, and board rules. Parameter names are matched case-insensitively.
func NewRules(trackingParams []string, hostAliases map[string]string, boards []BoardRule) *Rules {
	params := make(map[string]struct{}, len(trackingParams))
	for _, p := range trackingParams {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			params[p] = struct{}{}
		}
	}
	aliases := make(map[string]string, len(hostAliases))
	for from, to := range hostAliases {
		aliases[strings.ToLower(from)] = strings.ToLower(to)
	}
	return &Rules{trackingParams: params, hostAliases: aliases, boards: boards}
}

var defaultTrackingParams = []string{
	"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content",
	"ref", "refid", "trackingid", "trk", "position", "pagenum",
	"originalsubdomain", "lipi", "gh_src", "source",
}

var (
	leverApplyPattern   = regexp.MustCompile(`(?i)/apply/?$`)
	workdayApplyPattern = regexp.MustCompile(`(?i)/apply(?:/[^/?#]+)*$`)
	icimsApplyPattern   = regexp.MustCompile(`(?i)/job/(?:login|apply(?:/.*)?)$`)
)

// DefaultRules returns the rule table for the known job boards.
func DefaultRules() *Rules {
	return NewRules(defaultTrackingParams,
		map[string]string{
			// Greenhouse exposes equivalent links on both hosts.
			"job-boards.greenhouse.io": "boards.greenhouse.io",
		},
		[]BoardRule{
			{HostContains: "linkedin.com", DropQuery: true},
			{HostContains: "jobs.lever.co", DropQuery: true, PathPattern: leverApplyPattern},
			{HostContains: "boards.greenhouse.io", DropQuery: true},
			{HostContains: "simplyhired.com", DropQuery: true},
			{HostContains: "ashbyhq.com", DropQuery: true},
			{HostContains: "myworkdayjobs.com", PathPattern: workdayApplyPattern},
			{HostContains: "icims.com", PathPattern: icimsApplyPattern, PathReplace: "/job"},
		},
	)
}

// Canonicalize normalizes rawURL using the default rule table.
func Canonicalize(rawURL string) (string, error) {
	return DefaultRules().Canonicalize(rawURL)
}

// Canonicalize normalizes a posting URL into its canonical identity key.
// It is pure and idempotent: canonicalizing an already-canonical URL yields
// itself. Unparseable input returns an error matching scrape.ErrMalformedURL.
func (r *Rules) Canonicalize(rawURL string) (string, error) {
	trimmed := strings.TrimSpace(rawURL)
	u, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", scrape.ErrMalformedURL, rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: %q: unsupported scheme", scrape.ErrMalformedURL, rawURL)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: %q: missing host", scrape.ErrMalformedURL, rawURL)
	}

	host := strings.ToLower(u.Host)
	host = strings.TrimPrefix(host, "www.")
	if u.Scheme == "http" {
		host = strings.TrimSuffix(host, ":80")
	}
	if u.Scheme == "https" {
		host = strings.TrimSuffix(host, ":443")
	}
	if alias, ok := r.hostAliases[host]; ok {
		host = alias
	}

	path := u.Path
	if path == "" {
		path = "/"
	}

	rule := r.match(host)
	if rule != nil && rule.PathPattern != nil {
		path = rule.PathPattern.ReplaceAllString(path, rule.PathReplace)
		if path == "" {
			path = "/"
		}
	}
	if path != "/" {
		path = strings.TrimSuffix(path, "/")
	}

	query := ""
	if rule == nil || !rule.DropQuery {
		query = r.filterQuery(u.Query(), rule)
	}

	canon := url.URL{
		Scheme:   strings.ToLower(u.Scheme),
		Host:     host,
		Path:     path,
		RawQuery: query,
	}
	return canon.String(), nil
}

func (r *Rules) match(host string) *BoardRule {
	for i := range r.boards {
		if strings.Contains(host, r.boards[i].HostContains) {
			return &r.boards[i]
		}
	}
	return nil
}

// filterQuery drops tracking parameters and board-specific noise, then
// re-encodes the remainder with sorted keys so equal parameter sets always
// render identically.
func (r *Rules) filterQuery(values url.Values, rule *BoardRule) string {
	keys := make([]string, 0, len(values))
	for key := range values {
		lk := strings.ToLower(key)
		if _, drop := r.trackingParams[lk]; drop {
			continue
		}
		if strings.HasPrefix(lk, "utm_") {
			continue
		}
		if rule != nil && containsString(rule.StripParams, lk) {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	kept := url.Values{}
	for _, key := range keys {
		kept[key] = values[key]
	}
	return kept.Encode()
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
