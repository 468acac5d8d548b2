package urlnorm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cjordan223/web-scrape-ai/internal/scrape"
)

func TestCanonicalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "lowercases host and strips www",
			in:   "https://WWW.Example.COM/Jobs/123",
			want: "https://example.com/Jobs/123",
		},
		{
			name: "strips default https port",
			in:   "https://example.com:443/jobs/123",
			want: "https://example.com/jobs/123",
		},
		{
			name: "strips default http port",
			in:   "http://example.com:80/jobs/123",
			want: "http://example.com/jobs/123",
		},
		{
			name: "keeps non-default port",
			in:   "https://example.com:8443/jobs/123",
			want: "https://example.com:8443/jobs/123",
		},
		{
			name: "drops tracking params and sorts the rest",
			in:   "https://example.com/jobs?utm_source=x&b=2&a=1&ref=abc",
			want: "https://example.com/jobs?a=1&b=2",
		},
		{
			name: "drops any utm-prefixed param",
			in:   "https://example.com/jobs?utm_whatever=1&id=9",
			want: "https://example.com/jobs?id=9",
		},
		{
			name: "trims trailing slash",
			in:   "https://example.com/jobs/123/",
			want: "https://example.com/jobs/123",
		},
		{
			name: "preserves root path",
			in:   "https://example.com",
			want: "https://example.com/",
		},
		{
			name: "trims surrounding whitespace",
			in:   "  https://example.com/jobs/123  ",
			want: "https://example.com/jobs/123",
		},
		{
			name: "greenhouse host alias",
			in:   "https://job-boards.greenhouse.io/acme/jobs/400123",
			want: "https://boards.greenhouse.io/acme/jobs/400123",
		},
		{
			name: "greenhouse drops query entirely",
			in:   "https://boards.greenhouse.io/acme/jobs/400123?gh_src=abc&t=xyz",
			want: "https://boards.greenhouse.io/acme/jobs/400123",
		},
		{
			name: "linkedin drops query entirely",
			in:   "https://www.linkedin.com/jobs/view/3791234567?refId=x&trackingId=y",
			want: "https://linkedin.com/jobs/view/3791234567",
		},
		{
			name: "lever strips apply suffix",
			in:   "https://jobs.lever.co/acme/1234-5678/apply?lever-source=x",
			want: "https://jobs.lever.co/acme/1234-5678",
		},
		{
			name: "workday strips apply path",
			in:   "https://acme.wd1.myworkdayjobs.com/en-US/careers/job/Remote/Security-Engineer_R123/apply/autofillWithResume",
			want: "https://acme.wd1.myworkdayjobs.com/en-US/careers/job/Remote/Security-Engineer_R123",
		},
		{
			name: "icims rewrites login to job",
			in:   "https://careers-acme.icims.com/jobs/5678/security-engineer/job/login",
			want: "https://careers-acme.icims.com/jobs/5678/security-engineer/job",
		},
		{
			name: "icims rewrites apply to job",
			in:   "https://careers-acme.icims.com/jobs/5678/security-engineer/job/apply/interstitial",
			want: "https://careers-acme.icims.com/jobs/5678/security-engineer/job",
		},
		{
			name: "ashby drops query",
			in:   "https://jobs.ashbyhq.com/acme/1b2c?utm_campaign=x&src=li",
			want: "https://jobs.ashbyhq.com/acme/1b2c",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := Canonicalize(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

// Canonical output fed back in must come out unchanged.
func TestCanonicalizeIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"https://WWW.Example.com/jobs?utm_source=x&b=2&a=1",
		"https://job-boards.greenhouse.io/acme/jobs/1?gh_src=z",
		"https://jobs.lever.co/acme/1234/apply",
		"https://careers-acme.icims.com/jobs/5678/role/job/login",
		"https://example.com",
	}

	for _, in := range inputs {
		first, err := Canonicalize(in)
		require.NoError(t, err)
		second, err := Canonicalize(first)
		require.NoError(t, err)
		assert.Equal(t, first, second, "input %q", in)
	}
}

func TestCanonicalizeMalformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"whitespace only", "   "},
		{"no scheme", "example.com/jobs"},
		{"ftp scheme", "ftp://example.com/jobs"},
		{"mailto", "mailto:jobs@example.com"},
		{"scheme only", "https://"},
		{"control characters", "https://exa mple.com/\x7f"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := Canonicalize(tc.in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, scrape.ErrMalformedURL), "got %v", err)
		})
	}
}

func TestNewRulesCustomStripParams(t *testing.T) {
	t.Parallel()

	rules := NewRules([]string{"Track"}, nil, []BoardRule{
		{HostContains: "example.com", StripParams: []string{"session"}},
	})

	got, err := rules.Canonicalize("https://example.com/jobs?track=1&session=abc&id=9")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/jobs?id=9", got)
}
