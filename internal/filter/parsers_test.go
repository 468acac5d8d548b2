package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseExperienceYears(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		text  string
		want  int
		found bool
	}{
		{"plus form", "5+ years of experience", 5, true},
		{"range takes minimum", "3-5 years in security operations", 3, true},
		{"plain form", "requires 4 years building detections", 4, true},
		{"multiple figures take max", "2 years scripting, 7+ years engineering", 7, true},
		{"singular year", "1 year of exposure", 1, true},
		{"no figure", "extensive experience preferred", 0, false},
		{"empty", "", 0, false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, ok := ParseExperienceYears(tc.text)
			assert.Equal(t, tc.found, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseSalaryMax(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		text  string
		want  int
		found bool
	}{
		{
			name:  "dollar range in salary context",
			text:  "The salary range for this role is $120,000 - $150,000 per year.",
			want:  150000,
			found: true,
		},
		{
			name:  "k suffix with context",
			text:  "Base pay: 140k - 170k annually.",
			want:  170000,
			found: true,
		},
		{
			name:  "dollar k suffix",
			text:  "Total compensation up to $185k.",
			want:  185000,
			found: true,
		},
		{
			name:  "401k is not a salary",
			text:  "Benefits include a 401k match and annual bonus.",
			want:  0,
			found: false,
		},
		{
			name:  "figure without compensation context ignored",
			text:  "We serve $200,000 customers worldwide.",
			want:  0,
			found: false,
		},
		{
			name:  "implausibly small figure ignored",
			text:  "salary: $500 per year",
			want:  0,
			found: false,
		},
		{
			name:  "implausibly large figure ignored",
			text:  "annual revenue of $5,000,000",
			want:  0,
			found: false,
		},
		{
			name:  "no figures",
			text:  "Competitive compensation.",
			want:  0,
			found: false,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, ok := ParseSalaryMax(tc.text)
			assert.Equal(t, tc.found, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}
