// Package scrape defines core types shared across subsystems.
package scrape

import (
	"net/url"
	"strings"
	"time"
)

// JobBoard identifies the applicant-tracking system a posting originated from.
type JobBoard string

// Known job boards. Discovery collaborators tag candidates with these values;
// anything unrecognized maps to BoardUnknown.
const (
	BoardGreenhouse      JobBoard = "greenhouse"
	BoardLever           JobBoard = "lever"
	BoardAshby           JobBoard = "ashby"
	BoardWorkday         JobBoard = "workday"
	BoardICIMS           JobBoard = "icims"
	BoardSmartRecruiters JobBoard = "smartrecruiters"
	BoardLinkedIn        JobBoard = "linkedin"
	BoardUnknown         JobBoard = "unknown"
)

// ParseBoard maps a free-form board identifier to a JobBoard value.
func ParseBoard(s string) JobBoard {
	switch JobBoard(strings.ToLower(strings.TrimSpace(s))) {
	case BoardGreenhouse:
		return BoardGreenhouse
	case BoardLever:
		return BoardLever
	case BoardAshby:
		return BoardAshby
	case BoardWorkday:
		return BoardWorkday
	case BoardICIMS:
		return BoardICIMS
	case BoardSmartRecruiters:
		return BoardSmartRecruiters
	case BoardLinkedIn:
		return BoardLinkedIn
	default:
		return BoardUnknown
	}
}

// BoardFromURL infers the board from the URL's hostname when a discovery
// collaborator did not tag the candidate. Only the host is matched, so a
// board domain appearing in a path or query never mistags the posting.
func BoardFromURL(rawURL string) JobBoard {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return BoardUnknown
	}
	host := strings.ToLower(u.Hostname())
	switch {
	case hostMatches(host, "greenhouse.io"):
		return BoardGreenhouse
	case hostMatches(host, "lever.co"):
		return BoardLever
	case hostMatches(host, "ashbyhq.com"):
		return BoardAshby
	case hostMatches(host, "myworkdayjobs.com"):
		return BoardWorkday
	case hostMatches(host, "icims.com"):
		return BoardICIMS
	case hostMatches(host, "smartrecruiters.com"):
		return BoardSmartRecruiters
	case hostMatches(host, "linkedin.com"):
		return BoardLinkedIn
	default:
		return BoardUnknown
	}
}

func hostMatches(host, domain string) bool {
	return host == domain || strings.HasSuffix(host, "."+domain)
}

// Seniority is the level inferred from a posting title.
type Seniority string

// Seniority levels, ordered roughly by career progression.
const (
	SeniorityJunior    Seniority = "junior"
	SeniorityMid       Seniority = "mid"
	SenioritySenior    Seniority = "senior"
	SeniorityStaff     Seniority = "staff"
	SeniorityPrincipal Seniority = "principal"
	SeniorityLead      Seniority = "lead"
	SeniorityManager   Seniority = "manager"
	SeniorityDirector  Seniority = "director"
	SeniorityUnknown   Seniority = "unknown"
)

// CandidatePosting is the raw input handed over by a discovery collaborator.
// It is immutable for the duration of a run.
type CandidatePosting struct {
	URL     string   `json:"url"`
	Title   string   `json:"title"`
	Snippet string   `json:"snippet"`
	Board   JobBoard `json:"board"`
	Query   string   `json:"query"`
	JDText  string   `json:"jd_text,omitempty"`
}

// Outcome is the result class of a single filter stage.
type Outcome string

// Stage outcomes. A hard block ends evaluation immediately; a soft fail
// contributes a negative score but never halts the pipeline.
const (
	OutcomePass      Outcome = "pass"
	OutcomeSoftFail  Outcome = "soft-fail"
	OutcomeHardBlock Outcome = "hard-block"
)

// FilterVerdict is the auditable result of one pipeline stage.
type FilterVerdict struct {
	Stage   string  `json:"stage"`
	Outcome Outcome `json:"outcome"`
	Reason  string  `json:"reason"`
	Score   int     `json:"score,omitempty"`
}

// VerdictTrail is the ordered sequence of verdicts for one posting, in
// pipeline execution order. A hard-block verdict is always the last entry.
type VerdictTrail []FilterVerdict

// Final returns the last verdict of the trail, or a zero value when empty.
func (t VerdictTrail) Final() FilterVerdict {
	if len(t) == 0 {
		return FilterVerdict{}
	}
	return t[len(t)-1]
}

// Disposition is the terminal outcome for a posting. It is derived from the
// verdict trail and aggregate score, never assigned directly.
type Disposition string

// Posting dispositions.
const (
	DispositionAccepted    Disposition = "accepted"
	DispositionRejected    Disposition = "rejected"
	DispositionQuarantined Disposition = "quarantined"
)

// Evaluation is the full output of the filter engine for one posting.
type Evaluation struct {
	Disposition      Disposition
	Trail            VerdictTrail
	Score            int
	Seniority        Seniority
	CannotAutoAccept bool
}

// RunStatus is the lifecycle state of a scrape run.
type RunStatus string

// Run status values persisted in the run ledger.
const (
	RunStatusRunning RunStatus = "running"
	RunStatusSuccess RunStatus = "success"
	RunStatusPartial RunStatus = "partial"
	RunStatusFailed  RunStatus = "failed"
)

// ScrapeRun is the ledger entry for one discovery-to-persistence cycle.
// The coordinator mutates it while the run is in flight; once finalized and
// persisted it is immutable.
type ScrapeRun struct {
	ID               string        `json:"run_id"`
	StartedAt        time.Time     `json:"started_at"`
	CompletedAt      time.Time     `json:"completed_at"`
	Elapsed          time.Duration `json:"elapsed"`
	RawCount         int           `json:"raw_count"`
	DedupCount       int           `json:"dedup_count"`
	AcceptedCount    int           `json:"accepted_count"`
	RejectedCount    int           `json:"rejected_count"`
	QuarantinedCount int           `json:"quarantined_count"`
	ErrorCount       int           `json:"error_count"`
	Errors           []string      `json:"errors,omitempty"`
	Status           RunStatus     `json:"status"`
}
