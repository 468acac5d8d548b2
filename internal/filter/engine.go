// Package filter implements the ordered filtering and scoring pipeline that
// decides the disposition of a candidate posting.
package filter

import (
	"fmt"

	"github.com/cjordan223/web-scrape-ai/internal/scrape"
)

// Config captures every knob the pipeline consumes. It is passed explicitly
// and never read from process-wide state, so concurrent evaluations may use
// distinct configurations.
type Config struct {
	TitleKeywords         []string
	TitleRoleWords        []string
	SeniorityExclude      []string
	EarlyCareerExclude    bool
	MaxExperienceYears    int
	ContentBlocklist      []string
	URLDomainBlocklist    []string
	RequireRemote         bool
	RequireExplicitRemote bool
	HybridCountsAsRemote  bool
	MinSalaryK            int
	MinJDChars            int
	AcceptThreshold       int
	RejectThreshold       int
}

// Validate enforces the threshold ordering invariant before any posting is
// processed.
func (c Config) Validate() error {
	if c.AcceptThreshold < c.RejectThreshold {
		return fmt.Errorf("%w: score_accept_threshold (%d) < score_reject_threshold (%d)",
			scrape.ErrConfigValidation, c.AcceptThreshold, c.RejectThreshold)
	}
	if c.MaxExperienceYears < 0 {
		return fmt.Errorf("%w: max_experience_years must be >= 0", scrape.ErrConfigValidation)
	}
	if c.MinSalaryK < 0 {
		return fmt.Errorf("%w: min_salary_k must be >= 0", scrape.ErrConfigValidation)
	}
	return nil
}

type stageKind int

const (
	hardStage stageKind = iota
	softStage
)

// stage is one named pipeline step. Hard stages may end evaluation with a
// hard-block verdict; soft stages contribute signed scores and never halt.
type stage struct {
	name string
	kind stageKind
	run  func(p scrape.CandidatePosting, st *evalState) scrape.FilterVerdict
}

// evalState accumulates cross-stage signals for a single evaluation.
type evalState struct {
	seniority        scrape.Seniority
	cannotAutoAccept bool
}

// Engine evaluates candidate postings against a fixed configuration. It is
// stateless after construction and safe for concurrent use.
type Engine struct {
	cfg    Config
	stages []stage

	domains     *hostBlocklist
	titleWords  []keywordPattern
	roleWords   []keywordPattern
	blockTerms  []keywordPattern
	excludedLvl map[scrape.Seniority]struct{}

	parseYears  YearsParser
	parseSalary SalaryParser
}

// Option customizes engine construction.
type Option func(*Engine)

// WithYearsParser swaps the experience-years heuristic.
func WithYearsParser(p YearsParser) Option {
	return func(e *Engine) { e.parseYears = p }
}

// WithSalaryParser swaps the salary heuristic.
func WithSalaryParser(p SalaryParser) Option {
	return func(e *Engine) { e.parseSalary = p }
}

// NewEngine validates cfg and compiles the stage list.
func NewEngine(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		cfg:         cfg,
		domains:     newHostBlocklist(cfg.URLDomainBlocklist),
		titleWords:  compileKeywords(cfg.TitleKeywords),
		roleWords:   compileKeywords(cfg.TitleRoleWords),
		blockTerms:  compileKeywords(cfg.ContentBlocklist),
		excludedLvl: make(map[scrape.Seniority]struct{}, len(cfg.SeniorityExclude)),
		parseYears:  ParseExperienceYears,
		parseSalary: ParseSalaryMax,
	}
	for _, lvl := range cfg.SeniorityExclude {
		e.excludedLvl[scrape.Seniority(lvl)] = struct{}{}
	}
	for _, opt := range opts {
		opt(e)
	}
	e.stages = e.buildStages()
	return e, nil
}

// buildStages assembles the ordered pipeline. Hard policy gates run first so
// trails for obviously-excluded postings stay short; soft signals follow and
// only their sum decides borderline postings.
func (e *Engine) buildStages() []stage {
	stages := []stage{
		{name: StageURLDomain, kind: hardStage, run: e.checkURLDomain},
	}
	if e.cfg.EarlyCareerExclude {
		stages = append(stages, stage{name: StageEarlyCareer, kind: hardStage, run: e.checkEarlyCareer})
	}
	stages = append(stages, stage{name: StageContentBlocklist, kind: hardStage, run: e.checkContentBlocklist})
	if e.cfg.RequireRemote {
		stages = append(stages, stage{name: StageRemotePolicy, kind: hardStage, run: e.checkRemotePolicy})
	}
	stages = append(stages,
		stage{name: StageTitleRelevance, kind: softStage, run: e.checkTitleRelevance},
		stage{name: StageTitleRole, kind: softStage, run: e.checkTitleRole},
		stage{name: StageSeniority, kind: softStage, run: e.checkSeniority},
		stage{name: StageJDQuality, kind: softStage, run: e.checkJDQuality},
		stage{name: StageExperience, kind: softStage, run: e.checkExperience},
		stage{name: StageSalary, kind: softStage, run: e.checkSalary},
	)
	return stages
}

// Evaluate runs the pipeline over one posting. It is a pure function of the
// posting and the engine's configuration.
func (e *Engine) Evaluate(p scrape.CandidatePosting) scrape.Evaluation {
	st := &evalState{seniority: scrape.SeniorityUnknown}
	trail := make(scrape.VerdictTrail, 0, len(e.stages))

	for _, s := range e.stages {
		v := s.run(p, st)
		trail = append(trail, v)
		if s.kind == hardStage && v.Outcome == scrape.OutcomeHardBlock {
			return scrape.Evaluation{
				Disposition: scrape.DispositionRejected,
				Trail:       trail,
				Seniority:   st.seniority,
			}
		}
	}

	score := 0
	for _, v := range trail {
		score += v.Score
	}

	return scrape.Evaluation{
		Disposition:      e.disposition(score, st),
		Trail:            trail,
		Score:            score,
		Seniority:        st.seniority,
		CannotAutoAccept: st.cannotAutoAccept,
	}
}

// disposition maps the aggregate score onto the configured thresholds.
// Thresholds are inclusive of their side. A posting whose title shows no
// recognizable role word can never auto-accept; it is capped at quarantine
// so a human reviews it.
func (e *Engine) disposition(score int, st *evalState) scrape.Disposition {
	switch {
	case score >= e.cfg.AcceptThreshold && !st.cannotAutoAccept:
		return scrape.DispositionAccepted
	case score >= e.cfg.AcceptThreshold:
		return scrape.DispositionQuarantined
	case score <= e.cfg.RejectThreshold:
		return scrape.DispositionRejected
	default:
		return scrape.DispositionQuarantined
	}
}
