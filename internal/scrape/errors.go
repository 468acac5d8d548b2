package scrape

import "errors"

// Sentinel errors shared across the pipeline. Callers match them with
// errors.Is after wrapping.
var (
	// ErrMalformedURL reports an unparseable posting URL. The coordinator
	// converts it into a url_domain hard-block verdict rather than failing
	// the run.
	ErrMalformedURL = errors.New("malformed url")

	// ErrDuplicateRecord reports a persistence attempt for a canonical URL
	// that already carries a decision. The first decision is final; the
	// coordinator recovers this as a dedup skip.
	ErrDuplicateRecord = errors.New("duplicate decision record")

	// ErrConfigValidation reports an invalid configuration. It is fatal at
	// run start, before any posting is processed.
	ErrConfigValidation = errors.New("config validation failed")
)
