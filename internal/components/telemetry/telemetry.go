package telemetry

import (
	"fmt"
)

// API is what every component reports through. Production code gets a
// SlogAPI, tests get a Recorder and assert on what was reported.
type API interface {
	// ReportBroken reports a failure the operator has to act on.
	//
	// Ids are `<component>.<operation>` in lowercase with dashes inside the
	// operation, e.g. `engine.fetch-page` or `store.load`. The package is added by
	// a ScopedAPI, the cause goes into params.
	ReportBroken(id string, params ...any)

	// ReportWarning reports something odd that did not stop the run, like a field
	// the normalizer had to drop. Ids follow ReportBroken.
	ReportWarning(id string, params ...any)

	// ReportDebug is only visible with --verbose.
	ReportDebug(msg string, params ...any)

	// ReportCount reports a count observed at this point of a run, e.g. the
	// records one engine run produced.
	ReportCount(id string, count int64)
}

// ScopedAPI prefixes every id with a namespace, so `engine.run` reported
// under "ingest" becomes `ingest: engine.run`.
type ScopedAPI struct {
	namespace string
	inner     API
}

func NewScopedAPI(namespace string, inner API) ScopedAPI {
	return ScopedAPI{namespace: namespace, inner: inner}
}

func (s ScopedAPI) ReportBroken(id string, params ...any) {
	s.inner.ReportBroken(s.qualify(id), params...)
}

func (s ScopedAPI) ReportWarning(id string, params ...any) {
	s.inner.ReportWarning(s.qualify(id), params...)
}

func (s ScopedAPI) ReportDebug(msg string, params ...any) {
	s.inner.ReportDebug(s.qualify(msg), params...)
}

func (s ScopedAPI) ReportCount(id string, count int64) {
	s.inner.ReportCount(s.qualify(id), count)
}

func (s ScopedAPI) qualify(id string) string {
	return fmt.Sprintf("%s: %s", s.namespace, id)
}
