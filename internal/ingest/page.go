package ingest

import (
	"maps"
	"net/url"
	"slices"
	"strconv"

	"corossync/internal/classify"
	"corossync/internal/normalize"
)

// DefaultFilter is sent with every page unless the caller configures its own,
// an empty modeList asks for every sport.
var DefaultFilter = map[string]string{"modeList": ""}

type StoppedReason string

const (
	// Exhausted means the platform reported no pages beyond the last one fetched.
	Exhausted        StoppedReason = "exhausted"
	EmptyPage        StoppedReason = "empty-page"
	ClassifierError  StoppedReason = "classifier-error"
	PageLimitReached StoppedReason = "page-limit-reached"
)

// FetchPage describes a single page request.
type FetchPage struct {
	PageNumber   int
	PageSize     int
	FilterParams map[string]string
}

// reservedQueryKeys are set from the page itself and win over any filter.
var reservedQueryKeys = []string{"size", "pageNumber"}

func (p FetchPage) Query() url.Values {
	query := url.Values{}
	for _, key := range slices.Sorted(maps.Keys(p.FilterParams)) {
		query.Set(key, p.FilterParams[key])
	}
	query.Set("size", strconv.Itoa(p.PageSize))
	query.Set("pageNumber", strconv.Itoa(p.PageNumber))
	return query
}

type RunResult struct {
	Records       normalize.ActivityList
	PagesFetched  int
	StoppedReason StoppedReason
	// StoppedReason is ClassifierError for every run that returned an error,
	// including a rejected credential or a cancelled context.
	// Outcome is the failing classification when StoppedReason is ClassifierError
	// and the failure came from the response rather than the normalizer.
	Outcome *classify.Outcome
}
