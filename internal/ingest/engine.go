// Package ingest pulls the activity history page by page.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"corossync/internal/auth"
	"corossync/internal/classify"
	"corossync/internal/components/assert"
	"corossync/internal/components/telemetry"
	"corossync/internal/credential"
	"corossync/internal/normalize"
	"corossync/lib/restyutil"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

const (
	report_engine_run        = "engine.run"
	report_engine_fetch_page = "engine.fetch-page"
	report_engine_records    = "engine.records"
)

const DefaultApiUrl = "https://teamcnapi.coros.com/activity/query"

var tracer = otel.Tracer("corossync/internal/ingest")

type Options struct {
	// ApiUrl is the activity query endpoint.
	ApiUrl string
	// Timeout bounds every page request, it must be positive.
	Timeout time.Duration
	// PageDelay is the minimum time between the start of two page requests.
	PageDelay time.Duration
	// Filter replaces DefaultFilter when not nil.
	Filter     map[string]string
	Resolver   auth.Resolver
	Normalizer normalize.Normalizer
	// Dump receives every exchange when set, see restyutil.InstrumentClient.
	Dump restyutil.InstrumentOutput
}

// Engine runs one page request at a time, it is not safe for concurrent runs.
type Engine struct {
	http       *resty.Client
	apiUrl     string
	filter     map[string]string
	limiter    *rate.Limiter
	resolver   auth.Resolver
	classifier classify.Classifier
	normalizer normalize.Normalizer
	tel        telemetry.API
}

func NewEngine(opts Options, tel telemetry.API) (*Engine, error) {
	assert.NotNil(tel, "tel")

	if opts.ApiUrl == "" {
		opts.ApiUrl = DefaultApiUrl
	}
	if opts.Timeout <= 0 {
		return nil, fmt.Errorf("page request timeout must be positive, got %s", opts.Timeout)
	}
	if opts.PageDelay < 0 {
		return nil, fmt.Errorf("page delay must not be negative, got %s", opts.PageDelay)
	}
	apiUrl, err := url.Parse(opts.ApiUrl)
	if err != nil || apiUrl.Hostname() == "" {
		return nil, fmt.Errorf("invalid api url %q", opts.ApiUrl)
	}
	filter := opts.Filter
	if filter == nil {
		filter = DefaultFilter
	}
	for _, key := range reservedQueryKeys {
		_, ok := filter[key]
		if ok {
			return nil, fmt.Errorf("filter must not set %q, it is controlled by the engine", key)
		}
	}

	tel = telemetry.NewScopedAPI("ingest", tel)

	client := resty.New()
	client.SetTimeout(opts.Timeout)
	// every cookie sent comes from the credential, nothing the server sets is kept.
	client.SetCookieJar(nil)
	// the identity header is only ever sent to the platform's own host.
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(apiUrl.Hostname()))

	restyutil.InstrumentClient(client, tracer, opts.Dump, restyutil.NewRedactor(opts.Resolver.TokenHeader()))
	telemetry.InstrumentResty(client, tel)

	limit := rate.Inf
	if opts.PageDelay > 0 {
		limit = rate.Every(opts.PageDelay)
	}

	return &Engine{
		http:       client,
		apiUrl:     opts.ApiUrl,
		filter:     filter,
		limiter:    rate.NewLimiter(limit, 1),
		resolver:   opts.Resolver,
		classifier: classify.NewClassifier(opts.Normalizer.Variant().ListPath),
		normalizer: opts.Normalizer,
		tel:        tel,
	}, nil
}

// Run fetches pages 1 through maxPages until the platform runs out of
// activities or a page fails. Records of a page are appended only once every
// entry on it normalized.
//
// A non-nil error always comes with a partial RunResult that callers should
// not persist.
func (e *Engine) Run(ctx context.Context, cred credential.Credential, maxPages, pageSize int) (RunResult, error) {
	if maxPages < 1 {
		return RunResult{}, fmt.Errorf("max pages must be at least 1, got %d", maxPages)
	}
	if pageSize < 1 {
		return RunResult{}, fmt.Errorf("page size must be at least 1, got %d", pageSize)
	}

	ctx, span := tracer.Start(ctx, "engine.run", trace.WithAttributes(
		attribute.Int("max_pages", maxPages),
		attribute.Int("page_size", pageSize),
		attribute.String("scheme", string(cred.Scheme)),
	))
	defer span.End()

	result, err := e.run(ctx, cred, maxPages, pageSize)
	span.SetAttributes(
		attribute.Int("pages_fetched", result.PagesFetched),
		attribute.Int("records", len(result.Records)),
		attribute.String("stopped_reason", string(result.StoppedReason)),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "run failed")
		e.tel.ReportWarning(report_engine_run, err, result.PagesFetched)
		return result, err
	}

	e.tel.ReportCount(report_engine_records, int64(len(result.Records)))
	e.tel.ReportDebug(report_engine_run, result.StoppedReason, result.PagesFetched)
	return result, nil
}

func (e *Engine) run(ctx context.Context, cred credential.Credential, maxPages, pageSize int) (RunResult, error) {
	result := RunResult{}

	for pageNumber := 1; pageNumber <= maxPages; pageNumber++ {
		err := ctx.Err()
		if err != nil {
			result.StoppedReason = ClassifierError
			return result, fmt.Errorf("cancelled before page %d: %w", pageNumber, err)
		}
		err = e.limiter.Wait(ctx)
		if err != nil {
			result.StoppedReason = ClassifierError
			return result, fmt.Errorf("cancelled before page %d: %w", pageNumber, err)
		}

		page := FetchPage{
			PageNumber:   pageNumber,
			PageSize:     pageSize,
			FilterParams: e.filter,
		}
		outcome, err := e.FetchPage(ctx, cred, page)
		if err != nil {
			result.StoppedReason = ClassifierError
			return result, err
		}
		result.PagesFetched++

		if !outcome.Success() {
			result.StoppedReason = ClassifierError
			result.Outcome = &outcome
			return result, fmt.Errorf("page %d: %w", pageNumber, outcome.Err())
		}
		if len(outcome.Entries) == 0 {
			result.StoppedReason = EmptyPage
			return result, nil
		}

		records, err := e.normalizer.NormalizeAll(outcome.Entries)
		if err != nil {
			result.StoppedReason = ClassifierError
			return result, fmt.Errorf("page %d: %w", pageNumber, err)
		}
		result.Records = append(result.Records, records...)

		if outcome.TotalPages > 0 && pageNumber >= outcome.TotalPages {
			result.StoppedReason = Exhausted
			return result, nil
		}
	}

	result.StoppedReason = PageLimitReached
	return result, nil
}

// FetchPage issues a single page request and classifies what came back. The
// returned error is only set when the request could not be built or ctx was
// cancelled, every other failure is an Outcome.
func (e *Engine) FetchPage(ctx context.Context, cred credential.Credential, page FetchPage) (classify.Outcome, error) {
	ctx, span := tracer.Start(ctx, "engine.fetch-page", trace.WithAttributes(
		attribute.Int("page_number", page.PageNumber),
	))
	defer span.End()

	req := e.http.R().
		SetContext(ctx).
		SetQueryParamsFromValues(page.Query())
	err := e.resolver.Decorate(cred, req)
	if err != nil {
		span.RecordError(err)
		return classify.Outcome{}, err
	}

	res, err := req.Get(e.apiUrl)
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		span.RecordError(err)
		return classify.Outcome{}, fmt.Errorf("page %d: %w", page.PageNumber, ctxErr)
	}

	transport := classify.Transport{Err: err}
	if err == nil {
		transport.StatusCode = res.StatusCode()
		transport.ContentType = res.Header().Get("content-type")
		transport.Body = res.Body()
	}

	outcome := e.classifier.Classify(transport)
	span.SetAttributes(
		attribute.Int("entries", len(outcome.Entries)),
		attribute.String("outcome", string(outcome.Kind)),
	)
	if !outcome.Success() {
		span.SetStatus(codes.Error, outcome.Detail)
		e.tel.ReportBroken(report_engine_fetch_page, outcome.Err(), page.PageNumber)
	}
	return outcome, nil
}
