// Package syncrun wires a single sync run together: credential, ingestion,
// the write policy and the run journal.
package syncrun

import (
	"context"
	"errors"
	"fmt"

	"corossync/internal/components/assert"
	"corossync/internal/components/chrono"
	"corossync/internal/components/telemetry"
	"corossync/internal/credential"
	"corossync/internal/failure"
	"corossync/internal/history"
	"corossync/internal/ingest"
	"corossync/internal/sink"
	"corossync/lib/restyutil"
)

const (
	report_runner_fetch   = "runner.fetch"
	report_runner_journal = "runner.journal"
)

// ErrNoRecords is returned when a run succeeded but the platform had no
// activities, nothing is written in that case.
var ErrNoRecords = errors.New("no activities fetched")

// FetchOptions override the config for a single run, zero values keep the
// configured value.
type FetchOptions struct {
	Pages          int
	OutputPath     string
	CredentialPath string
	// Token is an inline credential parsed with the same rules as a credential file.
	Token string
}

// Report describes a finished run, whether or not it succeeded.
type Report struct {
	Result     ingest.RunResult
	Run        history.Run
	Credential credential.Credential
	OutputPath string
	Written    bool
}

type Runner struct {
	config Config
	tel    telemetry.API
	clock  chrono.API
}

func NewRunner(config Config, tel telemetry.API, clock chrono.API) Runner {
	assert.NotNil(tel, "tel")
	assert.NotNil(clock, "clock")

	return Runner{
		config: config,
		tel:    tel,
		clock:  clock,
	}
}

func (r Runner) Config() Config {
	return r.config
}

// CredentialStore returns the store at path, or at the configured path when
// path is empty.
func (r Runner) CredentialStore(path string) (credential.FileStore, error) {
	if path == "" {
		path = r.config.CredentialPath
	}
	parser, err := r.config.Parser()
	if err != nil {
		return credential.FileStore{}, err
	}
	return credential.NewFileStore(path, parser, r.tel), nil
}

func (r Runner) credential(opts FetchOptions) (credential.Credential, error) {
	if opts.Token != "" {
		parser, err := r.config.Parser()
		if err != nil {
			return credential.Credential{}, err
		}
		cred, err := parser.Parse([]byte(opts.Token), r.clock.Now())
		if err != nil {
			return credential.Credential{}, failure.New(failure.CredentialMalformed, fmt.Errorf("--token: %w", err))
		}
		return cred, nil
	}

	store, err := r.CredentialStore(opts.CredentialPath)
	if err != nil {
		return credential.Credential{}, err
	}
	return store.Load()
}

func (r Runner) engine() (*ingest.Engine, error) {
	normalizer, err := r.config.Normalizer(r.tel)
	if err != nil {
		return nil, err
	}

	var dump restyutil.InstrumentOutput
	if r.config.DebugDumpDir != "" {
		output, err := restyutil.NewFilesystemOutput(r.config.DebugDumpDir)
		if err != nil {
			return nil, err
		}
		dump = output
	}

	return ingest.NewEngine(ingest.Options{
		ApiUrl:     r.config.ApiUrl,
		Timeout:    r.config.Timeout(),
		PageDelay:  r.config.PageDelay(),
		Filter:     r.config.Filter,
		Resolver:   r.config.Resolver(),
		Normalizer: normalizer,
		Dump:       dump,
	}, r.tel)
}

// Fetch runs one sync. The output document is replaced only when every page
// succeeded and at least one activity came back, otherwise the previous
// document is left untouched. The run is journaled either way.
func (r Runner) Fetch(ctx context.Context, opts FetchOptions) (Report, error) {
	pages := r.config.Pages
	if opts.Pages > 0 {
		pages = opts.Pages
	}
	report := Report{OutputPath: r.config.OutputPath}
	if opts.OutputPath != "" {
		report.OutputPath = opts.OutputPath
	}
	report.Run = history.Run{
		StartedAt:  r.clock.Now(),
		OutputPath: report.OutputPath,
	}

	err := r.fetch(ctx, pages, opts, &report)

	report.Run.FinishedAt = r.clock.Now()
	report.Run.Scheme = string(report.Credential.Scheme)
	report.Run.PagesFetched = report.Result.PagesFetched
	report.Run.Records = len(report.Result.Records)
	report.Run.StoppedReason = string(report.Result.StoppedReason)
	report.Run.Written = report.Written
	if err != nil {
		report.Run.FailureKind = string(failure.KindOf(err))
		report.Run.Detail = err.Error()
		r.tel.ReportWarning(report_runner_fetch, err)
	}
	r.journal(ctx, &report.Run)

	return report, err
}

func (r Runner) fetch(ctx context.Context, pages int, opts FetchOptions, report *Report) error {
	cred, err := r.credential(opts)
	if err != nil {
		return err
	}
	report.Credential = cred

	engine, err := r.engine()
	if err != nil {
		return err
	}

	result, err := engine.Run(ctx, cred, pages, r.config.PageSize)
	report.Result = result
	if err != nil {
		return err
	}
	if len(result.Records) == 0 {
		return ErrNoRecords
	}

	err = sink.NewFileSink(report.OutputPath, r.tel).Write(result)
	if err != nil {
		return err
	}
	report.Written = true
	return nil
}

func (r Runner) journal(ctx context.Context, run *history.Run) {
	if !r.config.HistoryEnabled() {
		return
	}

	// the run is recorded even when ctx was cancelled mid-run.
	ctx = context.WithoutCancel(ctx)

	journal, err := history.Open(ctx, r.config.HistoryPath, r.tel)
	if err != nil {
		r.tel.ReportWarning(report_runner_journal, err)
		return
	}
	defer journal.Close()

	recorded, err := journal.Record(ctx, *run)
	if err != nil {
		r.tel.ReportWarning(report_runner_journal, err)
		return
	}
	*run = recorded
}

// History returns up to limit past runs, most recent first.
func (r Runner) History(ctx context.Context, limit int) ([]history.Run, error) {
	if !r.config.HistoryEnabled() {
		return nil, fmt.Errorf("run history is disabled (history_path is %q)", historyDisabled)
	}
	journal, err := history.Open(ctx, r.config.HistoryPath, r.tel)
	if err != nil {
		return nil, err
	}
	defer journal.Close()
	return journal.List(ctx, limit)
}

// ImportCredential parses a login artifact and stores it, replacing the
// previous credential. A non-empty scheme overrides the scheme given to a
// bare token.
func (r Runner) ImportCredential(content []byte, scheme credential.Scheme, path string) (credential.Credential, error) {
	store, err := r.CredentialStore(path)
	if err != nil {
		return credential.Credential{}, err
	}

	parser, err := r.config.Parser()
	if err != nil {
		return credential.Credential{}, err
	}
	if scheme != "" {
		if !scheme.RequiresToken() {
			return credential.Credential{}, fmt.Errorf("scheme %s cannot carry a bare token", scheme)
		}
		parser.PlainTokenScheme = scheme
	}

	cred, err := parser.Parse(content, r.clock.Now())
	if err != nil {
		return credential.Credential{}, failure.New(failure.CredentialMalformed, err)
	}
	err = store.Save(cred)
	if err != nil {
		return credential.Credential{}, err
	}
	return cred, nil
}
