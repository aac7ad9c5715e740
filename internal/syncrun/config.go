package syncrun

import (
	"fmt"
	"maps"
	"time"

	"corossync/internal/auth"
	"corossync/internal/components/telemetry"
	"corossync/internal/credential"
	"corossync/internal/ingest"
	"corossync/internal/normalize"
	"corossync/lib/configutil"
)

// DefaultConfigName is looked up from the working directory upwards when no
// config path is given.
const DefaultConfigName = "corossync.json5"

type Config struct {
	ApiUrl         string `json:"api_url" validate:"url"`
	CredentialPath string `json:"credential_path" validate:"required"`
	OutputPath     string `json:"output_path" validate:"required"`
	// HistoryPath is the run journal, "off" disables it.
	HistoryPath string `json:"history_path" validate:"required"`

	Pages    int `json:"pages" validate:"min=1,max=1000"`
	PageSize int `json:"page_size" validate:"min=1,max=200"`
	// PageDelayMs is a pointer so an explicit 0 in a config file is kept.
	PageDelayMs    *int `json:"page_delay_ms" validate:"required,min=0"`
	TimeoutSeconds int  `json:"timeout_seconds" validate:"min=1"`

	Variant          string            `json:"variant" validate:"oneof=coros canonical"`
	DistanceUnit     string            `json:"distance_unit" validate:"oneof=m km cm"`
	PlainTokenScheme string            `json:"plain_token_scheme" validate:"oneof=cookie-single bearer-header custom-header"`
	TokenCookie      string            `json:"token_cookie" validate:"required"`
	TokenHeader      string            `json:"token_header" validate:"required"`
	Filter           map[string]string `json:"filter" validate:"dive,keys,ne=size,ne=pageNumber,endkeys"`

	// DebugDumpDir receives a run-* directory per run holding every http
	// exchange (credentials redacted) when set.
	DebugDumpDir string               `json:"debug_dump_dir"`
	Otlp         telemetry.OtlpConfig `json:"otlp"`
}

const historyDisabled = "off"

func DefaultConfig() Config {
	pageDelayMs := 500
	return Config{
		ApiUrl:           ingest.DefaultApiUrl,
		CredentialPath:   "token.txt",
		OutputPath:       "../public/activities_data.json",
		HistoryPath:      ".corossync/history.db",
		Pages:            3,
		PageSize:         20,
		PageDelayMs:      &pageDelayMs,
		TimeoutSeconds:   30,
		Variant:          normalize.Coros.Name,
		DistanceUnit:     string(normalize.Meters),
		PlainTokenScheme: string(credential.SchemeCustomHeader),
		TokenCookie:      credential.DefaultTokenCookie,
		TokenHeader:      auth.DefaultTokenHeader,
		Filter:           maps.Clone(ingest.DefaultFilter),
	}
}

// LoadConfig reads the config at path, when path is empty DefaultConfigName
// is searched for upwards from the working directory. Unset fields keep their
// default value.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return configutil.Load(DefaultConfigName, true, DefaultConfig())
	}
	return configutil.Load(path, false, DefaultConfig())
}

func (c Config) PageDelay() time.Duration {
	if c.PageDelayMs == nil {
		return 0
	}
	return time.Duration(*c.PageDelayMs) * time.Millisecond
}

func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c Config) HistoryEnabled() bool {
	return c.HistoryPath != historyDisabled
}

func (c Config) Parser() (credential.Parser, error) {
	scheme, err := credential.ParseScheme(c.PlainTokenScheme)
	if err != nil {
		return credential.Parser{}, fmt.Errorf("plain_token_scheme: %w", err)
	}
	return credential.Parser{
		PlainTokenScheme: scheme,
		TokenCookie:      c.TokenCookie,
	}, nil
}

func (c Config) Normalizer(tel telemetry.API) (normalize.Normalizer, error) {
	variant, err := normalize.LookupVariant(c.Variant)
	if err != nil {
		return normalize.Normalizer{}, err
	}
	unit, err := normalize.ParseDistanceUnit(c.DistanceUnit)
	if err != nil {
		return normalize.Normalizer{}, err
	}
	return normalize.NewNormalizer(variant, unit, tel), nil
}

func (c Config) Resolver() auth.Resolver {
	return auth.NewResolver(auth.Options{
		TokenCookie: c.TokenCookie,
		TokenHeader: c.TokenHeader,
	})
}
