package telemetry

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

func TestScopedAPI(t *testing.T) {
	rec := NewRecorder()
	scoped := NewScopedAPI("ingest", NewScopedAPI("corossync", rec))

	scoped.ReportBroken("engine.fetch-page", errors.New("boom"), 2)
	scoped.ReportCount("engine.records", 40)

	broken := rec.Find("broken", "engine.fetch-page")
	require.Len(t, broken, 1)
	require.Equal(t, "corossync: ingest: engine.fetch-page", broken[0].ID)
	require.Equal(t, 2, broken[0].Params[1])

	counts := rec.Find("count", "engine.records")
	require.Len(t, counts, 1)
	require.EqualValues(t, 40, counts[0].Count)

	require.Empty(t, rec.Find("warning", ""))
}

func TestSlogAPI(t *testing.T) {
	var out bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&out, &slog.HandlerOptions{Level: slog.LevelDebug}))
	tel := NewSlogAPI(logger)

	tel.ReportWarning("normalizer.field", "distance")
	require.Contains(t, out.String(), "id=normalizer.field")
	require.Contains(t, out.String(), "params.0=distance")
}

func TestInstrumentResty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	rec := NewRecorder()
	client := resty.New()
	InstrumentResty(client, rec)

	_, err := client.R().Get(server.URL)
	require.NoError(t, err)
	require.Len(t, rec.Find("debug", report_resty_request), 1)
	require.Len(t, rec.Find("debug", report_resty_response), 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = client.R().SetContext(ctx).Get(server.URL)
	require.Error(t, err)
	require.Len(t, rec.Find("debug", report_resty_response), 2)
}

func TestSetupTracingDisabled(t *testing.T) {
	tracing, err := SetupTracing(context.Background(), "corossync", OtlpConfig{})
	require.NoError(t, err)
	require.NoError(t, tracing.Shutdown(context.Background()))
}
