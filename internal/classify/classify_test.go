package classify

import (
	"context"
	"errors"
	"net"
	"testing"

	"corossync/internal/failure"

	"github.com/stretchr/testify/require"
)

func TestClassifyKinds(t *testing.T) {
	classifier := NewClassifier(DefaultListPath)

	testCases := []struct {
		name      string
		transport Transport
		expected  failure.Kind
	}{
		{
			name:      "timeout",
			transport: Transport{Err: context.DeadlineExceeded},
			expected:  failure.TransientTransportError,
		},
		{
			name:      "dns",
			transport: Transport{Err: &net.DNSError{Err: "no such host", Name: "teamcnapi.coros.com"}},
			expected:  failure.TransientTransportError,
		},
		{
			name: "transport error wins over status",
			transport: Transport{
				Err:        errors.New("connection reset"),
				StatusCode: 200,
				Body:       []byte(`{"data":{"dataList":[]}}`),
			},
			expected: failure.TransientTransportError,
		},
		{
			name:      "401",
			transport: Transport{StatusCode: 401, Body: []byte(`{"result":"0000"}`)},
			expected:  failure.AuthExpired,
		},
		{
			name:      "403",
			transport: Transport{StatusCode: 403},
			expected:  failure.Forbidden,
		},
		{
			name:      "404",
			transport: Transport{StatusCode: 404},
			expected:  failure.EndpointMissing,
		},
		{
			name:      "500",
			transport: Transport{StatusCode: 500, Body: []byte("oops")},
			expected:  failure.TransientTransportError,
		},
		{
			name:      "429",
			transport: Transport{StatusCode: 429},
			expected:  failure.TransientTransportError,
		},
		{
			name:      "redirect",
			transport: Transport{StatusCode: 302},
			expected:  failure.TransientTransportError,
		},
		{
			name:      "not json",
			transport: Transport{StatusCode: 200, Body: []byte("not json at all")},
			expected:  failure.MalformedPayload,
		},
		{
			name:      "trailing html after json",
			transport: Transport{StatusCode: 200, Body: []byte(`{"result":"0000","data":{"dataList":[]}}<html><title>x</title></html>`)},
			expected:  failure.MalformedPayload,
		},
		{
			name:      "second json value",
			transport: Transport{StatusCode: 200, Body: []byte(`{"result":"0000"} {"result":"0000"}`)},
			expected:  failure.MalformedPayload,
		},
		{
			name:      "stray closing brace",
			transport: Transport{StatusCode: 200, Body: []byte(`{"result":"0000"}}`)},
			expected:  failure.MalformedPayload,
		},
		{
			name:      "trailing whitespace is fine",
			transport: Transport{StatusCode: 200, Body: []byte("{\"result\":\"0000\",\"data\":{\"dataList\":[]}}\n\t ")},
			expected:  "",
		},
		{
			name:      "empty body",
			transport: Transport{StatusCode: 200},
			expected:  failure.MalformedPayload,
		},
		{
			name: "status field mentions token",
			transport: Transport{StatusCode: 200, Body: []byte(
				`{"result":"1019","message":"Access token is invalid"}`,
			)},
			expected: failure.AuthExpired,
		},
		{
			name: "code field mentions login in chinese",
			transport: Transport{StatusCode: 200, Body: []byte(
				`{"code":"fail","message":"请重新登录"}`,
			)},
			expected: failure.AuthExpired,
		},
		{
			name: "status field without credential wording",
			transport: Transport{StatusCode: 200, Body: []byte(
				`{"result":"5001","message":"permission denied for region"}`,
			)},
			expected: failure.Forbidden,
		},
		{
			name: "numeric status field",
			transport: Transport{StatusCode: 200, Body: []byte(
				`{"code":500}`,
			)},
			expected: failure.Forbidden,
		},
		{
			name: "list is not a list",
			transport: Transport{StatusCode: 200, Body: []byte(
				`{"result":"0000","data":{"dataList":"nope"}}`,
			)},
			expected: failure.MalformedPayload,
		},
		{
			name: "entry is not an object",
			transport: Transport{StatusCode: 200, Body: []byte(
				`{"result":"0000","data":{"dataList":[1,2]}}`,
			)},
			expected: failure.MalformedPayload,
		},
		{
			name: "data is not an object",
			transport: Transport{StatusCode: 200, Body: []byte(
				`{"result":"0000","data":[]}`,
			)},
			expected: failure.MalformedPayload,
		},
		{
			name: "success",
			transport: Transport{StatusCode: 200, Body: []byte(
				`{"result":"0000","message":"OK","data":{"dataList":[{"date":20250101}]}}`,
			)},
			expected: "",
		},
		{
			name: "success without status field",
			transport: Transport{StatusCode: 200, Body: []byte(
				`{"data":{"dataList":[]}}`,
			)},
			expected: "",
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			outcome := classifier.Classify(test.transport)
			require.Equal(t, test.expected, outcome.Kind, outcome.Detail)
			if test.expected == "" {
				require.True(t, outcome.Success())
				require.NoError(t, outcome.Err())
				return
			}
			require.False(t, outcome.Success())
			require.Equal(t, test.expected, failure.KindOf(outcome.Err()))
			require.NotEmpty(t, outcome.Detail)
		})
	}
}

func TestClassifySuccessPayload(t *testing.T) {
	outcome := NewClassifier(DefaultListPath).Classify(Transport{
		StatusCode: 200,
		Body: []byte(`{
			"result": "0000",
			"data": {
				"count": 2,
				"pageNumber": 1,
				"totalPage": 4,
				"dataList": [
					{"date": 20250102, "name": "Morning Run", "distance": 10012.5},
					{"date": 20250101, "name": "Easy Run"}
				]
			}
		}`),
	})
	require.True(t, outcome.Success())
	require.Equal(t, 4, outcome.TotalPages)
	require.Len(t, outcome.Entries, 2)
	require.Equal(t, "Morning Run", outcome.Entries[0]["name"])
	require.Equal(t, "Easy Run", outcome.Entries[1]["name"])
}

func TestClassifyMissingListIsEmpty(t *testing.T) {
	classifier := NewClassifier(DefaultListPath)

	for _, body := range []string{
		`{"result":"0000"}`,
		`{"result":"0000","data":null}`,
		`{"result":"0000","data":{"dataList":null}}`,
	} {
		outcome := classifier.Classify(Transport{StatusCode: 200, Body: []byte(body)})
		require.True(t, outcome.Success(), body)
		require.Empty(t, outcome.Entries, body)
	}
}

func TestClassifyTopLevelList(t *testing.T) {
	outcome := NewClassifier(nil).Classify(Transport{
		StatusCode: 200,
		Body:       []byte(`[{"date":"2025-01-01"}]`),
	})
	require.True(t, outcome.Success())
	require.Len(t, outcome.Entries, 1)
}

func TestClassifyHtmlTitle(t *testing.T) {
	outcome := NewClassifier(DefaultListPath).Classify(Transport{
		StatusCode:  200,
		ContentType: "text/html; charset=utf-8",
		Body:        []byte("<!doctype html><html><head><title>COROS Login</title></head><body></body></html>"),
	})
	require.Equal(t, failure.MalformedPayload, outcome.Kind)
	require.Contains(t, outcome.Detail, "COROS Login")
}
