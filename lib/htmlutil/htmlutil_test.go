package htmlutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	testCases := []struct {
		name     string
		body     string
		max      int
		expected string
	}{
		{
			name:     "title",
			body:     "<html><head><title>\n  COROS   Login </title></head><body>form</body></html>",
			max:      100,
			expected: "COROS Login",
		},
		{
			name:     "body text without title",
			body:     "<html><body><script>var x = 1;</script><h1>502 Bad Gateway</h1>\n<hr>\nnginx</body></html>",
			max:      100,
			expected: "502 Bad Gateway nginx",
		},
		{
			name:     "truncated",
			body:     "<title>abcdefghijklmnopqrstuvwxyz</title>",
			max:      10,
			expected: "abcdefghij...",
		},
		{
			name:     "empty",
			body:     "<html></html>",
			max:      100,
			expected: "",
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			require.Equal(t, test.expected, Summarize([]byte(test.body), test.max))
		})
	}
}

func TestLooksLikeHtml(t *testing.T) {
	require.True(t, LooksLikeHtml("text/html; charset=utf-8", nil))
	require.True(t, LooksLikeHtml("", []byte("  <!doctype html>")))
	require.False(t, LooksLikeHtml("application/json", []byte(`{"a":1}`)))
}
