// Package classify maps the outcome of one page request onto a fixed set of
// outcomes. Classification is a total function over the transport error, the
// HTTP status and the shape of the payload, in that priority order.
package classify

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"corossync/internal/failure"
	"corossync/lib/htmlutil"
	"corossync/lib/textutil"

	"github.com/goccy/go-json"
)

// DefaultListPath is where the platform puts the activities of a page.
var DefaultListPath = []string{"data", "dataList"}

// statusFields are the top-level keys the platform uses to report whether a
// request succeeded, checked in order.
var statusFields = []string{"result", "code"}

var successValues = []string{"0000", "0", "success", "ok", "200"}

var messageFields = []string{"message", "msg"}

// credentialWords are matched against an upstream failure message to tell an
// expired credential apart from a refused one.
var credentialWords = []string{
	"token",
	"login",
	"auth",
	"credential",
	"session",
	"expire",
	"登录",
	"过期",
}

// Transport is everything observed about one request.
type Transport struct {
	// Err is set when no HTTP response was received (refused, timeout, DNS, ...).
	Err         error
	StatusCode  int
	ContentType string
	Body        []byte
}

// Outcome is the classification of a Transport. Kind is empty on success.
type Outcome struct {
	Kind       failure.Kind
	StatusCode int
	Entries    []map[string]any
	// TotalPages is the page count reported by the platform, 0 when it is not reported.
	TotalPages int
	// Detail describes what was observed, for diagnostics.
	Detail string
}

func (o Outcome) Success() bool {
	return o.Kind == ""
}

// Err returns the outcome as a *failure.Error, or nil on success.
func (o Outcome) Err() error {
	if o.Success() {
		return nil
	}
	return &failure.Error{
		Kind: o.Kind,
		Err:  errors.New(o.Detail),
	}
}

type Classifier struct {
	listPath []string
}

// NewClassifier creates a Classifier reading entries at listPath, an empty path
// means the payload itself is the list.
func NewClassifier(listPath []string) Classifier {
	return Classifier{listPath: listPath}
}

func (c Classifier) Classify(t Transport) Outcome {
	if t.Err != nil {
		return Outcome{
			Kind:   failure.TransientTransportError,
			Detail: fmt.Sprintf("transport: %s", t.Err.Error()),
		}
	}

	switch {
	case t.StatusCode == http.StatusUnauthorized:
		return statusOutcome(failure.AuthExpired, t)
	case t.StatusCode == http.StatusForbidden:
		return statusOutcome(failure.Forbidden, t)
	case t.StatusCode == http.StatusNotFound:
		return statusOutcome(failure.EndpointMissing, t)
	case t.StatusCode < 200 || t.StatusCode > 299:
		return statusOutcome(failure.TransientTransportError, t)
	}

	payload, err := decodeSingle(t.Body)
	if err != nil {
		return Outcome{
			Kind:       failure.MalformedPayload,
			StatusCode: t.StatusCode,
			Detail:     describeUnparseable(t, err),
		}
	}

	if object, ok := payload.(map[string]any); ok {
		if failed, message := upstreamFailure(object); failed {
			kind := failure.Forbidden
			if textutil.ContainsAny(message, credentialWords) {
				kind = failure.AuthExpired
			}
			return Outcome{
				Kind:       kind,
				StatusCode: t.StatusCode,
				Detail:     fmt.Sprintf("upstream reported failure: %s", message),
			}
		}
	}

	list, container, err := lookupList(payload, c.listPath)
	if err != nil {
		return Outcome{
			Kind:       failure.MalformedPayload,
			StatusCode: t.StatusCode,
			Detail:     err.Error(),
		}
	}

	entries := make([]map[string]any, len(list))
	for i, item := range list {
		entry, ok := item.(map[string]any)
		if !ok {
			return Outcome{
				Kind:       failure.MalformedPayload,
				StatusCode: t.StatusCode,
				Detail:     fmt.Sprintf("entry %d is a %T, not an object", i, item),
			}
		}
		entries[i] = entry
	}

	return Outcome{
		StatusCode: t.StatusCode,
		Entries:    entries,
		TotalPages: totalPages(container),
	}
}

func statusOutcome(kind failure.Kind, t Transport) Outcome {
	return Outcome{
		Kind:       kind,
		StatusCode: t.StatusCode,
		Detail:     fmt.Sprintf("http status %d", t.StatusCode),
	}
}

// decodeSingle decodes body as exactly one json value, anything after it
// other than whitespace is an error.
func decodeSingle(body []byte) (any, error) {
	var payload any
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	err := decoder.Decode(&payload)
	if err != nil {
		return nil, err
	}
	var trailing json.RawMessage
	err = decoder.Decode(&trailing)
	if !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unexpected data after the json value")
	}
	return payload, nil
}

func describeUnparseable(t Transport, err error) string {
	if !htmlutil.LooksLikeHtml(t.ContentType, t.Body) {
		return fmt.Sprintf("body is not json: %s", err.Error())
	}
	summary := htmlutil.Summarize(t.Body, 120)
	if summary == "" {
		return "body is html"
	}
	return fmt.Sprintf("body is html (%q)", summary)
}

func scalarString(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case json.Number:
		return v.String(), true
	case bool:
		return strconv.FormatBool(v), true
	}
	return "", false
}

// upstreamFailure reports whether the payload carries a status field whose value
// is not one of the success values.
func upstreamFailure(object map[string]any) (bool, string) {
	for _, field := range statusFields {
		raw, ok := object[field]
		if !ok {
			continue
		}
		status, ok := scalarString(raw)
		if !ok {
			continue
		}
		for _, success := range successValues {
			if strings.EqualFold(status, success) {
				return false, ""
			}
		}

		message := fmt.Sprintf("%s=%s", field, status)
		for _, mf := range messageFields {
			if text, ok := object[mf].(string); ok && text != "" {
				message = fmt.Sprintf("%s (%s)", message, text)
				break
			}
		}
		return true, message
	}
	return false, ""
}

// lookupList walks path and returns the list found there together with the
// object that contains it. A missing or null list is an empty page.
func lookupList(payload any, path []string) ([]any, map[string]any, error) {
	current := payload
	var container map[string]any
	for i, key := range path {
		object, ok := current.(map[string]any)
		if !ok {
			if current == nil {
				return nil, container, nil
			}
			return nil, nil, fmt.Errorf("%s is a %T, not an object", strings.Join(path[:i], "."), current)
		}
		container = object
		current = object[key]
	}

	switch list := current.(type) {
	case nil:
		return nil, container, nil
	case []any:
		return list, container, nil
	}
	return nil, nil, fmt.Errorf("%s is a %T, not a list", strings.Join(path, "."), current)
}

func totalPages(container map[string]any) int {
	if container == nil {
		return 0
	}
	raw, ok := scalarString(container["totalPage"])
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
