package credential

import (
	"bufio"
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// DefaultTokenCookie is the cookie the platform stores its session token in.
const DefaultTokenCookie = "CPL-coros-token"

// document is the structured form a credential is saved in.
type document struct {
	Scheme              Scheme            `json:"scheme"`
	PrimaryToken        string            `json:"primary_token"`
	AuxiliaryAttributes map[string]string `json:"auxiliary_attributes,omitempty"`
	CapturedAt          time.Time         `json:"captured_at"`
}

// exportedCookie is one element of a browser cookie export.
type exportedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Parser turns the artifacts produced by the interactive login into a Credential.
type Parser struct {
	// PlainTokenScheme is the scheme given to a bare token, it must require a token.
	PlainTokenScheme Scheme
	// TokenCookie is the cookie name whose value becomes PrimaryToken for cookie exports.
	TokenCookie string
}

func DefaultParser() Parser {
	return Parser{
		PlainTokenScheme: SchemeCustomHeader,
		TokenCookie:      DefaultTokenCookie,
	}
}

// Parse recognizes a structured credential document, a browser cookie export
// (JSON array) or a single line of text. capturedAt is used for artifacts that
// do not record when they were captured.
//
// Content that could belong to more than one scheme is rejected instead of guessed.
func (p Parser) Parse(content []byte, capturedAt time.Time) (Credential, error) {
	trimmed := bytes.TrimSpace(content)
	if len(trimmed) == 0 {
		return Credential{}, fmt.Errorf("credential is empty")
	}

	var (
		cred Credential
		err  error
	)
	switch trimmed[0] {
	case '{':
		cred, err = parseDocument(trimmed)
	case '[':
		cred, err = p.parseCookieExport(trimmed, capturedAt)
	default:
		cred, err = p.parseText(trimmed, capturedAt)
	}
	if err != nil {
		return Credential{}, err
	}

	err = cred.Validate()
	if err != nil {
		return Credential{}, err
	}
	return cred, nil
}

func parseDocument(content []byte) (Credential, error) {
	var doc document
	err := json.Unmarshal(content, &doc)
	if err != nil {
		return Credential{}, fmt.Errorf("parse credential document: %w", err)
	}
	if doc.Scheme == "" {
		return Credential{}, fmt.Errorf("credential document has no scheme")
	}
	return Credential{
		Scheme:              doc.Scheme,
		PrimaryToken:        doc.PrimaryToken,
		AuxiliaryAttributes: doc.AuxiliaryAttributes,
		CapturedAt:          doc.CapturedAt,
	}, nil
}

func (p Parser) parseCookieExport(content []byte, capturedAt time.Time) (Credential, error) {
	var cookies []exportedCookie
	err := json.Unmarshal(content, &cookies)
	if err != nil {
		return Credential{}, fmt.Errorf("parse cookie export: %w", err)
	}
	if len(cookies) == 0 {
		return Credential{}, fmt.Errorf("cookie export is empty")
	}

	attributes := make(map[string]string, len(cookies))
	for _, c := range cookies {
		if c.Name == "" {
			return Credential{}, fmt.Errorf("cookie export contains a cookie without a name")
		}
		existing, ok := attributes[c.Name]
		if ok && existing != c.Value {
			return Credential{}, fmt.Errorf("cookie export contains conflicting values for %q", c.Name)
		}
		attributes[c.Name] = c.Value
	}

	return Credential{
		Scheme:              SchemeCookieJar,
		PrimaryToken:        attributes[p.TokenCookie],
		AuxiliaryAttributes: attributes,
		CapturedAt:          capturedAt,
	}, nil
}

// firstLine returns the first line that is not blank and not a # comment.
func firstLine(content []byte) string {
	scanner := bufio.NewScanner(bytes.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		return line
	}
	return ""
}

var cookieNameRegex = regexp.MustCompile("^[!#$%&'*+\\-.^_`|~0-9A-Za-z]+$")

// parseCookieHeader parses `k1=v1;k2=v2`.
func parseCookieHeader(line string) (map[string]string, bool) {
	attributes := map[string]string{}
	parts := strings.Split(line, ";")
	for i, part := range parts {
		if part == "" && i == len(parts)-1 && i > 0 {
			// trailing separator
			continue
		}
		name, value, found := strings.Cut(part, "=")
		if !found || !cookieNameRegex.MatchString(name) || value == "" {
			return nil, false
		}
		existing, ok := attributes[name]
		if ok && existing != value {
			return nil, false
		}
		attributes[name] = value
	}
	return attributes, len(attributes) > 0
}

// isPaddedToken matches a bare token whose only '=' characters are trailing
// base64 padding.
func isPaddedToken(line string) bool {
	stripped := strings.TrimRight(line, "=")
	return stripped != "" && !strings.Contains(stripped, "=")
}

func (p Parser) parseText(content []byte, capturedAt time.Time) (Credential, error) {
	line := firstLine(content)
	if line == "" {
		return Credential{}, fmt.Errorf("credential contains only comments")
	}

	hasWhitespace := strings.ContainsAny(line, " \t")
	hasEquals := strings.Contains(line, "=")

	if len(line) > 7 && strings.EqualFold(line[:7], "bearer ") {
		token := strings.TrimSpace(line[7:])
		if token == "" || strings.ContainsAny(token, " \t") {
			return Credential{}, fmt.Errorf("bearer credential must contain exactly one token")
		}
		return Credential{
			Scheme:       SchemeBearerHeader,
			PrimaryToken: token,
			CapturedAt:   capturedAt,
		}, nil
	}

	if hasWhitespace {
		return Credential{}, fmt.Errorf("credential line with whitespace must be a bearer token")
	}

	if !hasEquals || isPaddedToken(line) {
		if !p.PlainTokenScheme.RequiresToken() {
			return Credential{}, fmt.Errorf("plain token scheme %q cannot carry a bare token", p.PlainTokenScheme)
		}
		return Credential{
			Scheme:       p.PlainTokenScheme,
			PrimaryToken: line,
			CapturedAt:   capturedAt,
		}, nil
	}

	attributes, ok := parseCookieHeader(line)
	if ok {
		return Credential{
			Scheme:              SchemeCookieJar,
			PrimaryToken:        attributes[p.TokenCookie],
			AuxiliaryAttributes: attributes,
			CapturedAt:          capturedAt,
		}, nil
	}

	return Credential{}, fmt.Errorf("credential line is ambiguous between schemes")
}
