package credential

import (
	"fmt"
	"time"
	"unicode/utf8"
)

// Scheme is the mechanism by which a credential is attached to outbound requests.
type Scheme string

const (
	SchemeCookieSingle Scheme = "cookie-single"
	SchemeCookieJar    Scheme = "cookie-jar"
	SchemeBearerHeader Scheme = "bearer-header"
	SchemeCustomHeader Scheme = "custom-header"
)

var schemes = []Scheme{
	SchemeCookieSingle,
	SchemeCookieJar,
	SchemeBearerHeader,
	SchemeCustomHeader,
}

// ParseScheme returns the scheme with the given name.
func ParseScheme(name string) (Scheme, error) {
	for _, s := range schemes {
		if string(s) == name {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown scheme %q", name)
}

// RequiresToken reports whether the scheme sends PrimaryToken on the wire.
func (s Scheme) RequiresToken() bool {
	return s != SchemeCookieJar
}

// Credential is the authenticated identity for the upstream platform.
// A credential is never modified after it is created, a new acquisition
// replaces it entirely.
type Credential struct {
	Scheme              Scheme
	PrimaryToken        string
	AuxiliaryAttributes map[string]string
	CapturedAt          time.Time
}

// Validate checks the invariants of the credential's scheme.
func (c Credential) Validate() error {
	if _, err := ParseScheme(string(c.Scheme)); err != nil {
		return err
	}
	if c.Scheme.RequiresToken() && c.PrimaryToken == "" {
		return fmt.Errorf("scheme %s requires a primary token", c.Scheme)
	}
	if c.Scheme == SchemeCookieJar && len(c.AuxiliaryAttributes) == 0 {
		return fmt.Errorf("scheme %s requires at least one cookie", c.Scheme)
	}
	return nil
}

// Mask renders a secret so it can be shown to an operator.
func Mask(token string) string {
	if utf8.RuneCountInString(token) <= 12 {
		return "****"
	}
	runes := []rune(token)
	return fmt.Sprintf("%s...%s", string(runes[:6]), string(runes[len(runes)-4:]))
}
