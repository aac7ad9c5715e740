package auth

import (
	"fmt"
	"net/http"
	"slices"

	"corossync/internal/credential"
	"corossync/internal/failure"

	"github.com/go-resty/resty/v2"
)

// identity headers sent with every request, they mirror what the platform's
// web client sends and do not depend on the credential.
const (
	identityAccept    = "application/json, text/plain, */*"
	identityOrigin    = "https://t.coros.com"
	identityReferer   = "https://t.coros.com/"
	identityUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

const (
	DefaultTokenHeader = "accesstoken"
	bearerHeader       = "Authorization"
)

type Options struct {
	// TokenCookie is the cookie name used by the cookie-single scheme.
	TokenCookie string
	// TokenHeader is the header name used by the custom-header scheme.
	TokenHeader string
}

// Resolver attaches a credential to outbound requests. Exactly one scheme is
// applied per request, sending material for more than one scheme can itself be
// refused by the platform.
type Resolver struct {
	tokenCookie string
	tokenHeader string
}

func NewResolver(opts Options) Resolver {
	if opts.TokenCookie == "" {
		opts.TokenCookie = credential.DefaultTokenCookie
	}
	if opts.TokenHeader == "" {
		opts.TokenHeader = DefaultTokenHeader
	}
	return Resolver{
		tokenCookie: opts.TokenCookie,
		tokenHeader: opts.TokenHeader,
	}
}

// TokenHeader is the header name carrying the token for the custom-header scheme.
func (r Resolver) TokenHeader() string {
	return r.tokenHeader
}

// Decorate adds the identity headers and the credential's scheme to req.
func (r Resolver) Decorate(cred credential.Credential, req *resty.Request) error {
	err := cred.Validate()
	if err != nil {
		return failure.New(failure.CredentialMalformed, err)
	}

	req.SetHeader("accept", identityAccept)
	req.SetHeader("origin", identityOrigin)
	req.SetHeader("referer", identityReferer)
	req.SetHeader("user-agent", identityUserAgent)

	switch cred.Scheme {
	case credential.SchemeCookieSingle:
		req.SetCookie(&http.Cookie{
			Name:  r.tokenCookie,
			Value: cred.PrimaryToken,
		})
	case credential.SchemeCookieJar:
		names := make([]string, 0, len(cred.AuxiliaryAttributes))
		for name := range cred.AuxiliaryAttributes {
			names = append(names, name)
		}
		slices.Sort(names)
		for _, name := range names {
			req.SetCookie(&http.Cookie{
				Name:  name,
				Value: cred.AuxiliaryAttributes[name],
			})
		}
	case credential.SchemeBearerHeader:
		req.SetHeader(bearerHeader, fmt.Sprintf("Bearer %s", cred.PrimaryToken))
	case credential.SchemeCustomHeader:
		req.SetHeader(r.tokenHeader, cred.PrimaryToken)
	default:
		return failure.Newf(failure.CredentialMalformed, "unknown scheme %q", cred.Scheme)
	}

	return nil
}
