package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// ErrNoCredentials is returned when neither a token nor a token URL is set.
var ErrNoCredentials = errors.New("no credentials configured")

// TokenSource returns the token source matching conf. Long-lived access
// tokens are wrapped in a static source; otherwise tokens are fetched and
// refreshed with the client credentials grant.
func TokenSource(ctx context.Context, conf Conf) (oauth2.TokenSource, error) {
	if conf.Token != "" {
		return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: conf.Token, TokenType: "Bearer"}), nil
	}
	if conf.TokenURL == "" {
		return nil, ErrNoCredentials
	}
	cc := conf.toOauth2Config()
	return cc.TokenSource(ctx), nil
}

// NewHTTPClient returns a client that sets the Authorization header on every
// request.
func NewHTTPClient(ctx context.Context, conf Conf, timeout time.Duration) (*http.Client, error) {
	src, err := TokenSource(ctx, conf)
	if err != nil {
		return nil, err
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &oauth2.Transport{
			Source: oauth2.ReuseTokenSource(nil, src),
			Base:   http.DefaultTransport,
		},
	}, nil
}
