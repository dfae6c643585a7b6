package token

import (
	"context"
	"errors"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"curator/internal/core"
)

// defaultLifetime is assumed when the token endpoint omits expires_in.
const defaultLifetime = time.Hour

// ClientCredentialsGrant exchanges client credentials at tokenURL.
// httpClient may be nil, in which case http.DefaultClient is used.
func ClientCredentialsGrant(provider, clientID, clientSecret, tokenURL string, httpClient *http.Client) GrantFunc {
	cfg := clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}

	return func(ctx context.Context) (string, time.Duration, error) {
		if httpClient != nil {
			ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
		}
		tok, err := cfg.Token(ctx)
		if err != nil {
			var retrieveErr *oauth2.RetrieveError
			if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
				return "", 0, core.ParseProviderError(provider, retrieveErr.Response.StatusCode, retrieveErr.Body, err)
			}
			if ctx.Err() != nil {
				return "", 0, ctx.Err()
			}
			return "", 0, core.NewProviderError(provider, http.StatusBadGateway, "token request failed: "+err.Error(), err)
		}

		lifetime := defaultLifetime
		if !tok.Expiry.IsZero() {
			lifetime = time.Until(tok.Expiry)
		}
		return tok.AccessToken, lifetime, nil
	}
}
