package githubapp

import (
	"context"
	"crypto/rsa"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/go-github/v68/github"
	"github.com/gregjones/httpcache"

	"github.com/Zahidur-Rahman/Dev-Guardian/internal/retrier"
)

const (
	// appJWTLifetime is how long the signed App assertion stays valid.
	appJWTLifetime = 10 * time.Minute
	// tokenSkew is how close to expiry a cached installation token may get
	// before it is refreshed instead of reused.
	tokenSkew = time.Minute
)

// AppAuth is the GitHub App identity used to mint installation tokens.
type AppAuth struct {
	AppID      int64
	privateKey *rsa.PrivateKey
}

// NewAppAuth reads and parses the App's PEM private key. A missing or
// unparseable key is a configuration error, surfaced before any network call.
func NewAppAuth(appID int64, privateKeyPath string) (*AppAuth, error) {
	pemBytes, err := os.ReadFile(privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("reading GitHub App private key: %w", err)
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM(pemBytes)
	if err != nil {
		return nil, fmt.Errorf("parsing GitHub App private key: %w", err)
	}
	return &AppAuth{AppID: appID, privateKey: key}, nil
}

// AppJWT signs a short-lived RS256 assertion identifying the App itself.
func (a *AppAuth) AppJWT(now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(appJWTLifetime)),
		Issuer:    strconv.FormatInt(a.AppID, 10),
	}
	return jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(a.privateKey)
}

// InstallationToken is a scoped bearer credential with its expiry made
// explicit so callers can check validity instead of caching blindly.
type InstallationToken struct {
	Value     string
	ExpiresAt time.Time
}

// Valid reports whether the token can still be used, leaving tokenSkew of
// headroom before the actual expiry.
func (t InstallationToken) Valid(now time.Time) bool {
	return t.Value != "" && now.Before(t.ExpiresAt.Add(-tokenSkew))
}

// TokenProvider exchanges App assertions for installation access tokens and
// caches the current token until it nears expiry. One provider serves one
// installation and is not shared across concurrent jobs.
type TokenProvider struct {
	auth           *AppAuth
	installationID int64
	retry          retrier.Policy
	baseURL        string // test override, must end with "/"
	now            func() time.Time

	token InstallationToken
}

func NewTokenProvider(auth *AppAuth, installationID int64, retry retrier.Policy) *TokenProvider {
	return &TokenProvider{
		auth:           auth,
		installationID: installationID,
		retry:          retry,
		now:            time.Now,
	}
}

// Token returns a valid installation token, minting a fresh one when the
// cached token is missing or within tokenSkew of expiring.
func (p *TokenProvider) Token(ctx context.Context) (string, error) {
	if p.token.Valid(p.now()) {
		return p.token.Value, nil
	}

	assertion, err := p.auth.AppJWT(p.now())
	if err != nil {
		return "", fmt.Errorf("signing App assertion: %w", err)
	}

	var minted *github.InstallationToken
	err = p.retry.Do(ctx, func() error {
		client := newGitHubClient(assertion, p.baseURL)
		tok, resp, err := client.Apps.CreateInstallationToken(ctx, p.installationID, nil)
		if err != nil {
			return classify(err, resp)
		}
		minted = tok
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("creating installation token for installation %d: %w", p.installationID, err)
	}

	p.token = InstallationToken{
		Value:     minted.GetToken(),
		ExpiresAt: minted.GetExpiresAt().Time,
	}
	return p.token.Value, nil
}

// newGitHubClient builds a REST client the way the rest of the system does:
// an in-memory caching transport with a bearer token on top.
func newGitHubClient(token, baseURL string) *github.Client {
	client := github.NewClient(httpcache.NewMemoryCacheTransport().Client()).WithAuthToken(token)
	if baseURL != "" {
		if base, err := url.Parse(baseURL); err == nil {
			client.BaseURL = base
		}
	}
	return client
}

// classify maps a GitHub API failure onto the retry taxonomy: network
// failures and 5xx/429 responses are transient, any other 4xx is permanent.
func classify(err error, resp *github.Response) error {
	if err == nil {
		return nil
	}
	if resp != nil {
		switch code := resp.StatusCode; {
		case code == 429 || code >= 500:
			return err
		case code >= 400:
			return retrier.Permanent(err)
		}
	}
	return err
}
