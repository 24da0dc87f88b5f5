// Package auth implements the hosted-login identity provider used by the
// shell: authorization code with PKCE against an Auth0-compatible tenant,
// an in-memory token cache, and silent refresh.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/smacontrol/sma/internal/model"
)

var (
	// ErrLoginRequired means there is no cached session to take a token from.
	ErrLoginRequired = errors.New("auth: login required")
	// ErrNotInitialized means Initialize has not succeeded yet.
	ErrNotInitialized = errors.New("auth: not initialized")
)

// Location is the part of the address bar the provider reads and reloads.
type Location interface {
	URL() *url.URL
	Reload(u *url.URL)
}

// Options configures a Provider.
type Options struct {
	Location Location
	// AppURL is where the browser is sent back to after login and logout.
	AppURL *url.URL
	// CallbackAddr is the loopback listen address for the redirect receiver.
	CallbackAddr string
	Scope        string
	// EndSession also signs the user out of the tenant on Logout.
	EndSession bool
	Open       Opener
	HTTPClient *http.Client
	Logger     *slog.Logger
	// TenantURL maps the configured domain to the tenant base URL.
	TenantURL func(domain string) string
	Now       func() time.Time
}

// Provider implements model.IdentityProvider.
type Provider struct {
	opts   Options
	logger *slog.Logger
	flight singleflight.Group

	mu       sync.Mutex
	cfg      *model.AuthConfig
	oauth    *oauth2.Config
	pending  map[string]string // state -> PKCE verifier
	source   oauth2.TokenSource
	identity model.Identity
	callback *callbackServer
}

// NewProvider creates a Provider. Nothing touches the network until
// Initialize or a redirect is requested.
func NewProvider(opts Options) *Provider {
	if opts.Open == nil {
		opts.Open = OpenBrowser
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.TenantURL == nil {
		opts.TenantURL = func(domain string) string { return "https://" + domain }
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Scope == "" {
		opts.Scope = model.DefaultScope
	}
	if opts.CallbackAddr == "" {
		opts.CallbackAddr = "127.0.0.1:0"
	}
	return &Provider{
		opts:    opts,
		logger:  opts.Logger.With(slog.String("component", "auth")),
		pending: make(map[string]string),
	}
}

// Initialize configures the provider for cfg and reports the current user.
// When the address carries a code and a state issued by this provider the
// code is exchanged first. Residue with a state it never issued, or one
// already used, is ignored. A nil Identity means nobody is signed in.
func (p *Provider) Initialize(ctx context.Context, cfg model.AuthConfig) (model.Identity, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("auth: %w", err)
	}

	p.mu.Lock()
	p.configureLocked(cfg)
	p.mu.Unlock()

	if p.opts.Location != nil {
		q := p.opts.Location.URL().Query()
		code, state := q.Get(model.AuthCodeParam), q.Get(model.AuthStateParam)
		if code != "" && state != "" {
			return p.exchange(ctx, code, state)
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.identity, nil
}

func (p *Provider) configureLocked(cfg model.AuthConfig) {
	if p.cfg != nil && *p.cfg == cfg {
		return
	}
	tenant := strings.TrimSuffix(p.opts.TenantURL(cfg.Domain), "/")
	redirect := ""
	if p.oauth != nil {
		redirect = p.oauth.RedirectURL
	}
	p.cfg = &cfg
	p.oauth = &oauth2.Config{
		ClientID: cfg.ClientID,
		Endpoint: oauth2.Endpoint{
			AuthURL:   tenant + "/authorize",
			TokenURL:  tenant + "/oauth/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
		RedirectURL: redirect,
		Scopes:      strings.Fields(p.opts.Scope),
	}
}

func (p *Provider) exchange(ctx context.Context, code, state string) (model.Identity, error) {
	p.mu.Lock()
	verifier, ok := p.pending[state]
	if !ok {
		id := p.identity
		p.mu.Unlock()
		p.logger.Warn("ignoring login residue with unknown state")
		return id, nil
	}
	delete(p.pending, state)
	conf := *p.oauth
	clientID := p.cfg.ClientID
	issuer := strings.TrimSuffix(p.opts.TenantURL(p.cfg.Domain), "/") + "/"
	p.mu.Unlock()

	tok, err := conf.Exchange(p.clientContext(ctx), code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("auth: exchange code: %w", err)
	}
	id, err := identityFromToken(tok, issuer, clientID, p.opts.Now)
	if err != nil {
		return nil, err
	}

	// The token source outlives this call, so it gets a context that is
	// never cancelled but still carries the HTTP client.
	src := oauth2.ReuseTokenSource(tok, conf.TokenSource(p.clientContext(context.Background()), tok))

	p.mu.Lock()
	p.source = src
	p.identity = id
	p.mu.Unlock()

	p.logger.Info("login completed")
	return id, nil
}

// TokenSilently returns a valid access token, refreshing it when needed.
// Concurrent callers share one refresh.
func (p *Provider) TokenSilently(ctx context.Context) (string, error) {
	v, err, _ := p.flight.Do("token", func() (any, error) {
		p.mu.Lock()
		src := p.source
		p.mu.Unlock()
		if src == nil {
			return "", ErrLoginRequired
		}
		tok, err := src.Token()
		if err != nil {
			return "", fmt.Errorf("auth: refresh token: %w", err)
		}
		return tok.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return v.(string), nil
}

// RedirectToSignUp opens the tenant's hosted sign-up page.
func (p *Provider) RedirectToSignUp(ctx context.Context) error {
	return p.redirect(ctx, true)
}

// RedirectToLogIn opens the tenant's hosted login page.
func (p *Provider) RedirectToLogIn(ctx context.Context) error {
	return p.redirect(ctx, false)
}

func (p *Provider) redirect(ctx context.Context, signUp bool) error {
	p.mu.Lock()
	if p.cfg == nil {
		p.mu.Unlock()
		return ErrNotInitialized
	}
	if err := p.ensureCallbackLocked(); err != nil {
		p.mu.Unlock()
		return err
	}

	state := uuid.NewString()
	verifier := oauth2.GenerateVerifier()
	p.pending[state] = verifier

	params := []oauth2.AuthCodeOption{
		oauth2.S256ChallengeOption(verifier),
		oauth2.SetAuthURLParam("audience", p.cfg.Audience),
	}
	if signUp {
		params = append(params, oauth2.SetAuthURLParam("screen_hint", "signup"))
	}
	target := p.oauth.AuthCodeURL(state, params...)
	p.mu.Unlock()

	if err := p.opts.Open(ctx, target); err != nil {
		p.mu.Lock()
		delete(p.pending, state)
		p.mu.Unlock()
		return fmt.Errorf("auth: redirect: %w", err)
	}
	return nil
}

// Logout forgets the cached session. With EndSession set the tenant's
// logout page is opened first and a failure leaves the session intact.
func (p *Provider) Logout() error {
	p.mu.Lock()
	cfg := p.cfg
	p.mu.Unlock()

	if p.opts.EndSession && cfg != nil {
		if err := p.opts.Open(context.Background(), p.logoutURL(*cfg)); err != nil {
			return fmt.Errorf("auth: logout: %w", err)
		}
	}

	p.mu.Lock()
	p.source = nil
	p.identity = nil
	clear(p.pending)
	p.mu.Unlock()

	p.logger.Info("logged out")
	return nil
}

func (p *Provider) logoutURL(cfg model.AuthConfig) string {
	q := url.Values{"client_id": {cfg.ClientID}}
	if p.opts.AppURL != nil {
		q.Set("returnTo", p.opts.AppURL.String())
	}
	return strings.TrimSuffix(p.opts.TenantURL(cfg.Domain), "/") + "/v2/logout?" + q.Encode()
}

// Close stops the redirect receiver if it was started.
func (p *Provider) Close() error {
	p.mu.Lock()
	cb := p.callback
	p.callback = nil
	p.mu.Unlock()
	if cb == nil {
		return nil
	}
	return cb.Stop()
}

func (p *Provider) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, p.opts.HTTPClient)
}

// hasPending reports whether state was issued and not yet exchanged.
func (p *Provider) hasPending(state string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.pending[state]
	return ok
}
