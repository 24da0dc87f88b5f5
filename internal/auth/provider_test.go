package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/smacontrol/sma/internal/model"
)

type fakeLocation struct {
	mu      sync.Mutex
	current *url.URL
	reloads []*url.URL
}

func (l *fakeLocation) URL() *url.URL {
	l.mu.Lock()
	defer l.mu.Unlock()
	c := *l.current
	return &c
}

func (l *fakeLocation) Reload(u *url.URL) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.current = u
	l.reloads = append(l.reloads, u)
}

func (l *fakeLocation) reloadCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.reloads)
}

type fakeTenant struct {
	srv *httptest.Server

	mu        sync.Mutex
	forms     []url.Values
	refreshes int
}

func newFakeTenant(t *testing.T) *fakeTenant {
	t.Helper()
	ft := &fakeTenant{}
	ft.srv = httptest.NewServer(http.HandlerFunc(ft.handleToken))
	t.Cleanup(ft.srv.Close)
	return ft
}

func (ft *fakeTenant) handleToken(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/oauth/token" {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ft.mu.Lock()
	ft.forms = append(ft.forms, r.PostForm)
	access := "access-1"
	expiresIn := 3600
	if r.PostForm.Get("grant_type") == "refresh_token" {
		ft.refreshes++
		access = "access-refreshed"
	} else if r.PostForm.Get("code") == "short-lived" {
		expiresIn = 1
	}
	ft.mu.Unlock()

	claims := jwt.MapClaims{
		"iss":        ft.srv.URL + "/",
		"aud":        "client-1",
		"exp":        time.Now().Add(time.Hour).Unix(),
		"iat":        time.Now().Unix(),
		"sub":        "auth0|42",
		"nickname":   "ana",
		"name":       "Ana Lovelace",
		"picture":    "https://cdn.example/ana.png",
		"updated_at": "2024-05-01T10:00:00.000Z",
	}
	idToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("tenant-secret"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"access_token":  access,
		"token_type":    "Bearer",
		"expires_in":    expiresIn,
		"refresh_token": "refresh-1",
		"id_token":      idToken,
	})
}

func (ft *fakeTenant) formCount() int {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	return len(ft.forms)
}

func (ft *fakeTenant) lastForm() url.Values {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	if len(ft.forms) == 0 {
		return nil
	}
	return ft.forms[len(ft.forms)-1]
}

type recordingOpener struct {
	mu   sync.Mutex
	urls []string
	err  error
}

func (o *recordingOpener) open(_ context.Context, raw string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.urls = append(o.urls, raw)
	return o.err
}

func (o *recordingOpener) last(t *testing.T) *url.URL {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.urls) == 0 {
		t.Fatal("browser was never opened")
	}
	u, err := url.Parse(o.urls[len(o.urls)-1])
	if err != nil {
		t.Fatalf("parse opened url: %v", err)
	}
	return u
}

var testConfig = model.AuthConfig{Domain: "tenant.example", ClientID: "client-1", Audience: "https://api.example"}

func newTestProvider(t *testing.T, ft *fakeTenant, loc *fakeLocation, opener *recordingOpener, endSession bool) *Provider {
	t.Helper()
	app, _ := url.Parse("http://localhost:8080/")
	p := NewProvider(Options{
		Location:   loc,
		AppURL:     app,
		EndSession: endSession,
		Open:       opener.open,
		HTTPClient: ft.srv.Client(),
		TenantURL:  func(string) string { return ft.srv.URL },
	})
	t.Cleanup(func() { p.Close() })
	return p
}

// login drives a full redirect round trip and returns the identity.
func login(t *testing.T, p *Provider, loc *fakeLocation, opener *recordingOpener, code string) model.Identity {
	t.Helper()
	ctx := context.Background()

	if err := p.RedirectToLogIn(ctx); err != nil {
		t.Fatalf("RedirectToLogIn: %v", err)
	}
	authURL := opener.last(t)
	q := authURL.Query()

	resp, err := http.Get(q.Get("redirect_uri") + "?code=" + code + "&state=" + url.QueryEscape(q.Get("state")))
	if err != nil {
		t.Fatalf("callback: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("callback status = %d, want 200", resp.StatusCode)
	}

	id, err := p.Initialize(ctx, testConfig)
	if err != nil {
		t.Fatalf("Initialize after callback: %v", err)
	}
	return id
}

func TestProvider_NoSessionReturnsSentinel(t *testing.T) {
	ft := newFakeTenant(t)
	loc := &fakeLocation{current: mustURL("http://localhost:8080/")}
	p := newTestProvider(t, ft, loc, &recordingOpener{}, false)

	id, err := p.Initialize(context.Background(), testConfig)
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if id != nil {
		t.Fatalf("identity = %s, want nil sentinel", id)
	}
	if _, err := p.TokenSilently(context.Background()); !errors.Is(err, ErrLoginRequired) {
		t.Fatalf("TokenSilently err = %v, want ErrLoginRequired", err)
	}
}

func TestProvider_LoginRoundTrip(t *testing.T) {
	ft := newFakeTenant(t)
	loc := &fakeLocation{current: mustURL("http://localhost:8080/")}
	opener := &recordingOpener{}
	p := newTestProvider(t, ft, loc, opener, false)

	if _, err := p.Initialize(context.Background(), testConfig); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	id := login(t, p, loc, opener, "the-code")

	authURL := opener.last(t)
	if authURL.Path != "/authorize" {
		t.Errorf("authorize path = %q", authURL.Path)
	}
	q := authURL.Query()
	if q.Get("client_id") != "client-1" || q.Get("audience") != "https://api.example" {
		t.Errorf("authorize query = %v", q)
	}
	if q.Get("code_challenge_method") != "S256" || q.Get("code_challenge") == "" {
		t.Errorf("missing PKCE challenge: %v", q)
	}
	if q.Get("screen_hint") != "" {
		t.Errorf("login sent screen_hint=%q", q.Get("screen_hint"))
	}

	if loc.reloadCount() != 1 {
		t.Fatalf("reloads = %d, want 1", loc.reloadCount())
	}
	if got := loc.URL().Query().Get("code"); got != "the-code" {
		t.Fatalf("reloaded code = %q", got)
	}

	form := ft.lastForm()
	if form.Get("code") != "the-code" || form.Get("code_verifier") == "" {
		t.Fatalf("token form = %v", form)
	}
	if form.Get("redirect_uri") != q.Get("redirect_uri") {
		t.Fatalf("redirect_uri mismatch: %q vs %q", form.Get("redirect_uri"), q.Get("redirect_uri"))
	}

	u, err := model.DecodeUser(id)
	if err != nil {
		t.Fatalf("DecodeUser: %v", err)
	}
	if u.Nickname != "ana" || u.Sub != "auth0|42" {
		t.Fatalf("user = %+v", u)
	}

	tok, err := p.TokenSilently(context.Background())
	if err != nil || tok != "access-1" {
		t.Fatalf("TokenSilently = %q, %v; want access-1", tok, err)
	}

	// The session is cached: a plain reload reports the same user.
	loc.current = mustURL("http://localhost:8080/")
	again, err := p.Initialize(context.Background(), testConfig)
	if err != nil || string(again) != string(id) {
		t.Fatalf("Initialize after login = %s, %v", again, err)
	}
}

func TestProvider_CodeReplayIsIgnored(t *testing.T) {
	ft := newFakeTenant(t)
	loc := &fakeLocation{current: mustURL("http://localhost:8080/")}
	opener := &recordingOpener{}
	p := newTestProvider(t, ft, loc, opener, false)

	p.Initialize(context.Background(), testConfig)
	id := login(t, p, loc, opener, "the-code")
	exchanges := ft.formCount()

	again, err := p.Initialize(context.Background(), testConfig)
	if err != nil {
		t.Fatalf("replayed Initialize: %v", err)
	}
	if string(again) != string(id) {
		t.Fatalf("replayed Initialize = %s, want cached identity", again)
	}
	if n := ft.formCount(); n != exchanges {
		t.Fatalf("token requests = %d, want %d", n, exchanges)
	}
}

func TestProvider_UnknownStateIsIgnored(t *testing.T) {
	ft := newFakeTenant(t)
	loc := &fakeLocation{current: mustURL("http://localhost:8080/settings?code=stale&state=not-ours")}
	p := newTestProvider(t, ft, loc, &recordingOpener{}, false)

	id, err := p.Initialize(context.Background(), testConfig)
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if id != nil {
		t.Fatalf("identity = %s, want nil", id)
	}
	if n := ft.formCount(); n != 0 {
		t.Fatalf("token requests = %d, want 0", n)
	}
}

func TestProvider_RefreshesExpiredToken(t *testing.T) {
	ft := newFakeTenant(t)
	loc := &fakeLocation{current: mustURL("http://localhost:8080/")}
	opener := &recordingOpener{}
	p := newTestProvider(t, ft, loc, opener, false)

	p.Initialize(context.Background(), testConfig)
	login(t, p, loc, opener, "short-lived")

	// oauth2 treats tokens within its expiry delta as expired.
	tok, err := p.TokenSilently(context.Background())
	if err != nil {
		t.Fatalf("TokenSilently: %v", err)
	}
	if tok != "access-refreshed" {
		t.Fatalf("token = %q, want access-refreshed", tok)
	}
	if ft.lastForm().Get("refresh_token") != "refresh-1" {
		t.Fatalf("refresh form = %v", ft.lastForm())
	}
}

func TestProvider_SignUpSendsScreenHint(t *testing.T) {
	ft := newFakeTenant(t)
	loc := &fakeLocation{current: mustURL("http://localhost:8080/")}
	opener := &recordingOpener{}
	p := newTestProvider(t, ft, loc, opener, false)

	p.Initialize(context.Background(), testConfig)
	if err := p.RedirectToSignUp(context.Background()); err != nil {
		t.Fatalf("RedirectToSignUp: %v", err)
	}
	if got := opener.last(t).Query().Get("screen_hint"); got != "signup" {
		t.Fatalf("screen_hint = %q, want signup", got)
	}
}

func TestProvider_RedirectBeforeInitialize(t *testing.T) {
	ft := newFakeTenant(t)
	loc := &fakeLocation{current: mustURL("http://localhost:8080/")}
	p := newTestProvider(t, ft, loc, &recordingOpener{}, false)

	if err := p.RedirectToLogIn(context.Background()); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("err = %v, want ErrNotInitialized", err)
	}
}

func TestProvider_RedirectOpenFailure(t *testing.T) {
	ft := newFakeTenant(t)
	loc := &fakeLocation{current: mustURL("http://localhost:8080/")}
	opener := &recordingOpener{err: errors.New("blocked")}
	p := newTestProvider(t, ft, loc, opener, false)

	p.Initialize(context.Background(), testConfig)
	if err := p.RedirectToLogIn(context.Background()); err == nil {
		t.Fatal("RedirectToLogIn succeeded with a failing opener")
	}
	state := opener.last(t).Query().Get("state")
	if p.hasPending(state) {
		t.Fatal("failed redirect left a pending state behind")
	}
}

func TestProvider_CallbackRejectsUnknownState(t *testing.T) {
	ft := newFakeTenant(t)
	loc := &fakeLocation{current: mustURL("http://localhost:8080/")}
	opener := &recordingOpener{}
	p := newTestProvider(t, ft, loc, opener, false)

	p.Initialize(context.Background(), testConfig)
	p.RedirectToLogIn(context.Background())
	redirect := opener.last(t).Query().Get("redirect_uri")

	for _, query := range []string{"?code=c&state=forged", "?error=access_denied", "?code=c"} {
		resp, err := http.Get(redirect + query)
		if err != nil {
			t.Fatalf("callback: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", query, resp.StatusCode)
		}
	}
	if loc.reloadCount() != 0 {
		t.Fatalf("reloads = %d, want 0", loc.reloadCount())
	}
}

func TestProvider_Logout(t *testing.T) {
	ft := newFakeTenant(t)
	loc := &fakeLocation{current: mustURL("http://localhost:8080/")}
	opener := &recordingOpener{}
	p := newTestProvider(t, ft, loc, opener, true)

	p.Initialize(context.Background(), testConfig)
	login(t, p, loc, opener, "the-code")

	if err := p.Logout(); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	logoutURL := opener.last(t)
	if logoutURL.Path != "/v2/logout" || logoutURL.Query().Get("returnTo") != "http://localhost:8080/" {
		t.Fatalf("logout url = %s", logoutURL)
	}
	if _, err := p.TokenSilently(context.Background()); !errors.Is(err, ErrLoginRequired) {
		t.Fatalf("TokenSilently after logout err = %v", err)
	}
	loc.current = mustURL("http://localhost:8080/")
	if id, _ := p.Initialize(context.Background(), testConfig); id != nil {
		t.Fatalf("identity after logout = %s, want nil", id)
	}
}

func TestProvider_LogoutFailureKeepsSession(t *testing.T) {
	ft := newFakeTenant(t)
	loc := &fakeLocation{current: mustURL("http://localhost:8080/")}
	opener := &recordingOpener{}
	p := newTestProvider(t, ft, loc, opener, true)

	p.Initialize(context.Background(), testConfig)
	login(t, p, loc, opener, "the-code")

	opener.err = errors.New("no browser")
	if err := p.Logout(); err == nil || !strings.Contains(err.Error(), "no browser") {
		t.Fatalf("Logout err = %v, want wrapped opener error", err)
	}
	if _, err := p.TokenSilently(context.Background()); err != nil {
		t.Fatalf("TokenSilently after failed logout: %v", err)
	}
}

func mustURL(raw string) *url.URL {
	u, err := url.Parse(raw)
	if err != nil {
		panic(err)
	}
	return u
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestProvider_CallbackServeErrorIsLogged(t *testing.T) {
	ft := newFakeTenant(t)
	logs := &syncBuffer{}
	p := NewProvider(Options{
		Location:   &fakeLocation{current: mustURL("http://localhost:8080/")},
		Open:       (&recordingOpener{}).open,
		HTTPClient: ft.srv.Client(),
		Logger:     slog.New(slog.NewJSONHandler(logs, nil)),
		TenantURL:  func(string) string { return ft.srv.URL },
	})
	t.Cleanup(func() { p.Close() })

	if _, err := p.Initialize(context.Background(), testConfig); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	p.mu.Lock()
	err := p.ensureCallbackLocked()
	cb := p.callback
	p.mu.Unlock()
	if err != nil {
		t.Fatalf("start callback receiver: %v", err)
	}

	cb.listener.Close()

	deadline := time.Now().Add(2 * time.Second)
	for !strings.Contains(logs.String(), `"level":"ERROR","msg":"callback receiver"`) {
		if time.Now().After(deadline) {
			t.Fatalf("serve error not logged; logs: %s", logs.String())
		}
		time.Sleep(10 * time.Millisecond)
	}
}
