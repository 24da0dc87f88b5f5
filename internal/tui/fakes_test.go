package tui

import (
	"context"
	"net/url"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/smacontrol/sma/internal/location"
	"github.com/smacontrol/sma/internal/model"
	"github.com/smacontrol/sma/internal/settings"
)

const annIdentity = `{"nickname":"ann","name":"Ann Example","picture":"https://example.com/ann.png","updated_at":"2024-01-01T00:00:00Z","sub":"auth0|1"}`

var testConfig = model.AuthConfig{Domain: "tenant.example.com", ClientID: "client-1", Audience: "https://api.example.com"}

type fakeBackend struct {
	mu        sync.Mutex
	config    model.AuthConfig
	configErr error
	fetches   int
	tokens    []string
	regErr    error
}

func (b *fakeBackend) FetchAuthConfig(context.Context) (model.AuthConfig, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fetches++
	return b.config, b.configErr
}

func (b *fakeBackend) Register(_ context.Context, token string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens = append(b.tokens, token)
	return "registered " + token, b.regErr
}

type fakeProvider struct {
	mu        sync.Mutex
	identity  model.Identity
	initErr   error
	inits     []model.AuthConfig
	token     string
	tokenErr  error
	tokenReqs int
	signUps   int
	logIns    int
	redirErr  error
	logouts   int
	logoutErr error
}

func (p *fakeProvider) Initialize(_ context.Context, cfg model.AuthConfig) (model.Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inits = append(p.inits, cfg)
	return p.identity, p.initErr
}

func (p *fakeProvider) TokenSilently(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tokenReqs++
	return p.token, p.tokenErr
}

func (p *fakeProvider) RedirectToSignUp(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.signUps++
	return p.redirErr
}

func (p *fakeProvider) RedirectToLogIn(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logIns++
	return p.redirErr
}

func (p *fakeProvider) Logout() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logouts++
	return p.logoutErr
}

type memoryPrefs struct {
	prefs model.Preferences
}

func (s *memoryPrefs) Load() (model.Preferences, error) { return s.prefs, nil }

func (s *memoryPrefs) Save(p model.Preferences) error {
	s.prefs = p
	return nil
}

type harness struct {
	m        *Model
	backend  *fakeBackend
	provider *fakeProvider
	history  *location.History
}

func newHarness(t *testing.T, rawURL string) *harness {
	t.Helper()
	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("parse %q: %v", rawURL, err)
	}
	h := &harness{
		backend:  &fakeBackend{config: testConfig},
		provider: &fakeProvider{token: "tok-1"},
		history:  location.New(u),
	}
	h.m = New(Options{
		Backend:     h.backend,
		Provider:    h.provider,
		Location:    h.history,
		Preferences: &memoryPrefs{prefs: model.Preferences{Theme: "link"}},
	})
	t.Cleanup(h.m.Close)
	return h
}

// send applies msg and runs every resulting command to completion.
func (h *harness) send(t *testing.T, msg tea.Msg) {
	t.Helper()
	_, cmd := h.m.Update(msg)
	drain(t, h.m, cmd)
}

// drain runs cmd and feeds its messages back into m until nothing is left.
func drain(t *testing.T, m *Model, cmd tea.Cmd) {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0; steps++ {
		if steps > 100 {
			t.Fatal("command chain did not settle")
		}
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		switch msg := c().(type) {
		case nil:
		case tea.BatchMsg:
			queue = append(queue, msg...)
		case tea.QuitMsg:
		default:
			_, next := m.Update(msg)
			queue = append(queue, next)
		}
	}
}

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newSettingsPage(t *testing.T) (settings.Model, tea.Cmd) {
	t.Helper()
	return settings.New(&memoryPrefs{})
}
