package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/smacontrol/sma/internal/model"
)

const callbackPath = "/callback"

// callbackServer receives the tenant's redirect on a loopback address and
// hands code and state to the application by reloading its location.
type callbackServer struct {
	server   *http.Server
	listener net.Listener
}

// ensureCallbackLocked starts the receiver on first use and points the
// OAuth redirect URL at it. p.mu must be held.
func (p *Provider) ensureCallbackLocked() error {
	if p.callback != nil {
		return nil
	}

	listener, err := net.Listen("tcp", p.opts.CallbackAddr)
	if err != nil {
		return fmt.Errorf("auth: listen for callback: %w", err)
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET(callbackPath, p.handleCallback)

	cb := &callbackServer{
		server: &http.Server{
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		},
		listener: listener,
	}
	logger := p.logger
	go func() {
		if err := cb.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("callback receiver", slog.String("error", err.Error()))
		}
	}()

	p.callback = cb
	p.oauth.RedirectURL = "http://" + listener.Addr().String() + callbackPath
	p.logger.Debug("callback receiver started", slog.String("addr", listener.Addr().String()))
	return nil
}

// Stop shuts the receiver down.
func (c *callbackServer) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.server.Shutdown(ctx)
}

func (p *Provider) handleCallback(c *gin.Context) {
	if e := c.Query("error"); e != "" {
		p.logger.Error("hosted login returned an error",
			slog.String("error", e),
			slog.String("description", c.Query("error_description")),
		)
		c.String(http.StatusBadRequest, "Login failed: %s. You can close this window.", e)
		return
	}

	code, state := c.Query(model.AuthCodeParam), c.Query(model.AuthStateParam)
	if code == "" || state == "" {
		c.String(http.StatusBadRequest, "Missing code or state.")
		return
	}
	if !p.hasPending(state) {
		c.String(http.StatusBadRequest, "Unknown login attempt.")
		return
	}

	if p.opts.Location != nil {
		p.opts.Location.Reload(p.returnURL(code, state))
	}
	c.String(http.StatusOK, "Signed in. You can close this window and return to the terminal.")
}

// returnURL is the application URL carrying the redirect residue.
func (p *Provider) returnURL(code, state string) *url.URL {
	var u url.URL
	if p.opts.AppURL != nil {
		u = *p.opts.AppURL
	} else if p.opts.Location != nil {
		u = *p.opts.Location.URL()
	}
	q := u.Query()
	q.Set(model.AuthCodeParam, code)
	q.Set(model.AuthStateParam, state)
	u.RawQuery = q.Encode()
	return &u
}
