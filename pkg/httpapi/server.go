// Package httpapi exposes the broker operations over HTTP.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/go-identity/sso-broker/pkg/broker"
	"github.com/go-identity/sso-broker/pkg/core"
	"github.com/go-identity/sso-broker/pkg/idp"
)

// Options tunes the transport layer.
type Options struct {
	// RequestBudget bounds each request's execution; zero means DefaultBudget.
	RequestBudget time.Duration
	// RefreshTokenMaxAge is the lifetime of the refresh token cookie.
	RefreshTokenMaxAge time.Duration
}

// Server wires the broker service and the challenge triggers into a gin router.
type Server struct {
	svc      *broker.Service
	triggers *idp.Triggers
	opts     Options
}

// NewServer creates the HTTP server wiring.
func NewServer(svc *broker.Service, triggers *idp.Triggers, opts Options) *Server {
	if opts.RequestBudget <= 0 {
		opts.RequestBudget = DefaultBudget
	}
	if opts.RefreshTokenMaxAge <= 0 {
		opts.RefreshTokenMaxAge = 24 * time.Hour
	}
	return &Server{svc: svc, triggers: triggers, opts: opts}
}

// Router builds the gin engine with all broker routes registered.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), corsMiddleware(), requestBudget(s.opts.RequestBudget))

	router.POST("/login", s.handleLogin)
	router.GET("/oauth2/authorize", s.handleAuthorize)
	router.POST("/oauth2/token", s.handleToken)
	router.POST("/idp/triggers", s.handleTriggers)
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return router
}

type loginRequest struct {
	ClientID string `json:"clientId"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// handleLogin performs primary login and establishes the broker session
// cookies on success.
func (s *Server) handleLogin(c *gin.Context) {
	ctx := c.Request.Context()

	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "malformed request body"})
		return
	}

	response, err := runWithBudget(ctx, func(ctx context.Context) (*core.LoginResponse, error) {
		return s.svc.Login(ctx, req.ClientID, core.LoginParams{
			Username: req.Username,
			Password: req.Password,
		})
	})
	if err != nil {
		s.writeError(c, err)
		return
	}

	setAuthCookies(c, response.Authentication, int(s.opts.RefreshTokenMaxAge.Seconds()))
	c.JSON(http.StatusOK, response)
}

// handleAuthorize initiates the code flow. Success and failure both answer
// with a redirect; the response body carries the structured result as well.
func (s *Server) handleAuthorize(c *gin.Context) {
	ctx := c.Request.Context()

	params := core.AuthorizeParams{
		ClientID:      c.Query("clientId"),
		RedirectURI:   c.Query("redirectUri"),
		State:         c.Query("state"),
		CodeChallenge: c.Query("codeChallenge"),
		Cookies:       sessionCookies(c),
	}

	response, err := runWithBudget(ctx, func(ctx context.Context) (*core.AuthorizeResponse, error) {
		return s.svc.AuthorizeClient(ctx, params), nil
	})
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.Header("Location", response.RedirectURI)
	c.JSON(http.StatusFound, response)
}

// handleToken redeems an authorization code or a refresh token.
func (s *Server) handleToken(c *gin.Context) {
	ctx := c.Request.Context()

	var params core.TokenParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "malformed request body"})
		return
	}

	response, err := runWithBudget(ctx, func(ctx context.Context) (*core.LoginResponse, error) {
		return s.svc.GetTokensForClient(ctx, params)
	})
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// handleTriggers serves the IdP's challenge callbacks.
func (s *Server) handleTriggers(c *gin.Context) {
	ctx := c.Request.Context()

	var event idp.ChallengeEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "malformed request body"})
		return
	}

	handled, err := runWithBudget(ctx, func(ctx context.Context) (*idp.ChallengeEvent, error) {
		return s.triggers.Handle(ctx, &event)
	})
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, handled)
}

// writeError maps the broker error taxonomy onto HTTP statuses. Upstream
// detail is logged server-side; the response carries the error text, which
// is generic for upstream faults by construction.
func (s *Server) writeError(c *gin.Context, err error) {
	core.LoggerFromCtx(c.Request.Context()).Error("request failed",
		"path", c.FullPath(), "error", err)

	status := http.StatusInternalServerError
	message := err.Error()
	switch {
	case errors.Is(err, core.ErrValidation), errors.Is(err, core.ErrRejected):
		status = http.StatusBadRequest
	case errors.Is(err, core.ErrTimeout):
		status = http.StatusGatewayTimeout
	case errors.Is(err, core.ErrUpstream):
		// Upstream detail stays in the server-side log.
		status = http.StatusBadGateway
		message = core.ErrUpstream.Error()
	}
	c.JSON(status, gin.H{"success": false, "error": message})
}
