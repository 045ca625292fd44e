package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/postloom/social-auth/internal/domain/social"
	"github.com/postloom/social-auth/internal/publish"
	"github.com/postloom/social-auth/internal/secrets"
	authsvc "github.com/postloom/social-auth/internal/service/auth"
)

// AuthHandler exposes the credential/token lifecycle over HTTP.
type AuthHandler struct {
	Tokens    *authsvc.TokenService
	Publisher publish.Publisher
	BaseURL   string
	Logger    *zap.Logger
}

// NewAuthHandler creates the handler set.
func NewAuthHandler(tokens *authsvc.TokenService, publisher publish.Publisher, baseURL string, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.L()
	}
	return &AuthHandler{Tokens: tokens, Publisher: publisher, BaseURL: baseURL, Logger: logger}
}

func (h *AuthHandler) platform(c *gin.Context) (social.Platform, bool) {
	p, err := social.ParsePlatform(c.Param("platform"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "unsupported_platform",
			"error_description": fmt.Sprintf("Unknown platform %q.", c.Param("platform")),
		})
		return "", false
	}
	return p, true
}

// Setup stores per-platform developer credentials.
func (h *AuthHandler) Setup(c *gin.Context) {
	p, ok := h.platform(c)
	if !ok {
		return
	}

	var req struct {
		ClientID     string `json:"client_id"`
		ClientSecret string `json:"client_secret"`
		RedirectURI  string `json:"redirect_uri"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "Invalid payload."})
		return
	}

	creds, err := h.Tokens.SaveCredentials(c.Request.Context(), p, social.Credentials{
		ClientID:     req.ClientID,
		ClientSecret: req.ClientSecret,
		RedirectURI:  req.RedirectURI,
	})
	if err != nil {
		var verr *social.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_credentials", "error_description": verr.Error()})
			return
		}
		h.Logger.Error("save credentials", zap.String("platform", string(p)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": "Failed to save credentials."})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "redirect_uri": creds.RedirectURI})
}

// Login redirects the browser to the platform's authorization page.
func (h *AuthHandler) Login(c *gin.Context) {
	p, ok := h.platform(c)
	if !ok {
		return
	}

	authURL, err := h.Tokens.LoginURL(c.Request.Context(), p)
	if err != nil {
		switch {
		case errors.Is(err, social.ErrNotConfigured):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":             "not_configured",
				"error_description": "Platform credentials not found. Please set up your credentials first.",
			})
		case errors.Is(err, secrets.ErrDecrypt):
			h.redirectError(c, "Credentials could not be read. Please reconnect your account.")
		default:
			h.Logger.Error("build login url", zap.String("platform", string(p)), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": "Failed to initiate login."})
		}
		return
	}

	c.Redirect(http.StatusFound, authURL)
}

// Callback completes the authorization-code flow.
func (h *AuthHandler) Callback(c *gin.Context) {
	p, ok := h.platform(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if errCode := c.Query("error"); errCode != "" {
		description := c.Query("error_description")
		query := map[string]string{}
		for k, vs := range c.Request.URL.Query() {
			if len(vs) > 0 {
				query[k] = vs[0]
			}
		}
		h.Tokens.RecordCallbackError(ctx, p, errCode, description, query)
		msg := description
		if msg == "" {
			msg = errCode
		}
		h.redirectError(c, msg)
		return
	}

	code := c.Query("code")
	if code == "" {
		h.redirectError(c, "No authorization code received")
		return
	}

	if err := h.Tokens.HandleCallback(ctx, p, code); err != nil {
		h.Logger.Warn("callback failed", zap.String("platform", string(p)), zap.Error(err))
		h.redirectError(c, fmt.Sprintf("Failed to authenticate with %s", p))
		return
	}

	h.redirect(c, "success", fmt.Sprintf("Connected %s successfully", p))
}

// Status reports whether a usable token is stored.
func (h *AuthHandler) Status(c *gin.Context) {
	p, ok := h.platform(c)
	if !ok {
		return
	}
	status, err := h.Tokens.Status(c.Request.Context(), p)
	if err != nil {
		h.Logger.Error("check status", zap.String("platform", string(p)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": "Failed to check authentication status."})
		return
	}
	c.JSON(http.StatusOK, status)
}

// Credentials reports whether credentials are stored.
func (h *AuthHandler) Credentials(c *gin.Context) {
	p, ok := h.platform(c)
	if !ok {
		return
	}
	has, err := h.Tokens.HasCredentials(c.Request.Context(), p)
	if err != nil {
		h.Logger.Error("check credentials", zap.String("platform", string(p)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": "Failed to check credentials."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"hasCredentials": has})
}

// Logout clears the stored token only; credentials survive.
func (h *AuthHandler) Logout(c *gin.Context) {
	p, ok := h.platform(c)
	if !ok {
		return
	}
	if err := h.Tokens.Logout(c.Request.Context(), p); err != nil {
		h.Logger.Error("logout", zap.String("platform", string(p)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": "Failed to logout."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Reset clears credentials, token, and all diagnostics for the platform.
func (h *AuthHandler) Reset(c *gin.Context) {
	p, ok := h.platform(c)
	if !ok {
		return
	}
	if err := h.Tokens.Reset(c.Request.Context(), p); err != nil {
		h.Logger.Error("reset", zap.String("platform", string(p)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": "Failed to reset connection."})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   fmt.Sprintf("All %s connection data has been reset", p),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Debug returns the advisory diagnostic records for troubleshooting.
func (h *AuthHandler) Debug(c *gin.Context) {
	p, ok := h.platform(c)
	if !ok {
		return
	}
	diags, err := h.Tokens.Diagnostics(c.Request.Context(), p)
	if err != nil {
		h.Logger.Error("load diagnostics", zap.String("platform", string(p)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": "Failed to load diagnostics."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"platform": p, "diagnostics": diags})
}

// Publish resolves an access token and hands the post to the publisher.
func (h *AuthHandler) Publish(c *gin.Context) {
	p, ok := h.platform(c)
	if !ok {
		return
	}

	var post publish.Post
	if err := c.ShouldBindJSON(&post); err != nil || post.Text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "Post text is required."})
		return
	}

	token, err := h.Tokens.GetAccessToken(c.Request.Context(), p)
	if err != nil {
		switch {
		case errors.Is(err, social.ErrNotConfigured):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":             "not_configured",
				"error_description": fmt.Sprintf("No credentials found for %s. Please set up your credentials first.", p),
			})
		case errors.Is(err, social.ErrNotAuthenticated):
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":             "not_authenticated",
				"error_description": fmt.Sprintf("Not authenticated with %s. Please connect your account first.", p),
			})
		default:
			h.Logger.Error("resolve access token", zap.String("platform", string(p)), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": "Failed to resolve access token."})
		}
		return
	}

	postID, err := h.Publisher.Publish(c.Request.Context(), p, token, post)
	if err != nil {
		h.Logger.Warn("publish failed", zap.String("platform", string(p)), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "publish_failed", "error_description": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "post_id": postID})
}

func (h *AuthHandler) redirect(c *gin.Context, param, message string) {
	c.Redirect(http.StatusFound, fmt.Sprintf("%s/?%s=%s", h.BaseURL, param, url.QueryEscape(message)))
}

func (h *AuthHandler) redirectError(c *gin.Context, message string) {
	h.redirect(c, "error", message)
}
