package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"forex-journal/internal/backend"
	"forex-journal/internal/journal"
	"forex-journal/internal/lotsize"
	"forex-journal/internal/models"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const ownerKey = "owner"

// maxImportBytes caps the size of an uploaded CSV journal.
var maxImportBytes int64 = 5 << 20

// Authenticator is the slice of the hosted backend the API needs for
// sessions.
type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (*backend.Session, error)
	SignUp(ctx context.Context, email, password string) (*backend.Session, error)
	SignOut(ctx context.Context) error
	User(ctx context.Context, token string) (*backend.User, error)
}

// APIHandler holds dependencies for the API endpoints.
type APIHandler struct {
	log        *zap.Logger
	journal    *journal.Service
	auth       Authenticator
	localOwner string
}

// NewAPIHandler creates a new APIHandler. With a nil auth every request
// acts as localOwner.
func NewAPIHandler(log *zap.Logger, svc *journal.Service, auth Authenticator, localOwner string) *APIHandler {
	return &APIHandler{log: log, journal: svc, auth: auth, localOwner: localOwner}
}

// Register mounts every endpoint on r.
func (h *APIHandler) Register(r gin.IRouter) {
	api := r.Group("/api")
	api.GET("/status", h.StatusHandler)

	lot := api.Group("/lotsize")
	lot.GET("/capital", h.CapitalLotSizeHandler)
	lot.GET("/risk", h.RiskLotSizeHandler)

	if h.auth != nil {
		auth := api.Group("/auth")
		auth.POST("/login", h.LoginHandler)
		auth.POST("/register", h.RegisterHandler)
		auth.POST("/logout", h.requireOwner, h.LogoutHandler)
		auth.GET("/session", h.requireOwner, h.SessionHandler)
	}

	trades := api.Group("/trades", h.requireOwner)
	trades.GET("", h.TradesHandler)
	trades.POST("", h.AddTradeHandler)
	trades.GET("/export", h.ExportHandler)
	trades.POST("/import", h.ImportHandler)
	trades.PATCH("/:id", h.EditTradeHandler)
	trades.DELETE("/:id", h.DeleteTradeHandler)

	api.GET("/stats", h.requireOwner, h.StatisticsHandler)
}

// requireOwner resolves the caller to an owner id, from the bearer token
// when a backend is configured.
func (h *APIHandler) requireOwner(c *gin.Context) {
	if h.auth == nil {
		c.Set(ownerKey, h.localOwner)
		c.Next()
		return
	}

	token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	if !ok || token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}
	user, err := h.auth.User(c.Request.Context(), token)
	if err != nil {
		h.log.Debug("Rejected token", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	c.Request = c.Request.WithContext(backend.WithAuth(c.Request.Context(), token, *user))
	c.Set(ownerKey, user.ID)
	c.Next()
}

func (h *APIHandler) respondError(c *gin.Context, action string, err error) {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error(), "field": verr.Field})
	case errors.Is(err, models.ErrTradeNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Trade not found or unauthorized"})
	case errors.Is(err, backend.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
	case errors.As(err, new(*http.MaxBytesError)):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("CSV file exceeds %d bytes", maxImportBytes)})
	case errors.Is(err, journal.ErrRead):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.log.Error("Failed to "+action, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to " + action})
	}
}

// StatusHandler reports liveness and which store is active.
func (h *APIHandler) StatusHandler(c *gin.Context) {
	mode := "local"
	if h.auth != nil {
		mode = "backend"
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "store": mode})
}

type credentialsRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// LoginHandler signs a user in with email and password.
func (h *APIHandler) LoginHandler(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid email or password"})
		return
	}
	session, err := h.auth.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, backend.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid email or password"})
			return
		}
		h.log.Error("Login error", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"success": false, "message": "An unexpected error occurred"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Login successful", "session": session})
}

// RegisterHandler creates a new account.
func (h *APIHandler) RegisterHandler(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Registration failed. Email might be taken."})
		return
	}
	session, err := h.auth.SignUp(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, backend.ErrRegistration) {
			c.JSON(http.StatusConflict, gin.H{"success": false, "message": "Registration failed. Email might be taken."})
			return
		}
		h.log.Error("Registration error", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"success": false, "message": "An unexpected error occurred"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Registration successful!", "session": session})
}

// LogoutHandler revokes the caller's session. A backend failure is logged
// but still reported as logged out.
func (h *APIHandler) LogoutHandler(c *gin.Context) {
	if err := h.auth.SignOut(c.Request.Context()); err != nil {
		h.log.Warn("Logout error", zap.Error(err))
	}
	c.Status(http.StatusNoContent)
}

// SessionHandler returns the caller's user id.
func (h *APIHandler) SessionHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"user_id": c.GetString(ownerKey)})
}

// TradesHandler returns all of the caller's trades, most recent first.
func (h *APIHandler) TradesHandler(c *gin.Context) {
	trades, err := h.journal.List(c.Request.Context(), c.GetString(ownerKey))
	if err != nil {
		h.respondError(c, "get trades", err)
		return
	}
	if trades == nil {
		trades = []models.Trade{}
	}
	c.JSON(http.StatusOK, trades)
}

// AddTradeHandler logs a new trade.
func (h *APIHandler) AddTradeHandler(c *gin.Context) {
	var t models.Trade
	if err := c.ShouldBindJSON(&t); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	saved, err := h.journal.Add(c.Request.Context(), c.GetString(ownerKey), t)
	if err != nil {
		h.respondError(c, "add trade", err)
		return
	}
	c.JSON(http.StatusCreated, saved)
}

// EditTradeHandler applies a partial update to a trade.
func (h *APIHandler) EditTradeHandler(c *gin.Context) {
	var patch models.TradePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	saved, err := h.journal.Edit(c.Request.Context(), c.GetString(ownerKey), c.Param("id"), patch)
	if err != nil {
		h.respondError(c, "update trade", err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

// DeleteTradeHandler removes a trade.
func (h *APIHandler) DeleteTradeHandler(c *gin.Context) {
	if err := h.journal.Delete(c.Request.Context(), c.GetString(ownerKey), c.Param("id")); err != nil {
		h.respondError(c, "delete trade", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// StatisticsHandler returns summary metrics over the caller's trades.
func (h *APIHandler) StatisticsHandler(c *gin.Context) {
	stats, err := h.journal.Stats(c.Request.Context(), c.GetString(ownerKey))
	if err != nil {
		h.respondError(c, "calculate statistics", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ExportHandler downloads the caller's trades as CSV.
func (h *APIHandler) ExportHandler(c *gin.Context) {
	f, err := h.journal.Export(c.Request.Context(), c.GetString(ownerKey))
	if err != nil {
		h.respondError(c, "export trades", err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, f.Name))
	c.Data(http.StatusOK, f.ContentType, f.Data)
}

// ImportHandler stores trades from an uploaded CSV, sent either as the
// multipart field "file" or as the raw request body.
func (h *APIHandler) ImportHandler(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImportBytes)

	var src io.Reader = c.Request.Body
	if fh, err := c.FormFile("file"); err == nil {
		f, err := fh.Open()
		if err != nil {
			h.respondError(c, "import trades", fmt.Errorf("%w: %v", journal.ErrRead, err))
			return
		}
		defer f.Close()
		src = f
	}

	summary, err := h.journal.Import(c.Request.Context(), c.GetString(ownerKey), src)
	if err != nil {
		h.respondError(c, "import trades", err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func queryFloat(c *gin.Context, key string) float64 {
	v, err := strconv.ParseFloat(c.Query(key), 64)
	if err != nil {
		return 0
	}
	return v
}

// CapitalLotSizeHandler sizes a position from capital and stop distance.
func (h *APIHandler) CapitalLotSizeHandler(c *gin.Context) {
	lot := lotsize.CapitalBased(queryFloat(c, "capital"), queryFloat(c, "pips"))
	c.JSON(http.StatusOK, gin.H{"lot_size": lotsize.Format(lot)})
}

// RiskLotSizeHandler sizes a position from a risk amount and stop distance.
func (h *APIHandler) RiskLotSizeHandler(c *gin.Context) {
	lot := lotsize.RiskBased(queryFloat(c, "risk"), queryFloat(c, "sl_pips"))
	c.JSON(http.StatusOK, gin.H{"lot_size": lotsize.Format(lot)})
}
