package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tradegate-bot/tradegate/internal/dto"
	appErrors "github.com/tradegate-bot/tradegate/pkg/errors"
	"github.com/tradegate-bot/tradegate/pkg/response"
)

type dashboardService interface {
	Overview(ctx context.Context) (*dto.OverviewResponse, error)
	Users(ctx context.Context) ([]dto.UserSummary, error)
	UserProfile(ctx context.Context, userID string) (*dto.UserProfileResponse, error)
	Thread(ctx context.Context, threadID string) (*dto.ThreadDetailResponse, error)
	Leaderboard(ctx context.Context) (*dto.LeaderboardResponse, error)
}

// DashboardHandler wires the read-only reputation dashboard to HTTP endpoints.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Overview serves GET /api/v1/overview.
func (h *DashboardHandler) Overview(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	start := time.Now()
	summary, err := h.service.Overview(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, processingMeta(start))
}

// Users serves GET /api/v1/users.
func (h *DashboardHandler) Users(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	start := time.Now()
	users, err := h.service.Users(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, users, processingMeta(start))
}

// UserProfile serves GET /api/v1/users/:id.
func (h *DashboardHandler) UserProfile(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	userID := strings.TrimSpace(c.Param("id"))
	if userID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "user id is required"))
		return
	}
	start := time.Now()
	profile, err := h.service.UserProfile(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, processingMeta(start))
}

// Thread serves GET /api/v1/threads/:id.
func (h *DashboardHandler) Thread(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	threadID := strings.TrimSpace(c.Param("id"))
	if threadID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "thread id is required"))
		return
	}
	start := time.Now()
	detail, err := h.service.Thread(c.Request.Context(), threadID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, processingMeta(start))
}

// Leaderboard serves GET /api/v1/leaderboard.
func (h *DashboardHandler) Leaderboard(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	start := time.Now()
	board, err := h.service.Leaderboard(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, board, processingMeta(start))
}

func processingMeta(start time.Time) map[string]interface{} {
	return map[string]interface{}{
		"processing_time_ms": time.Since(start).Milliseconds(),
	}
}
