package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradegate-bot/tradegate/internal/dto"
	appErrors "github.com/tradegate-bot/tradegate/pkg/errors"
)

type fakeDashboard struct {
	overview    *dto.OverviewResponse
	users       []dto.UserSummary
	profile     *dto.UserProfileResponse
	thread      *dto.ThreadDetailResponse
	leaderboard *dto.LeaderboardResponse
	err         error
}

func (f *fakeDashboard) Overview(context.Context) (*dto.OverviewResponse, error) {
	return f.overview, f.err
}

func (f *fakeDashboard) Users(context.Context) ([]dto.UserSummary, error) {
	return f.users, f.err
}

func (f *fakeDashboard) UserProfile(context.Context, string) (*dto.UserProfileResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.profile, nil
}

func (f *fakeDashboard) Thread(context.Context, string) (*dto.ThreadDetailResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.thread, nil
}

func (f *fakeDashboard) Leaderboard(context.Context) (*dto.LeaderboardResponse, error) {
	return f.leaderboard, f.err
}

func buildRouter(svc dashboardService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterDashboardRoutes(r, "/api/v1", NewDashboardHandler(svc))
	RegisterHealthRoutes(r, nil)
	return r
}

func performRequest(r *gin.Engine, method, path string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestDashboardRoutes(t *testing.T) {
	svc := &fakeDashboard{
		overview: &dto.OverviewResponse{TotalReviews: 5, StarDisplay: "★★★☆☆ (6.0/10)"},
		users:    []dto.UserSummary{{UserID: "u1"}},
		profile:  &dto.UserProfileResponse{UserID: "u1", StarDisplay: "No rating"},
		thread:   &dto.ThreadDetailResponse{ThreadID: "t1", Status: "TOS_ACCEPTED"},
		leaderboard: &dto.LeaderboardResponse{
			MinReviews: 3,
			Rows:       []dto.LeaderboardRow{{Rank: 1, UserID: "u1"}},
		},
	}
	router := buildRouter(svc)

	t.Run("overview", func(t *testing.T) {
		resp := performRequest(router, http.MethodGet, "/api/v1/overview")
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Contains(t, resp.Body.String(), `"total_reviews":5`)
		assert.Contains(t, resp.Body.String(), `"processing_time_ms"`)
	})

	t.Run("users", func(t *testing.T) {
		resp := performRequest(router, http.MethodGet, "/api/v1/users")
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Contains(t, resp.Body.String(), `"user_id":"u1"`)
	})

	t.Run("user profile", func(t *testing.T) {
		resp := performRequest(router, http.MethodGet, "/api/v1/users/u1")
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Contains(t, resp.Body.String(), `"No rating"`)
	})

	t.Run("thread", func(t *testing.T) {
		resp := performRequest(router, http.MethodGet, "/api/v1/threads/t1")
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Contains(t, resp.Body.String(), `"TOS_ACCEPTED"`)
	})

	t.Run("leaderboard", func(t *testing.T) {
		resp := performRequest(router, http.MethodGet, "/api/v1/leaderboard")
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Contains(t, resp.Body.String(), `"min_reviews":3`)
	})

	t.Run("health", func(t *testing.T) {
		resp := performRequest(router, http.MethodGet, "/health")
		require.Equal(t, http.StatusOK, resp.Code)
	})

	t.Run("ready", func(t *testing.T) {
		resp := performRequest(router, http.MethodGet, "/ready")
		require.Equal(t, http.StatusOK, resp.Code)
	})
}

func TestDashboardRoutesErrorMapping(t *testing.T) {
	router := buildRouter(&fakeDashboard{err: appErrors.ErrNotFound})

	resp := performRequest(router, http.MethodGet, "/api/v1/threads/missing")
	require.Equal(t, http.StatusNotFound, resp.Code)
	assert.Contains(t, resp.Body.String(), `"NOT_FOUND"`)
}

func TestReadyReportsDegraded(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterHealthRoutes(r, func() error { return assert.AnError })

	resp := performRequest(r, http.MethodGet, "/ready")
	require.Equal(t, http.StatusServiceUnavailable, resp.Code)
}
