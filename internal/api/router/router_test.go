package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"shiftcare/backend/config"
	"shiftcare/backend/internal/api/handler"
	"shiftcare/backend/internal/model"
	"shiftcare/backend/internal/repository"
	"shiftcare/backend/internal/service"
	"shiftcare/backend/pkg/jwt"
	"shiftcare/backend/pkg/metrics"
)

type envelope struct {
	Code int             `json:"code"`
	Data json.RawMessage `json:"data"`
}

type testServer struct {
	t       *testing.T
	handler http.Handler
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:         8080,
			CORS:         config.CORSConfig{AllowOrigins: []string{"http://localhost:5173"}},
			MaxBodyBytes: 1 << 20,
		},
		Database: config.DatabaseConfig{Driver: "sqlite"},
		Auth: config.AuthConfig{
			JWTSecret:      "router-test-secret-123",
			AccessTokenTTL: time.Hour,
			Issuer:         "shiftcare",
		},
		Engine: config.EngineConfig{
			MinYear:          2000,
			MaxYear:          2100,
			Strategy:         "request_only",
			Seed:             7,
			CoverageMinimums: map[string]int{"s2": 1},
			JobTTL:           time.Hour,
			LockTTL:          time.Minute,
		},
	}
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(model.AllModels()...))

	repo := repository.NewRepository(db)
	ctx := context.Background()
	require.NoError(t, repo.Staff.Create(ctx, &model.Staff{StaffID: "A001", Name: "管理者", IsAdmin: true, Employment: "full_time", Groups: model.GroupList{"1"}}))
	require.NoError(t, repo.Staff.Create(ctx, &model.Staff{StaffID: "U002", Name: "職員", Employment: "full_time", Groups: model.GroupList{"1"}, SortOrder: 1}))

	cfg := testConfig()
	jwtMgr := jwt.NewManager(&cfg.Auth)
	reg := prometheus.NewRegistry()
	recorder := metrics.NewPrometheus(reg, "test")

	svc, err := service.NewService(ctx, cfg, repo, jwtMgr, nil, recorder, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Shift.Shutdown(context.Background()) })

	engine := Setup(cfg, handler.NewHandler(svc), Deps{
		JWT:      jwtMgr,
		DB:       repo,
		Recorder: recorder,
		Gatherer: reg,
		Logger:   zap.NewNop(),
	})
	return &testServer{t: t, handler: engine}
}

func (s *testServer) do(method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)

	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func (s *testServer) login(staffID string) string {
	s.t.Helper()
	w, env := s.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"staff_id": staffID})
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())
	var tok struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(s.t, json.Unmarshal(env.Data, &tok))
	require.NotEmpty(s.t, tok.AccessToken)
	return tok.AccessToken
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	w, _ := s.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"redis":"disabled"`)
	require.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w, _ = s.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "test_http_requests_total")
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(http.MethodGet, "/api/v1/shift-types", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, 10002, env.Code)

	w, env = s.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"staff_id": "NOBODY"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, 11001, env.Code)
}

func TestAdminRoutesForbiddenForStaff(t *testing.T) {
	s := newTestServer(t)
	token := s.login("U002")

	w, env := s.do(http.MethodPost, "/api/v1/shifts/generate", token, map[string]int{"year": 2023, "month": 11})
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, 10003, env.Code)

	w, _ = s.do(http.MethodDelete, "/api/v1/staff/A001", token, nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	w, _ = s.do(http.MethodGet, "/api/v1/staff", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(http.MethodGet, "/api/v1/shift-types", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestGenerateAdjustPublishFlow(t *testing.T) {
	s := newTestServer(t)
	admin := s.login("A001")
	staff := s.login("U002")

	// 职员提交 11/10 休み
	w, _ := s.do(http.MethodPut, "/api/v1/requests", staff, map[string]interface{}{
		"year": 2023, "month": 11,
		"requests": []map[string]string{{"date": "2023-11-10"}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// 生成前查询排班表
	w, env := s.do(http.MethodGet, "/api/v1/shifts/grid?year=2023&month=11", admin, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, 16006, env.Code)

	w, _ = s.do(http.MethodPost, "/api/v1/shifts/generate", admin, map[string]int{"year": 2023, "month": 11})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, env = s.do(http.MethodGet, "/api/v1/shifts/assignment?staff_id=U002&date=2023-11-10", staff, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var cell struct {
		ShiftCode string `json:"shift_code"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &cell))
	require.Equal(t, "S5", cell.ShiftCode)

	// request_only 下其余单元格为 S2，每天至少 1 人，可以直接发布
	w, _ = s.do(http.MethodPost, "/api/v1/shifts/publish", admin, map[string]int{"year": 2023, "month": 11})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// 把 11/10 唯一的 S2 改掉后不满足下限
	w, _ = s.do(http.MethodPut, "/api/v1/shifts/assignment", admin, map[string]string{
		"staff_id": "A001", "date": "2023-11-10", "shift_code": "S5",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, env = s.do(http.MethodGet, "/api/v1/shifts/coverage?date=2023-11-10", staff, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var day struct {
		OK bool `json:"ok"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &day))
	require.False(t, day.OK)

	w, env = s.do(http.MethodPost, "/api/v1/shifts/publish", admin, map[string]int{"year": 2023, "month": 11})
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, 16012, env.Code)
}
