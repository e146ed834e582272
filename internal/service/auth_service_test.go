package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"shiftcare/backend/config"
	"shiftcare/backend/internal/dto"
	"shiftcare/backend/internal/model"
	"shiftcare/backend/pkg/jwt"
)

type mockBlacklist struct {
	tokens map[string]time.Duration
}

func (m *mockBlacklist) BlacklistToken(_ context.Context, jti string, ttl time.Duration) error {
	m.tokens[jti] = ttl
	return nil
}

func setupTestAuthService() (AuthService, *mockRepos, *mockBlacklist, *jwt.Manager) {
	repo, mocks := newMockRepository()
	jwtMgr := jwt.NewManager(&config.AuthConfig{
		JWTSecret:      "test-secret-key-for-unit-testing-2026",
		AccessTokenTTL: 15 * time.Minute,
	})
	bl := &mockBlacklist{tokens: make(map[string]time.Duration)}
	svc := NewAuthService(repo, jwtMgr, bl, zap.NewNop())
	return svc, mocks, bl, jwtMgr
}

func createTestStaff(mocks *mockRepos, id, password string, isAdmin bool) {
	staff := model.Staff{
		StaffID:    id,
		Name:       "职员" + id,
		Groups:     model.GroupList{"1"},
		Qualified:  true,
		Employment: model.EmploymentFullTime,
		IsAdmin:    isAdmin,
	}
	if password != "" {
		hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
		staff.PasswordHash = string(hash)
	}
	mocks.staff.add(staff)
}

// ── 登录测试 ──

func TestLogin_Success(t *testing.T) {
	svc, mocks, _, jwtMgr := setupTestAuthService()
	createTestStaff(mocks, "U001", "password123", true)

	result, err := svc.Login(context.Background(), &dto.LoginRequest{
		StaffID:  "U001",
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("Login 应成功，但返回错误: %v", err)
	}
	if result.AccessToken == "" {
		t.Error("AccessToken 不应为空")
	}
	if result.ExpiresIn != 900 {
		t.Errorf("期望 ExpiresIn=900，实际=%d", result.ExpiresIn)
	}
	if !result.Staff.IsAdmin || !result.Staff.HasPassword {
		t.Errorf("期望管理员且已设置密码，实际: %+v", result.Staff)
	}

	claims, err := jwtMgr.ParseToken(result.AccessToken)
	if err != nil {
		t.Fatalf("ParseToken 失败: %v", err)
	}
	if claims.StaffID != "U001" || !claims.IsAdmin {
		t.Errorf("Token 声明不正确: %+v", claims)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, mocks, _, _ := setupTestAuthService()
	createTestStaff(mocks, "U001", "password123", false)

	_, err := svc.Login(context.Background(), &dto.LoginRequest{StaffID: "U001", Password: "wrong_password"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("期望 ErrInvalidCredentials，实际: %v", err)
	}
}

func TestLogin_StaffNotFound(t *testing.T) {
	svc, _, _, _ := setupTestAuthService()

	_, err := svc.Login(context.Background(), &dto.LoginRequest{StaffID: "U999", Password: "password123"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("期望 ErrInvalidCredentials，实际: %v", err)
	}
}

func TestLogin_WithoutPassword(t *testing.T) {
	svc, mocks, _, _ := setupTestAuthService()
	createTestStaff(mocks, "U002", "", false)

	result, err := svc.Login(context.Background(), &dto.LoginRequest{StaffID: "U002"})
	if err != nil {
		t.Fatalf("未设置密码的职员应可直接登录: %v", err)
	}
	if result.Staff.IsAdmin {
		t.Error("期望 IsAdmin=false")
	}
}

// ── 登出 / Me ──

func TestLogout_BlacklistsToken(t *testing.T) {
	svc, mocks, bl, jwtMgr := setupTestAuthService()
	createTestStaff(mocks, "U001", "", false)

	token, _ := jwtMgr.GenerateAccessToken("U001", false)
	claims, _ := jwtMgr.ParseToken(token)

	if err := svc.Logout(context.Background(), claims); err != nil {
		t.Fatalf("Logout 应成功: %v", err)
	}
	ttl, ok := bl.tokens[claims.ID]
	if !ok {
		t.Fatal("Token 应加入黑名单")
	}
	if ttl <= 0 || ttl > 15*time.Minute {
		t.Errorf("黑名单 TTL 应为剩余有效期，实际=%v", ttl)
	}
}

func TestLogout_WithoutRedis(t *testing.T) {
	repo, _ := newMockRepository()
	jwtMgr := jwt.NewManager(&config.AuthConfig{JWTSecret: "test-secret-key-for-unit-testing-2026", AccessTokenTTL: time.Minute})
	svc := NewAuthService(repo, jwtMgr, nil, zap.NewNop())

	token, _ := jwtMgr.GenerateAccessToken("U001", false)
	claims, _ := jwtMgr.ParseToken(token)
	if err := svc.Logout(context.Background(), claims); err != nil {
		t.Errorf("未配置黑名单时 Logout 不应报错: %v", err)
	}
}

func TestMe(t *testing.T) {
	svc, mocks, _, _ := setupTestAuthService()
	createTestStaff(mocks, "U001", "password123", false)

	me, err := svc.Me(context.Background(), "U001")
	if err != nil {
		t.Fatalf("Me 应成功: %v", err)
	}
	if me.StaffID != "U001" || me.Name != "职员U001" {
		t.Errorf("返回的职员信息不正确: %+v", me)
	}

	if _, err := svc.Me(context.Background(), "U404"); !errors.Is(err, ErrStaffNotFound) {
		t.Errorf("期望 ErrStaffNotFound，实际: %v", err)
	}
}
