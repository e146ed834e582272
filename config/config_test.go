package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "auth:\n  jwt_secret: a-very-long-test-secret\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, "postgres", cfg.Database.Driver)
	require.Equal(t, 12*time.Hour, cfg.Auth.AccessTokenTTL)
	require.Equal(t, "random", cfg.Engine.Strategy)
	require.Equal(t, 2000, cfg.Engine.MinYear)
	require.Equal(t, 2100, cfg.Engine.MaxYear)
	require.Equal(t, time.Hour, cfg.Engine.JobTTL)
	require.False(t, cfg.Redis.Enabled())
}

func TestLoadFileAndEnv(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
db:
  driver: sqlite
  path: ":memory:"
auth:
  jwt_secret: a-very-long-test-secret
engine:
  strategy: constraint
  coverage_minimums:
    S1: 3
`)
	t.Setenv("SHIFTCARE_SERVER_PORT", "9100")
	t.Setenv("SHIFTCARE_REDIS_ADDR", "localhost:6379")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 9100, cfg.Server.Port, "环境变量优先于配置文件")
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, "constraint", cfg.Engine.Strategy)
	// viper 将 map 键转为小写
	require.Equal(t, 3, cfg.Engine.CoverageMinimums["s1"])
	require.True(t, cfg.Redis.Enabled())
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Server:   ServerConfig{Port: 8080},
			Database: DatabaseConfig{Driver: "sqlite"},
			Auth:     AuthConfig{JWTSecret: "a-very-long-test-secret"},
			Engine:   EngineConfig{MinYear: 2000, MaxYear: 2100, Strategy: "random"},
		}
	}
	cfg := valid()
	require.NoError(t, cfg.Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"密钥为空", func(c *Config) { c.Auth.JWTSecret = "" }},
		{"密钥过短", func(c *Config) { c.Auth.JWTSecret = "short" }},
		{"端口越界", func(c *Config) { c.Server.Port = 70000 }},
		{"驱动未知", func(c *Config) { c.Database.Driver = "mysql" }},
		{"年份范围颠倒", func(c *Config) { c.Engine.MinYear = 2200 }},
		{"策略未知", func(c *Config) { c.Engine.Strategy = "greedy" }},
		{"下限为负", func(c *Config) { c.Engine.CoverageMinimums = map[string]int{"S1": -1} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			require.Error(t, c.Validate())
		})
	}
}

func TestDSN(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Name: "n", SSLMode: "disable", Timezone: "Asia/Tokyo"}
	require.Equal(t, "host=db port=5432 user=u password=p dbname=n sslmode=disable TimeZone=Asia/Tokyo", c.DSN())
}
