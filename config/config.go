package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"db"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Log      LogConfig      `mapstructure:"log"`
	Engine   EngineConfig   `mapstructure:"engine"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port         int        `mapstructure:"port"`
	BaseURL      string     `mapstructure:"base_url"`
	CORS         CORSConfig `mapstructure:"cors"`
	RateLimit    int        `mapstructure:"rate_limit"`     // 每 IP 每分钟请求数，0 表示关闭
	MaxBodyBytes int64      `mapstructure:"max_body_bytes"` // 请求体上限（导入文件同样受限）
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig 数据库配置（postgres | sqlite）
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	Path            string `mapstructure:"path"` // sqlite 文件路径，":memory:" 为内存库
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // 连接最大生命周期（分钟）
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // 空闲连接最大存活时间（分钟）
}

// DSN 生成 PostgreSQL 连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig Redis 配置；Addr 为空时不连接 Redis
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Enabled 是否配置了 Redis
func (c *RedisConfig) Enabled() bool { return c.Addr != "" }

// AuthConfig JWT 认证配置
type AuthConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
	Issuer         string        `mapstructure:"issuer"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ShiftTypeConfig 班次类型配置项
type ShiftTypeConfig struct {
	Code      string `mapstructure:"code"`
	Name      string `mapstructure:"name"`
	Category  string `mapstructure:"category"`
	StartTime string `mapstructure:"start_time"`
	EndTime   string `mapstructure:"end_time"`
	Color     string `mapstructure:"color"`
	TextColor string `mapstructure:"text_color"`
}

// EngineConfig 排班引擎配置
type EngineConfig struct {
	MinYear                int                `mapstructure:"min_year"`
	MaxYear                int                `mapstructure:"max_year"`
	Strategy               string             `mapstructure:"strategy"` // random | request_only | constraint
	Seed                   int64              `mapstructure:"seed"`     // 0 表示按时间取种子
	DefaultShift           string             `mapstructure:"default_shift"`
	Weights                map[string]float64 `mapstructure:"weights"`
	CoverageMinimums       map[string]int     `mapstructure:"coverage_minimums"`
	MaxConsecutiveDays     int                `mapstructure:"max_consecutive_days"`
	MinDaysOff             int                `mapstructure:"min_days_off"`
	RestAfterNight         bool               `mapstructure:"rest_after_night"`
	NightRequiresQualified bool               `mapstructure:"night_requires_qualified"`
	JobTTL                 time.Duration      `mapstructure:"job_ttl"`  // 已结束任务的保留时间
	LockTTL                time.Duration      `mapstructure:"lock_ttl"` // 分布式生成锁的过期时间
	ShiftTypes             []ShiftTypeConfig  `mapstructure:"shift_types"`
}

var validStrategies = map[string]bool{
	"random":       true,
	"request_only": true,
	"constraint":   true,
}

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// ── 配置文件 ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── 环境变量 ──
	v.SetEnvPrefix("SHIFTCARE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		// 配置文件不存在时仅依赖默认值和环境变量
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:5173"})
	v.SetDefault("server.rate_limit", 300)
	v.SetDefault("server.max_body_bytes", 10<<20)

	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.path", "shiftcare.db")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "shiftcare")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "Asia/Tokyo")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)
	v.SetDefault("db.conn_max_idle_time", 30)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.access_token_ttl", "12h")
	v.SetDefault("auth.issuer", "shiftcare")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("engine.min_year", 2000)
	v.SetDefault("engine.max_year", 2100)
	v.SetDefault("engine.strategy", "random")
	v.SetDefault("engine.seed", 0)
	v.SetDefault("engine.default_shift", "")
	v.SetDefault("engine.coverage_minimums", map[string]int{"S1": 2, "S4": 1})
	v.SetDefault("engine.max_consecutive_days", 5)
	v.SetDefault("engine.min_days_off", 8)
	v.SetDefault("engine.rest_after_night", true)
	v.SetDefault("engine.night_requires_qualified", true)
	v.SetDefault("engine.job_ttl", "1h")
	v.SetDefault("engine.lock_ttl", "5m")
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 不能为空")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 长度不能少于 16 字符")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("配置校验失败: db.driver 只能是 postgres 或 sqlite，当前为 %q", c.Database.Driver)
	}
	if c.Engine.MinYear <= 0 || c.Engine.MinYear > c.Engine.MaxYear {
		return fmt.Errorf("配置校验失败: engine.min_year/max_year 范围无效 (%d~%d)", c.Engine.MinYear, c.Engine.MaxYear)
	}
	if !validStrategies[c.Engine.Strategy] {
		return fmt.Errorf("配置校验失败: engine.strategy 不支持 %q", c.Engine.Strategy)
	}
	for code, min := range c.Engine.CoverageMinimums {
		if min < 0 {
			return fmt.Errorf("配置校验失败: engine.coverage_minimums.%s 不能为负数", code)
		}
	}
	return nil
}
