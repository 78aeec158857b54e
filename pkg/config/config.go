package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"sales-tracker-backend/pkg/database"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

// 数据库驱动
const (
	DriverPostgres = database.DriverPostgres
	DriverGorm     = database.DriverGorm
	DriverMemory   = database.DriverMemory
)

// Config 应用配置结构
type Config struct {
	// 环境配置
	Environment string
	Port        string

	// 数据库配置
	DBDriver     string
	PostgresDSN  string
	LocalDataDir string

	// JWT配置
	JWTSecret    string
	JWTExpiresIn string
	BcryptCost   int

	// 限流配置
	RateLimitWindow     time.Duration
	RateLimitMax        int
	AuthRateLimitWindow time.Duration
	AuthRateLimitMax    int

	// CORS配置
	AllowedOrigins []string

	// TrustedProxies lists the peers (IPs or CIDRs) whose forwarding headers
	// name the client; empty means the socket peer is always the client
	TrustedProxies []string

	// 访问策略
	// OrglessPeerAccess: 两个都没有组织的用户在同组织检查中视为同一范围
	OrglessPeerAccess bool
	// UnscopedUserListing: 没有组织的调用者可以列出全部用户
	UnscopedUserListing bool

	MetricsEnabled bool

	// 调试配置
	Debug bool
}

// LoadConfig 加载配置（环境变量优先，其次 .env 文件）
func LoadConfig() *Config {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	// godotenv 不会覆盖已经存在的环境变量
	loadEnvFiles(".env."+env, ".env")

	config := &Config{
		Environment:         getEnvWithDefault("ENVIRONMENT", "development"),
		Port:                getEnvWithDefault("PORT", "5000"),
		JWTSecret:           getEnvWithDefault("JWT_SECRET", defaultJWTSecret),
		JWTExpiresIn:        getEnvWithDefault("JWT_EXPIRES_IN", "7d"),
		BcryptCost:          getEnvInt("BCRYPT_COST", bcrypt.DefaultCost),
		RateLimitWindow:     getEnvMillis("RATE_LIMIT_WINDOW_MS", 15*time.Minute),
		RateLimitMax:        getEnvInt("RATE_LIMIT_MAX_REQUESTS", 100),
		AuthRateLimitWindow: getEnvMillis("AUTH_RATE_LIMIT_WINDOW_MS", 15*time.Minute),
		AuthRateLimitMax:    getEnvInt("AUTH_RATE_LIMIT_MAX_REQUESTS", 5),
		OrglessPeerAccess:   getEnvBool("ORGLESS_PEER_ACCESS", true),
		UnscopedUserListing: getEnvBool("UNSCOPED_USER_LISTING", false),
		MetricsEnabled:      getEnvBool("METRICS_ENABLED", true),
		Debug:               getEnvBool("DEBUG", false),
	}

	// Trim whitespace to avoid trailing spaces/newlines from env sources
	config.PostgresDSN = strings.TrimSpace(os.Getenv("POSTGRES_DSN"))
	config.LocalDataDir = strings.TrimSpace(os.Getenv("LOCAL_DATA_DIR"))

	config.DBDriver = strings.ToLower(strings.TrimSpace(os.Getenv("DB_DRIVER")))
	if config.DBDriver == "" {
		if config.PostgresDSN != "" {
			config.DBDriver = DriverPostgres
		} else {
			config.DBDriver = DriverMemory
		}
	}

	// CORS配置
	allowedOrigins := getEnvWithDefault("ALLOWED_ORIGINS", "*")
	if allowedOrigins == "*" {
		config.AllowedOrigins = []string{"*"}
	} else {
		for _, origin := range strings.Split(allowedOrigins, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				config.AllowedOrigins = append(config.AllowedOrigins, origin)
			}
		}
	}

	for _, proxy := range strings.Split(os.Getenv("TRUSTED_PROXIES"), ",") {
		if proxy = strings.TrimSpace(proxy); proxy != "" {
			config.TrustedProxies = append(config.TrustedProxies, proxy)
		}
	}

	if config.Environment == "production" {
		// 生产环境关闭调试
		config.Debug = false
	}

	return config
}

// Cached config (initialized once per cold start)
var (
	cachedConfig *Config
	configOnce   sync.Once
)

// GetCached returns the process-wide cached Config.
// On serverless it initializes once per cold start and is reused
// across warm invocations.
func GetCached() *Config {
	configOnce.Do(func() {
		cachedConfig = LoadConfig()
	})
	return cachedConfig
}

// DatabaseConfig 转换为数据库层配置
func (c *Config) DatabaseConfig() database.DatabaseConfig {
	return database.DatabaseConfig{
		Driver:       c.DBDriver,
		PostgresDSN:  c.PostgresDSN,
		LocalDataDir: c.LocalDataDir,
		Debug:        c.Debug,
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if c.IsProduction() && (c.JWTSecret == "" || c.JWTSecret == defaultJWTSecret) {
		return fmt.Errorf("JWT_SECRET must be set in production")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must not be empty")
	}

	if _, err := c.TokenTTL(); err != nil {
		return err
	}

	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}

	if c.RateLimitWindow <= 0 || c.RateLimitMax <= 0 {
		return fmt.Errorf("general rate limit window and max must be positive")
	}
	if c.AuthRateLimitWindow <= 0 || c.AuthRateLimitMax <= 0 {
		return fmt.Errorf("auth rate limit window and max must be positive")
	}

	if _, err := c.TrustedProxyNets(); err != nil {
		return err
	}

	switch c.DBDriver {
	case DriverPostgres, DriverGorm:
		if c.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required for DB_DRIVER=%s", c.DBDriver)
		}
	case DriverMemory:
		// 内存数据库，无需额外验证
	default:
		return fmt.Errorf("unknown DB_DRIVER %q", c.DBDriver)
	}

	return nil
}

// TokenTTL 解析 JWT_EXPIRES_IN，支持 "7d" 以及 Go duration 格式
func (c *Config) TokenTTL() (time.Duration, error) {
	return ParseDuration(c.JWTExpiresIn)
}

// ParseDuration accepts a whole number of days ("7d") or anything
// time.ParseDuration understands.
func ParseDuration(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if strings.HasSuffix(value, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(value, "d"))
		if err != nil || days <= 0 {
			return 0, fmt.Errorf("invalid duration %q", value)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", value, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid duration %q", value)
	}
	return d, nil
}

// TrustedProxyNets 解析 TRUSTED_PROXIES；单个 IP 视为 /32 或 /128
func (c *Config) TrustedProxyNets() ([]*net.IPNet, error) {
	nets := make([]*net.IPNet, 0, len(c.TrustedProxies))
	for _, entry := range c.TrustedProxies {
		if !strings.Contains(entry, "/") {
			ip := net.ParseIP(entry)
			if ip == nil {
				return nil, fmt.Errorf("invalid TRUSTED_PROXIES entry %q", entry)
			}
			bits := 8 * net.IPv6len
			if ip4 := ip.To4(); ip4 != nil {
				ip, bits = ip4, 8*net.IPv4len
			}
			nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, n, err := net.ParseCIDR(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid TRUSTED_PROXIES entry %q: %w", entry, err)
		}
		nets = append(nets, n)
	}
	return nets, nil
}

// IsProduction 检查是否为生产环境
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// IsDevelopment 检查是否为开发环境
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// 辅助函数

// loadEnvFiles 加载存在的 .env 文件
func loadEnvFiles(filenames ...string) {
	for _, filename := range filenames {
		if _, err := os.Stat(filename); err != nil {
			continue
		}
		if err := godotenv.Load(filename); err != nil {
			logrus.WithError(err).WithField("file", filename).Warn("failed to load env file")
		}
	}
}

// getEnvWithDefault 获取环境变量，如果不存在则使用默认值
func getEnvWithDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool 获取布尔类型的环境变量
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvInt 获取整数类型的环境变量，无法解析时返回默认值
func getEnvInt(key string, defaultValue int) int {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvMillis 读取毫秒数并转换为 time.Duration
func getEnvMillis(key string, defaultValue time.Duration) time.Duration {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if ms, err := strconv.ParseInt(value, 10, 64); err == nil {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return defaultValue
}
