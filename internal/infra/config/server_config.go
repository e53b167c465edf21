package configs

import (
	"fmt"
	"os"
	"time"

	"go_stub_server/utils"

	"gopkg.in/yaml.v3"
)

// 存储驱动
const (
	DriverNone   = "none"
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// 模板引擎, 与 template.EngineExpr / EngineGoTemplate 保持一致
const (
	EngineExpr       = "expr"
	EngineGoTemplate = "gotemplate"
)

// ServerConfig stub 服务配置
type ServerConfig struct {
	Server   HTTPConfig     `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Template TemplateConfig `yaml:"template"`
	Relay    RelayConfig    `yaml:"relay"`
	Storage  StorageConfig  `yaml:"storage"`
	RuleRepo RuleRepoConfig `yaml:"ruleRepo"`
	Rules    []string       `yaml:"rules"` // 启动时加载的规则文件
}

type HTTPConfig struct {
	Addr         string        `yaml:"addr"`
	AdminPrefix  string        `yaml:"adminPrefix"` // 管理接口前缀, 默认为空: /mock_list
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSize    int    `yaml:"maxSize"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAge     int    `yaml:"maxAge"`
	Compress   bool   `yaml:"compress"`
	Stdout     bool   `yaml:"stdout"`
}

type TemplateConfig struct {
	Engine string `yaml:"engine"`
	// 剩余延时超过该阈值才真正 sleep
	DelayThreshold time.Duration `yaml:"delayThreshold"`
}

type RelayConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// StorageConfig 规则持久化, driver 为 none 时只保存在内存
type StorageConfig struct {
	Driver               string               `yaml:"driver"`
	SqlitePath           string               `yaml:"sqlitePath"`
	DatabaseConfig       DatabaseConfig       `yaml:"database"`
	DatabaseOptionConfig DatabaseOptionConfig `yaml:"databaseConfig"`
	RedisConfig          RedisConfig          `yaml:"redis"`
}

// RuleRepoConfig 封装 ruleRepoImpl 的配置参数
type RuleRepoConfig struct {
	SaveRuleRetryCount   int           `json:"saveRuleRetryCount" yaml:"saveRuleRetryCount"`
	SaveRuleRetryDelay   time.Duration `json:"saveRuleRetryDelay" yaml:"saveRuleRetryDelay"`
	DeleteRuleRetryCount int           `json:"deleteRuleRetryCount" yaml:"deleteRuleRetryCount"`
	DeleteRuleRetryDelay time.Duration `json:"deleteRuleRetryDelay" yaml:"deleteRuleRetryDelay"`
	PersistPoolSize      int           `json:"persistPoolSize" yaml:"persistPoolSize"`
}

// DefaultServerConfig 不读文件时使用的配置
func DefaultServerConfig() *ServerConfig {
	c := &ServerConfig{}
	c.applyDefaults()
	return c
}

// LoadServerConfig 加载配置, path 为空时按环境变量查找
func LoadServerConfig(path string) (*ServerConfig, error) {
	// 1. 确定配置文件路径
	if path == "" {
		path = getConfigPath()
	}

	// 2. 读取配置文件
	configFile, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// 3. 解析配置
	config := &ServerConfig{}
	if err := yaml.Unmarshal(configFile, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	config.applyDefaults()

	// 4. 验证配置
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return config, nil
}

// getConfigPath 获取配置文件路径
func getConfigPath() string {
	// 优先使用环境变量
	if path := os.Getenv("STUB_CONFIG_PATH"); path != "" {
		return path
	}

	// 默认配置文件路径
	env := os.Getenv("STUB_ENV")
	if env == "" {
		env = "local"
	}

	return fmt.Sprintf("stub.%s.yaml", env)
}

func (c *ServerConfig) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.File == "" {
		c.Log.Stdout = true
	}
	if c.Template.Engine == "" {
		c.Template.Engine = EngineExpr
	}
	if c.Template.DelayThreshold == 0 {
		c.Template.DelayThreshold = 120 * time.Millisecond
	}
	if c.Relay.Timeout == 0 {
		c.Relay.Timeout = 30 * time.Second
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = DriverNone
	}
	if c.Storage.SqlitePath == "" {
		c.Storage.SqlitePath = "stub_rules.db"
	}
	opt := &c.Storage.DatabaseOptionConfig
	if opt.MaxIdleConns == 0 {
		opt.MaxIdleConns = 10
	}
	if opt.MaxOpenConns == 0 {
		opt.MaxOpenConns = 100
	}
	if opt.ConnMaxLifetime == 0 {
		opt.ConnMaxLifetime = time.Hour
	}

	repo := &c.RuleRepo
	if repo.SaveRuleRetryCount == 0 {
		repo.SaveRuleRetryCount = 3
	}
	if repo.SaveRuleRetryDelay == 0 {
		repo.SaveRuleRetryDelay = 100 * time.Millisecond
	}
	if repo.DeleteRuleRetryCount == 0 {
		repo.DeleteRuleRetryCount = 3
	}
	if repo.DeleteRuleRetryDelay == 0 {
		repo.DeleteRuleRetryDelay = 100 * time.Millisecond
	}
	if repo.PersistPoolSize == 0 {
		repo.PersistPoolSize = 16
	}
}

// validate 验证配置
func (c *ServerConfig) validate() error {
	switch c.Template.Engine {
	case EngineExpr, EngineGoTemplate:
	default:
		return fmt.Errorf("unknown template engine %q", c.Template.Engine)
	}
	if c.Template.DelayThreshold < 0 {
		return fmt.Errorf("delayThreshold must not be negative")
	}
	if c.Relay.Timeout < 0 {
		return fmt.Errorf("relay timeout must not be negative")
	}
	if c.RuleRepo.PersistPoolSize <= 0 {
		return fmt.Errorf("persistPoolSize must be positive")
	}

	switch c.Storage.Driver {
	case DriverNone:
	case DriverSQLite:
		if c.Storage.SqlitePath == "" {
			return fmt.Errorf("sqlitePath is required")
		}
	case DriverMySQL:
		// 验证数据库配置
		if err := c.Storage.DatabaseConfig.validate(); err != nil {
			return err
		}
		// 验证数据库连接池配置
		if err := c.Storage.DatabaseOptionConfig.validate(); err != nil {
			return err
		}
	case DriverRedis:
		if c.Storage.RedisConfig.Host == "" {
			return fmt.Errorf("redis host is required")
		}
		if c.Storage.RedisConfig.Port == 0 {
			return fmt.Errorf("redis port is required")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	return nil
}

// LogOptions 转换成 utils.InitLogger 的参数
func (c *ServerConfig) LogOptions() utils.LogOptions {
	return utils.LogOptions{
		Level:      c.Log.Level,
		File:       c.Log.File,
		MaxSize:    c.Log.MaxSize,
		MaxBackups: c.Log.MaxBackups,
		MaxAge:     c.Log.MaxAge,
		Compress:   c.Log.Compress,
		Stdout:     c.Log.Stdout,
	}
}

// Provider functions for wire, 按层拆分配置

func ProvideStorageConfig(c *ServerConfig) *StorageConfig {
	return &c.Storage
}

func ProvideRuleRepoConfig(c *ServerConfig) *RuleRepoConfig {
	return &c.RuleRepo
}

func ProvideTemplateConfig(c *ServerConfig) *TemplateConfig {
	return &c.Template
}

func ProvideRelayConfig(c *ServerConfig) *RelayConfig {
	return &c.Relay
}

func ProvideHTTPConfig(c *ServerConfig) *HTTPConfig {
	return &c.Server
}
