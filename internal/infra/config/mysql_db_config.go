package configs

import (
	"fmt"
	"time"
)

// DatabaseConfig 数据库基础配置
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// DatabaseOptionConfig 数据库连接池配置
type DatabaseOptionConfig struct {
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
	ConnMaxIdleTime time.Duration `yaml:"connMaxIdleTime"`
	LogLevel        string        `yaml:"logLevel"` // silent | error | warn | info
	SlowThreshold   time.Duration `yaml:"slowThreshold"`
}

// GetDSN mysql 连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		c.Username,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

func (c *DatabaseConfig) validate() error {
	if c.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Port == 0 {
		return fmt.Errorf("database port is required")
	}
	if c.Username == "" {
		return fmt.Errorf("database username is required")
	}
	if c.Database == "" {
		return fmt.Errorf("database name is required")
	}
	return nil
}

func (c *DatabaseOptionConfig) validate() error {
	if c.MaxIdleConns <= 0 {
		return fmt.Errorf("maxIdleConns must be positive")
	}
	if c.MaxOpenConns <= 0 {
		return fmt.Errorf("maxOpenConns must be positive")
	}
	if c.MaxOpenConns < c.MaxIdleConns {
		return fmt.Errorf("maxOpenConns must be greater than or equal to maxIdleConns")
	}
	return nil
}
