package server

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration 是 time.Duration 的 yaml 包裝。
//
// yaml.v3 不認得 "10s" 這種寫法，這裡用 time.ParseDuration 自己解析。
type Duration time.Duration

// UnmarshalYAML 實現 yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := time.ParseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", node.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std 轉回標準的 time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config 整個應用的配置
type Config struct {
	Server struct {
		Port         int      `yaml:"port"`
		ReadTimeout  Duration `yaml:"read_timeout"`
		WriteTimeout Duration `yaml:"write_timeout"`
		IdleTimeout  Duration `yaml:"idle_timeout"`
	} `yaml:"server"`

	Cache struct {
		Capacity int `yaml:"capacity"` // 快取容量（項目數），0 表示什麼都不保留
	} `yaml:"cache"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// DefaultConfig 返回預設配置
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Server.Port = 8080
	cfg.Server.ReadTimeout = Duration(10 * time.Second)
	cfg.Server.WriteTimeout = Duration(10 * time.Second)
	cfg.Server.IdleTimeout = Duration(60 * time.Second)
	cfg.Cache.Capacity = 1024
	cfg.Log.Level = "info"
	cfg.Log.Format = "text"
	return cfg
}

// LoadConfig 載入配置
//
// 載入順序：
//   1. 預設值
//   2. YAML 配置檔（path 為空或檔案不存在時跳過）
//   3. 環境變數覆蓋（PORT、CACHE_CAPACITY，生產環境常用）
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path) // #nosec G304 - path 是從命令列來的
		switch {
		case os.IsNotExist(err):
			// 沒有配置檔就用預設值
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	// 環境變數覆蓋
	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT %q: %w", port, err)
		}
		cfg.Server.Port = p
	}
	if capacity := os.Getenv("CACHE_CAPACITY"); capacity != "" {
		n, err := strconv.Atoi(capacity)
		if err != nil {
			return nil, fmt.Errorf("invalid CACHE_CAPACITY %q: %w", capacity, err)
		}
		cfg.Cache.Capacity = n
	}

	if cfg.Cache.Capacity < 0 {
		return nil, fmt.Errorf("cache capacity must be >= 0, got %d", cfg.Cache.Capacity)
	}

	return cfg, nil
}
