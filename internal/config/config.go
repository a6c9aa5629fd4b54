package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config 是 minivoice 的顶层配置结构。
// 配置文件是可选的：所有字段都可以由命令行 flag 覆盖。
type Config struct {
	TTS   TTSConfig   `yaml:"tts"`
	Log   LogConfig   `yaml:"log"`
	Cache CacheConfig `yaml:"cache"`
}

// TTSConfig MiniMax 语音合成配置。
type TTSConfig struct {
	Endpoint      string  `yaml:"endpoint"`
	APIKey        string  `yaml:"api_key"`
	Model         string  `yaml:"model"`
	VoiceID       string  `yaml:"voice_id"`
	Format        string  `yaml:"format"`
	SampleRate    int     `yaml:"sample_rate"`
	Bitrate       int     `yaml:"bitrate"`
	Channel       int     `yaml:"channel"`
	Speed         float64 `yaml:"speed"`
	Volume        float64 `yaml:"volume"`
	Pitch         int     `yaml:"pitch"`
	LanguageBoost string  `yaml:"language_boost"`
	OutputFormat  string  `yaml:"output_format"`
	// Timeout 单次 HTTP 请求超时时间（秒）。
	Timeout int `yaml:"timeout"`
}

// LogConfig 日志配置。
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
}

// CacheConfig 合成结果缓存配置。
type CacheConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
	// MaxSizeMB 缓存目录最大大小（MB），0 表示不限制。
	MaxSizeMB int64 `yaml:"max_size_mb"`
}

// 默认值，与 MiniMax T2A v2 接口文档一致。
const (
	DefaultEndpoint   = "https://api.minimax.io/v1/t2a_v2"
	DefaultModel      = "speech-2.8-hd"
	DefaultFormat     = "mp3"
	DefaultSampleRate = 32000
	DefaultBitrate    = 128000
	DefaultChannel    = 1
	DefaultTimeout    = 60
)

// Default 返回填充了默认值的空配置。
func Default() *Config {
	cfg := &Config{}
	setDefaults(cfg)
	return cfg
}

// Load 读取 YAML 配置文件并返回 Config。
// 支持 ${VAR_NAME} 形式的环境变量展开。
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件 %s 失败: %w", path, err)
	}

	// 展开环境变量，如 ${MINIMAX_API_KEY}
	expanded := os.Expand(string(data), func(key string) string {
		return os.Getenv(key)
	})

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件 %s 失败: %w", path, err)
	}

	setDefaults(cfg)
	return cfg, nil
}

// setDefaults 为未设置的配置项填充默认值。
func setDefaults(cfg *Config) {
	if cfg.TTS.Endpoint == "" {
		if env := os.Getenv("MINIMAX_TTS_ENDPOINT"); env != "" {
			cfg.TTS.Endpoint = env
		} else {
			cfg.TTS.Endpoint = DefaultEndpoint
		}
	}
	if cfg.TTS.Model == "" {
		cfg.TTS.Model = DefaultModel
	}
	if cfg.TTS.Format == "" {
		cfg.TTS.Format = DefaultFormat
	}
	if cfg.TTS.SampleRate == 0 {
		cfg.TTS.SampleRate = DefaultSampleRate
	}
	if cfg.TTS.Bitrate == 0 {
		cfg.TTS.Bitrate = DefaultBitrate
	}
	if cfg.TTS.Channel == 0 {
		cfg.TTS.Channel = DefaultChannel
	}
	if cfg.TTS.Speed == 0 {
		cfg.TTS.Speed = 1.0
	}
	if cfg.TTS.Volume == 0 {
		cfg.TTS.Volume = 1.0
	}
	if cfg.TTS.LanguageBoost == "" {
		cfg.TTS.LanguageBoost = "auto"
	}
	if cfg.TTS.OutputFormat == "" {
		cfg.TTS.OutputFormat = "hex"
	}
	if cfg.TTS.Timeout == 0 {
		cfg.TTS.Timeout = DefaultTimeout
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	if cfg.Cache.Dir == "" {
		home, _ := os.UserHomeDir()
		if home != "" {
			cfg.Cache.Dir = filepath.Join(home, ".minivoice", "cache")
		} else {
			cfg.Cache.Dir = "./.minivoice-cache"
		}
	} else if strings.HasPrefix(cfg.Cache.Dir, "~/") {
		// Go 不会自动展开 ~，需要手动替换为用户主目录
		home, _ := os.UserHomeDir()
		if home != "" {
			cfg.Cache.Dir = home + cfg.Cache.Dir[1:]
		}
	}

	// 去除 API Key 两端可能的空白（环境变量展开后常见）
	cfg.TTS.APIKey = strings.TrimSpace(cfg.TTS.APIKey)
}
