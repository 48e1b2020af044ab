package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config 全局配置结构体
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	WebSocket WebSocketConfig `mapstructure:"websocket"`
	Game      GameConfig      `mapstructure:"game"`
	Generator GeneratorConfig `mapstructure:"generator"`
	Log       LogConfig       `mapstructure:"log"`
	Security  SecurityConfig  `mapstructure:"security"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	LogLevel        string        `mapstructure:"log_level"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// WebSocketConfig WebSocket配置
type WebSocketConfig struct {
	Path            string        `mapstructure:"path"`
	ReadBufferSize  int           `mapstructure:"read_buffer_size"`
	WriteBufferSize int           `mapstructure:"write_buffer_size"`
	MaxMessageSize  int64         `mapstructure:"max_message_size"`
	PingInterval    time.Duration `mapstructure:"ping_interval"`
	PongTimeout     time.Duration `mapstructure:"pong_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
}

// GameConfig 游戏配置
type GameConfig struct {
	InitialCash    int64 `mapstructure:"initial_cash"`     // 玩家初始现金
	NumberOfStocks int   `mapstructure:"number_of_stocks"` // 每局股票数量
	TotalRounds    int   `mapstructure:"total_rounds"`     // 默认总回合数
	MaxPlayers     int   `mapstructure:"max_players"`      // 房间人数上限

	// 价格冲击模型的随机抖动区间（只作用于冲击分量）
	JitterMin float64 `mapstructure:"jitter_min"`
	JitterMax float64 `mapstructure:"jitter_max"`
}

// GeneratorConfig 叙事事件生成器配置
type GeneratorConfig struct {
	// mode: template（模板随机）或 llm（大模型生成，失败时回退）
	Mode     string        `mapstructure:"mode"`
	BaseURL  string        `mapstructure:"base_url"`
	APIKey   string        `mapstructure:"api_key"`
	Model    string        `mapstructure:"model"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Tone     string        `mapstructure:"tone"`
	Language string        `mapstructure:"language"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	JWTSecret          string        `mapstructure:"jwt_secret"`
	AccessTokenExpiry  time.Duration `mapstructure:"access_token_expiry"`
	RefreshTokenExpiry time.Duration `mapstructure:"refresh_token_expiry"`
}

var (
	cfg      *Config
	mu       sync.RWMutex
	watchers []func(*Config)
)

// Init 初始化配置
func Init(configPath string) error {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// 环境变量覆盖，如 PARTY_MARKET_SERVER_PORT
	v.SetEnvPrefix("PARTY_MARKET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// 配置文件不存在时使用默认值
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	newCfg := &Config{}
	if err := v.Unmarshal(newCfg); err != nil {
		return fmt.Errorf("解析配置失败: %w", err)
	}

	if err := newCfg.Validate(); err != nil {
		return fmt.Errorf("配置验证失败: %w", err)
	}

	mu.Lock()
	cfg = newCfg
	mu.Unlock()

	// 监听配置文件变化
	v.OnConfigChange(func(e fsnotify.Event) {
		reloaded := &Config{}
		if err := v.Unmarshal(reloaded); err != nil {
			return
		}
		if err := reloaded.Validate(); err != nil {
			return
		}

		mu.Lock()
		cfg = reloaded
		callbacks := make([]func(*Config), len(watchers))
		copy(callbacks, watchers)
		mu.Unlock()

		for _, fn := range callbacks {
			fn(reloaded)
		}
	})
	v.WatchConfig()

	return nil
}

// setDefaults 设置默认配置
func setDefaults(v *viper.Viper) {
	// 服务器
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")

	// 数据库
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./data/party-market.db")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("database.auto_migrate", true)

	// WebSocket
	v.SetDefault("websocket.path", "/ws")
	v.SetDefault("websocket.read_buffer_size", 1024)
	v.SetDefault("websocket.write_buffer_size", 1024)
	v.SetDefault("websocket.max_message_size", 4096)
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.pong_timeout", "60s")
	v.SetDefault("websocket.write_timeout", "10s")

	// 游戏
	v.SetDefault("game.initial_cash", 100)
	v.SetDefault("game.number_of_stocks", 10)
	v.SetDefault("game.total_rounds", 10)
	v.SetDefault("game.max_players", 12)
	v.SetDefault("game.jitter_min", 0.75)
	v.SetDefault("game.jitter_max", 1.25)

	// 事件生成器
	v.SetDefault("generator.mode", "template")
	v.SetDefault("generator.base_url", "https://api.openai.com/v1")
	v.SetDefault("generator.model", "gpt-4o-mini")
	v.SetDefault("generator.timeout", "20s")
	v.SetDefault("generator.tone", "轻松搞笑")
	v.SetDefault("generator.language", "中文")

	// 日志
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.filename", "./logs/party-market.log")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 10)
	v.SetDefault("log.max_age", 30)
	v.SetDefault("log.compress", true)

	// 安全
	v.SetDefault("security.jwt_secret", "party-market-dev-secret")
	v.SetDefault("security.access_token_expiry", "2h")
	v.SetDefault("security.refresh_token_expiry", "168h")
}

// Validate 验证配置合法性
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("无效的服务器端口: %d", c.Server.Port)
	}

	switch c.Database.Driver {
	case "sqlite", "sqlite3", "mysql", "postgres", "postgresql":
	default:
		return fmt.Errorf("不支持的数据库驱动: %s", c.Database.Driver)
	}

	if c.Game.InitialCash <= 0 {
		return fmt.Errorf("玩家初始现金必须大于0")
	}
	if c.Game.NumberOfStocks <= 0 {
		return fmt.Errorf("股票数量必须大于0")
	}
	if c.Game.TotalRounds <= 0 {
		return fmt.Errorf("总回合数必须大于0")
	}
	if c.Game.JitterMin <= 0 || c.Game.JitterMax < c.Game.JitterMin {
		return fmt.Errorf("无效的价格抖动区间: [%v, %v]", c.Game.JitterMin, c.Game.JitterMax)
	}

	switch c.Generator.Mode {
	case "template", "llm":
	default:
		return fmt.Errorf("不支持的事件生成器模式: %s", c.Generator.Mode)
	}

	return nil
}

// Get 获取当前配置
func Get() *Config {
	mu.RLock()
	defer mu.RUnlock()
	return cfg
}

// Watch 注册配置变化回调
func Watch(fn func(*Config)) {
	mu.Lock()
	defer mu.Unlock()
	watchers = append(watchers, fn)
}
