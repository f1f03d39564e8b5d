package conf

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Backend  BackendConfig
	Chat     ChatConfig
	Log      LogConfig
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// BackendConfig points at the external chat pipeline this service consumes.
type BackendConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ChatConfig holds the default generation settings sent with every stream
// request. Individual sends may override them.
type ChatConfig struct {
	AutoAcceptedPlan              bool   `mapstructure:"auto_accepted_plan"`
	EnableDeepThinking            bool   `mapstructure:"enable_deep_thinking"`
	EnableBackgroundInvestigation bool   `mapstructure:"enable_background_investigation"`
	MaxPlanIterations             int    `mapstructure:"max_plan_iterations"`
	MaxStepNum                    int    `mapstructure:"max_step_num"`
	MaxSearchResults              int    `mapstructure:"max_search_results"`
	ReportStyle                   string `mapstructure:"report_style"`
	Model                         string `mapstructure:"model"`
}

type LogConfig struct {
	Level            string        `mapstructure:"level"`
	Format           string        `mapstructure:"format"`
	Output           string        `mapstructure:"output"`
	File             FileLogConfig `mapstructure:"file"`
	EnableCaller     bool          `mapstructure:"enablecaller"`
	EnableStacktrace bool          `mapstructure:"enablestacktrace"`
}

type FileLogConfig struct {
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"maxsize"`
	MaxAge     int    `mapstructure:"maxage"`
	MaxBackups int    `mapstructure:"maxbackups"`
	Compress   bool   `mapstructure:"compress"`
}

func LoadConfig(path string) (*Config, error) {
	viper.SetConfigFile(path)
	viper.AutomaticEnv()

	viper.SetDefault("backend.timeout", "5m")
	viper.SetDefault("chat.max_plan_iterations", 1)
	viper.SetDefault("chat.max_step_num", 3)
	viper.SetDefault("chat.max_search_results", 3)
	viper.SetDefault("chat.report_style", "academic")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}
