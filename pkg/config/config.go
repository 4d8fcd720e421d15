package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	SQLite     SQLiteConfig
	Redis      RedisConfig
	LLM        LLMConfig
	Evaluation EvaluationConfig
	Logging    LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  int
	WriteTimeout int
	BodyLimit    int
}

type SQLiteConfig struct {
	Path string
}

type RedisConfig struct {
	Host          string
	Port          int
	Password      string
	DB            int
	SessionTTLMin int
}

type LLMConfig struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float32
	MaxTokens   int
	TimeoutSec  int
}

type EvaluationConfig struct {
	GroundTruthPath string
	DatasetsDir     string
	ResultsDir      string
	TargetAccuracy  float64
	ExecTimeoutSec  int
	PreviewRows     int
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

// Configured reports whether an LLM API key is present. Callers use this to
// decide between constructing a live client and the explicit not-configured
// state (a nil client).
func (c LLMConfig) Configured() bool {
	return c.APIKey != ""
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/nlq-agent")

	viper.SetEnvPrefix("NLQ_AGENT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readTimeout", 30)
	viper.SetDefault("server.writeTimeout", 60)
	viper.SetDefault("server.bodyLimit", 10485760)

	viper.SetDefault("sqlite.path", "./data/nlq.db")

	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.sessionTTLMin", 120)

	viper.SetDefault("llm.provider", "openai")
	viper.SetDefault("llm.model", "gpt-4o-mini")
	viper.SetDefault("llm.temperature", 0.2)
	viper.SetDefault("llm.maxTokens", 1024)
	viper.SetDefault("llm.timeoutSec", 30)

	viper.SetDefault("evaluation.groundTruthPath", "./evaluation/ground_truth.json")
	viper.SetDefault("evaluation.datasetsDir", "./evaluation/test_datasets")
	viper.SetDefault("evaluation.resultsDir", "./evaluation/results")
	viper.SetDefault("evaluation.targetAccuracy", 90.0)
	viper.SetDefault("evaluation.execTimeoutSec", 10)
	viper.SetDefault("evaluation.previewRows", 5)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}
