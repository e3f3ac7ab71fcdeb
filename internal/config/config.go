package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	JWT          JWTConfig
	Tracing      TracingConfig `mapstructure:"tracing"`
	Redis        RedisConfig
	CORS         CORSConfig         `mapstructure:"cors"`
	RateLimit    RateLimitConfig    `mapstructure:"rate_limit"`
	LearnerModel LearnerModelConfig `mapstructure:"learner_model"`
	Scheduler    SchedulerConfig    `mapstructure:"scheduler"`
	Training     TrainingConfig     `mapstructure:"training"`

	// 运行时标志（非配置文件，通过命令行参数设置）
	ForceMigrate bool `mapstructure:"-"`
	MigrateOnly  bool `mapstructure:"-"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowMinutes int `mapstructure:"window_minutes"`
}

type ServerConfig struct {
	Port string
	Mode string
}

type DatabaseConfig struct {
	Driver    string
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	Charset   string
	ParseTime bool
	SSLMode   string `mapstructure:"sslmode"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
	ServiceName       string `mapstructure:"service_name"`
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// LearnerModelConfig points at the adaptive-learning model that scores ability and mastery.
type LearnerModelConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type SchedulerConfig struct {
	Driver        string        `mapstructure:"driver"` // redis | amqp
	QueueKey      string        `mapstructure:"queue_key"`
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	BatchSize     int64         `mapstructure:"batch_size"`
	AMQPURL       string        `mapstructure:"amqp_url"`
	AMQPExchange  string        `mapstructure:"amqp_exchange"`
	NotifyChannel string        `mapstructure:"notify_channel"`
}

type TrainingConfig struct {
	XPPerDifficulty map[string]int   `mapstructure:"xp_per_difficulty"`
	Evaluation      EvaluationConfig `mapstructure:"evaluation"`
}

// EvaluationConfig holds the fallback thresholds used when no evaluation setting row exists.
type EvaluationConfig struct {
	CorrectThreshold float64               `mapstructure:"correct_threshold"`
	PerformanceBands []PerformanceBandSpec `mapstructure:"performance_bands"`
	CacheTTL         time.Duration         `mapstructure:"cache_ttl"`
}

type PerformanceBandSpec struct {
	Name     string  `mapstructure:"name" json:"name"`
	MinRatio float64 `mapstructure:"min_ratio" json:"min_ratio"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.charset", "utf8mb4")
	v.SetDefault("database.parsetime", true)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("tracing.service_name", "training-engine")
	v.SetDefault("rate_limit.max_requests", 6000)
	v.SetDefault("rate_limit.window_minutes", 1)
	v.SetDefault("learner_model.timeout", 3*time.Second)
	v.SetDefault("scheduler.driver", "redis")
	v.SetDefault("scheduler.queue_key", "training:jobs:delayed")
	v.SetDefault("scheduler.poll_interval", time.Second)
	v.SetDefault("scheduler.batch_size", 50)
	v.SetDefault("scheduler.amqp_exchange", "training.jobs")
	v.SetDefault("scheduler.notify_channel", "training:notifications")
	v.SetDefault("training.xp_per_difficulty", map[string]int{"easy": 5, "medium": 10, "hard": 15})
	v.SetDefault("training.evaluation.correct_threshold", 0.5)
	v.SetDefault("training.evaluation.cache_ttl", 5*time.Minute)
}

func LoadConfig(path string) (*Config, error) {
	// .env 文件可选
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("MEDTRAIN")
	v.AutomaticEnv()
	setDefaults(v)

	// Database
	v.BindEnv("database.driver", "DATABASE_DRIVER")
	v.BindEnv("database.host", "DATABASE_HOST")
	v.BindEnv("database.port", "DATABASE_PORT")
	v.BindEnv("database.user", "DATABASE_USER")
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("database.dbname", "DATABASE_NAME")

	// JWT
	v.BindEnv("jwt.secret", "JWT_SECRET")

	// Redis
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// Server
	v.BindEnv("server.mode", "SERVER_MODE")

	// Learner model
	v.BindEnv("learner_model.base_url", "LEARNER_MODEL_URL")
	v.BindEnv("learner_model.api_key", "LEARNER_MODEL_API_KEY")

	// Scheduler
	v.BindEnv("scheduler.driver", "SCHEDULER_DRIVER")
	v.BindEnv("scheduler.amqp_url", "AMQP_URL")

	// Tracing
	v.BindEnv("tracing.enabled", "TRACING_ENABLED")
	v.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.Server.Mode == "release" && len(cfg.JWT.Secret) < 32 {
		return nil, fmt.Errorf("JWT secret is too short (%d chars), must be at least 32 characters in release mode", len(cfg.JWT.Secret))
	}

	if t := cfg.Training.Evaluation.CorrectThreshold; t < 0 || t > 1 {
		return nil, fmt.Errorf("training.evaluation.correct_threshold must be within [0,1], got %v", t)
	}

	switch cfg.Scheduler.Driver {
	case "redis", "amqp":
	default:
		return nil, fmt.Errorf("unknown scheduler driver %q", cfg.Scheduler.Driver)
	}

	return &cfg, nil
}
