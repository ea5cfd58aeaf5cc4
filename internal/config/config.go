package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const configPathEnv = "MATCHER_CONFIG"

type Config struct {
	App        AppConfig
	Log        LogConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Embedding  EmbeddingConfig
	Engine     EngineConfig
	Preference PreferenceConfig
	JWT        JWTConfig
	Vocabulary VocabularyConfig
}

type AppConfig struct {
	AppName     string
	Environment string
	HTTPPort    string
}

type LogConfig struct {
	JSON  bool
	Debug bool
}

type DatabaseConfig struct {
	DBHost     string
	DBPort     string
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string

	ConnectTimeout        time.Duration
	PoolMaxConns          int32
	PoolMinConns          int32
	PoolMaxConnLifetime   time.Duration
	PoolMaxConnIdleTime   time.Duration
	PoolHealthCheckPeriod time.Duration
}

// Enabled reports whether a Postgres outcome store should be wired.
func (d DatabaseConfig) Enabled() bool {
	return strings.TrimSpace(d.DBHost) != ""
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.Addr) != ""
}

type EmbeddingConfig struct {
	// Provider is one of gemini, hashing or none.
	Provider  string
	APIKey    string
	Model     string
	CachePath string
	CacheTTL  time.Duration
	CacheSize int
	// WarmVocabulary pre-encodes every known skill at startup.
	WarmVocabulary bool
}

type EngineConfig struct {
	Workers          int
	TaskTimeout      time.Duration
	MaxPairs         int
	AlgorithmVersion string
	ResultCacheSize  int
}

type PreferenceConfig struct {
	LearningRate    float64
	QueueSize       int
	WritesPerSecond float64
}

type JWTConfig struct {
	Secret    string
	ExpiresIn time.Duration
}

type VocabularyConfig struct {
	Path string
}

var errMissingRequiredEnv = errors.New("missing required environment variables")

// Load reads an optional .env file, an optional YAML file named by MATCHER_CONFIG
// and the process environment, in that order of precedence (env wins).
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	if path := strings.TrimSpace(os.Getenv(configPathEnv)); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	return LoadFrom(v)
}

// LoadFrom builds a Config from an already prepared viper instance. Flags bound by the
// CLI and values read from a config file are honored.
func LoadFrom(v *viper.Viper) (Config, error) {
	if v == nil {
		v = viper.New()
	}
	setDefaults(v)
	v.AutomaticEnv()

	str := func(key string) string {
		return strings.TrimSpace(v.GetString(key))
	}

	cfg := Config{}
	cfg.App = AppConfig{
		AppName:     str("app_name"),
		Environment: str("app_env"),
		HTTPPort:    str("http_port"),
	}
	cfg.Log = LogConfig{
		JSON:  v.GetBool("log_json"),
		Debug: v.GetBool("log_debug"),
	}
	cfg.Database = DatabaseConfig{
		DBHost:                str("db_host"),
		DBPort:                str("db_port"),
		DBName:                str("db_name"),
		DBUser:                str("db_user"),
		DBPassword:            v.GetString("db_password"),
		DBSSLMode:             str("db_ssl_mode"),
		ConnectTimeout:        v.GetDuration("db_connect_timeout"),
		PoolMaxConns:          v.GetInt32("db_pool_max_conns"),
		PoolMinConns:          v.GetInt32("db_pool_min_conns"),
		PoolMaxConnLifetime:   v.GetDuration("db_pool_max_conn_lifetime"),
		PoolMaxConnIdleTime:   v.GetDuration("db_pool_max_conn_idle_time"),
		PoolHealthCheckPeriod: v.GetDuration("db_pool_health_check_period"),
	}
	cfg.Redis = RedisConfig{
		Addr:     str("redis_addr"),
		Password: v.GetString("redis_password"),
		DB:       v.GetInt("redis_db"),
		TTL:      v.GetDuration("redis_ttl"),
	}
	cfg.Embedding = EmbeddingConfig{
		Provider:       strings.ToLower(str("embedding_provider")),
		APIKey:         str("gemini_api_key"),
		Model:          str("embedding_model"),
		CachePath:      str("embedding_cache_path"),
		CacheTTL:       v.GetDuration("embedding_cache_ttl"),
		CacheSize:      v.GetInt("embedding_cache_size"),
		WarmVocabulary: v.GetBool("embedding_warm_vocabulary"),
	}
	cfg.Engine = EngineConfig{
		Workers:          v.GetInt("engine_workers"),
		TaskTimeout:      v.GetDuration("engine_task_timeout"),
		MaxPairs:         v.GetInt("engine_max_pairs"),
		AlgorithmVersion: str("engine_algorithm_version"),
		ResultCacheSize:  v.GetInt("engine_result_cache_size"),
	}
	cfg.Preference = PreferenceConfig{
		LearningRate:    v.GetFloat64("preference_learning_rate"),
		QueueSize:       v.GetInt("preference_queue_size"),
		WritesPerSecond: v.GetFloat64("preference_writes_per_second"),
	}
	cfg.JWT = JWTConfig{
		Secret:    v.GetString("jwt_secret"),
		ExpiresIn: v.GetDuration("jwt_expires_in"),
	}
	cfg.Vocabulary = VocabularyConfig{Path: str("vocabulary_path")}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// RequireServer checks the keys only the HTTP server needs.
func (c Config) RequireServer() error {
	var missing []string
	if c.App.AppName == "" {
		missing = append(missing, "APP_NAME")
	}
	if c.App.Environment == "" {
		missing = append(missing, "APP_ENV")
	}
	if c.App.HTTPPort == "" {
		missing = append(missing, "HTTP_PORT")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", errMissingRequiredEnv, strings.Join(missing, ", "))
	}
	return nil
}

func (c Config) validate() error {
	switch c.Embedding.Provider {
	case "gemini", "hashing", "none":
	default:
		return fmt.Errorf("invalid EMBEDDING_PROVIDER %q (want gemini, hashing or none)", c.Embedding.Provider)
	}
	if c.Engine.Workers <= 0 {
		return fmt.Errorf("ENGINE_WORKERS must be positive, got %d", c.Engine.Workers)
	}
	if c.Engine.TaskTimeout <= 0 {
		return fmt.Errorf("ENGINE_TASK_TIMEOUT must be positive, got %s", c.Engine.TaskTimeout)
	}
	if c.Preference.LearningRate <= 0 || c.Preference.LearningRate > 1 {
		return fmt.Errorf("PREFERENCE_LEARNING_RATE must be in (0,1], got %v", c.Preference.LearningRate)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_name", "talent-match")
	v.SetDefault("app_env", "development")
	v.SetDefault("http_port", "8080")

	v.SetDefault("log_json", false)
	v.SetDefault("log_debug", false)

	v.SetDefault("db_port", "5432")
	v.SetDefault("db_ssl_mode", "disable")
	v.SetDefault("db_connect_timeout", 5*time.Second)
	v.SetDefault("db_pool_max_conns", 10)

	v.SetDefault("redis_db", 0)
	v.SetDefault("redis_ttl", 10*time.Minute)

	v.SetDefault("embedding_provider", "hashing")
	v.SetDefault("embedding_model", "text-embedding-004")
	v.SetDefault("embedding_cache_ttl", time.Duration(0))
	v.SetDefault("embedding_cache_size", 50000)
	v.SetDefault("embedding_warm_vocabulary", true)

	v.SetDefault("engine_workers", 4)
	v.SetDefault("engine_task_timeout", 30*time.Second)
	v.SetDefault("engine_max_pairs", 50000)
	v.SetDefault("engine_algorithm_version", "mf-2.1.0")
	v.SetDefault("engine_result_cache_size", 20000)

	v.SetDefault("preference_learning_rate", 0.1)
	v.SetDefault("preference_queue_size", 256)
	v.SetDefault("preference_writes_per_second", 50.0)

	v.SetDefault("jwt_expires_in", 24*time.Hour)
}
