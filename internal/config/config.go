package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App      AppConfig      `yaml:"app"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Session  SessionConfig  `yaml:"session"`
	Storage  StorageConfig  `yaml:"storage"`
	Backend  BackendConfig  `yaml:"backend"`
	Template TemplateConfig `yaml:"template"`
	Report   ReportConfig   `yaml:"report"`
	Workers  WorkersConfig  `yaml:"workers"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type AppConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Env     string `yaml:"env"`
}

type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes"`
}

type DatabaseConfig struct {
	Host               string        `yaml:"host"`
	Port               int           `yaml:"port"`
	User               string        `yaml:"user"`
	Password           string        `yaml:"password"`
	Name               string        `yaml:"name"`
	Charset            string        `yaml:"charset"`
	ParseTime          bool          `yaml:"parse_time"`
	Loc                string        `yaml:"loc"`
	MaxConnections     int           `yaml:"max_connections"`
	MaxIdleConnections int           `yaml:"max_idle_connections"`
	ConnectionLifetime time.Duration `yaml:"connection_lifetime"`
}

type RedisConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	Password    string `yaml:"password"`
	DB          int    `yaml:"db"`
	PoolSize    int    `yaml:"pool_size"`
	SubmitQueue string `yaml:"submit_queue"`
	DLQSuffix   string `yaml:"dlq_suffix"`
}

type SessionConfig struct {
	KeyPrefix string        `yaml:"key_prefix"`
	TTL       time.Duration `yaml:"ttl"`
}

type StorageConfig struct {
	// Driver is "s3" or "local".
	Driver string      `yaml:"driver"`
	S3     S3Config    `yaml:"s3"`
	Local  LocalConfig `yaml:"local"`
}

type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type LocalConfig struct {
	Dir string `yaml:"dir"`
}

type BackendConfig struct {
	BaseURL               string        `yaml:"base_url"`
	Token                 string        `yaml:"token"`
	StudentImportEndpoint string        `yaml:"student_import_endpoint"`
	ScoreImportEndpoint   string        `yaml:"score_import_endpoint"`
	TemplateEndpoint      string        `yaml:"template_endpoint"`
	Timeout               time.Duration `yaml:"timeout"`
}

type TemplateConfig struct {
	PreferServer bool `yaml:"prefer_server"`
}

type ReportConfig struct {
	ToastLimit    int           `yaml:"toast_limit"`
	PanelLimit    int           `yaml:"panel_limit"`
	ToastDuration time.Duration `yaml:"toast_duration"`
}

type WorkersConfig struct {
	Submit SubmitWorkerConfig `yaml:"submit"`
}

type SubmitWorkerConfig struct {
	Count int `yaml:"count"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Load() (*Config, error) {
	// .env is optional; values already set in the environment win.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes YAML config, applies defaults and environment overrides.
func Parse(data []byte) (*Config, error) {
	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.applyEnv()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func Default() *Config {
	return &Config{
		App: AppConfig{
			Name:    "juku-import",
			Version: "dev",
			Env:     "development",
		},
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxUploadBytes:  10 << 20,
		},
		Database: DatabaseConfig{
			Port:               3306,
			Charset:            "utf8mb4",
			ParseTime:          true,
			Loc:                "Local",
			MaxConnections:     10,
			MaxIdleConnections: 5,
			ConnectionLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			Host:        "localhost",
			Port:        6379,
			PoolSize:    10,
			SubmitQueue: "import:submit",
			DLQSuffix:   ":dlq",
		},
		Session: SessionConfig{
			KeyPrefix: "import:session:",
			TTL:       30 * time.Minute,
		},
		Storage: StorageConfig{
			Driver: "local",
			Local:  LocalConfig{Dir: "data/uploads"},
		},
		Backend: BackendConfig{
			StudentImportEndpoint: "/api/students/import",
			ScoreImportEndpoint:   "/api/scores/import",
			TemplateEndpoint:      "/api/import-templates",
			Timeout:               2 * time.Minute,
		},
		Report: ReportConfig{
			ToastLimit:    3,
			PanelLimit:    50,
			ToastDuration: 5 * time.Second,
		},
		Workers: WorkersConfig{
			Submit: SubmitWorkerConfig{Count: 2},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv("BACKEND_BASE_URL"); v != "" {
		c.Backend.BaseURL = v
	}
	if v := os.Getenv("BACKEND_TOKEN"); v != "" {
		c.Backend.Token = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("S3_ACCESS_KEY"); v != "" {
		c.Storage.S3.AccessKey = v
	}
	if v := os.Getenv("S3_SECRET_KEY"); v != "" {
		c.Storage.S3.SecretKey = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
}

func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend.base_url is required")
	}
	switch c.Storage.Driver {
	case "local":
		if c.Storage.Local.Dir == "" {
			return fmt.Errorf("storage.local.dir is required")
		}
	case "s3":
		if c.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required")
		}
	default:
		return fmt.Errorf("unknown storage driver: %q", c.Storage.Driver)
	}
	if c.Report.ToastLimit < 1 || c.Report.PanelLimit < c.Report.ToastLimit {
		return fmt.Errorf("report limits must satisfy 1 <= toast_limit <= panel_limit")
	}
	return nil
}

// MySQL DSN format: [username[:password]@][protocol[(address)]]/dbname[?param1=value1&...&paramN=valueN]
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=%s",
		c.Database.User, c.Database.Password, c.Database.Host, c.Database.Port,
		c.Database.Name, c.Database.Charset, c.Database.ParseTime, c.Database.Loc)
}

func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}
