package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/wb-go/wbf/retry"
)

const configPathEnv = "CONFIG_PATH"

var ErrUnknownDriver = errors.New("unknown storage driver")

type Config struct {
	Env       string          `yaml:"env" env:"ENV" env-default:"local"`
	LogLevel  string          `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	Storage   StorageConfig   `yaml:"storage"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Converter ConverterConfig `yaml:"converter"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	DB        DBConfig        `yaml:"db"`
	Server    ServerConfig    `yaml:"server"`
	Worker    WorkerConfig    `yaml:"worker"`
	Retry     RetryConfig     `yaml:"retry"`
}

type StorageConfig struct {
	Driver    string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"minio"`
	Bucket    string `yaml:"bucket" env:"STORAGE_BUCKET" env-default:"documents"`
	Endpoint  string `yaml:"endpoint" env:"STORAGE_ENDPOINT" env-default:"localhost:9000"`
	AccessKey string `yaml:"access_key" env:"STORAGE_ACCESS_KEY"`
	SecretKey string `yaml:"secret_key" env:"STORAGE_SECRET_KEY"`
	Region    string `yaml:"region" env:"STORAGE_REGION" env-default:"us-east-1"`
	UseSSL    bool   `yaml:"use_ssl" env:"STORAGE_USE_SSL" env-default:"false"`
	// LocalRoot is the directory backing the local driver.
	LocalRoot string `yaml:"local_root" env:"STORAGE_LOCAL_ROOT" env-default:"./data/bucket"`
	// CredentialsFile is a service-account JSON for the gcs driver.
	CredentialsFile string `yaml:"credentials_file" env:"GOOGLE_APPLICATION_CREDENTIALS"`
}

type PipelineConfig struct {
	SourcePrefix      string `yaml:"source_prefix" env:"PIPELINE_SOURCE_PREFIX" env-default:"Arquivos Docx/"`
	DestinationPrefix string `yaml:"destination_prefix" env:"PIPELINE_DESTINATION_PREFIX" env-default:"Arquivos Pdf/"`
	ScratchDir        string `yaml:"scratch_dir" env:"PIPELINE_SCRATCH_DIR" env-default:"/tmp/doc-converter"`
	StageConcurrency  int    `yaml:"stage_concurrency" env:"PIPELINE_STAGE_CONCURRENCY" env-default:"2"`
	UploadConcurrency int    `yaml:"upload_concurrency" env:"PIPELINE_UPLOAD_CONCURRENCY" env-default:"4"`
}

type ConverterConfig struct {
	ToolPath        string        `yaml:"tool_path" env:"CONVERTER_TOOL_PATH" env-default:"libreoffice"`
	ToolTimeout     time.Duration `yaml:"tool_timeout" env:"CONVERTER_TOOL_TIMEOUT" env-default:"120s"`
	ToolParallelism int           `yaml:"tool_parallelism" env:"CONVERTER_TOOL_PARALLELISM" env-default:"1"`
	ImageDPI        int           `yaml:"image_dpi" env:"CONVERTER_IMAGE_DPI" env-default:"100"`
}

type KafkaConfig struct {
	Enabled     bool     `yaml:"enabled" env:"KAFKA_ENABLED" env-default:"false"`
	Brokers     []string `yaml:"brokers" env:"KAFKA_BROKERS" env-separator:"," env-default:"localhost:9092"`
	TasksTopic  string   `yaml:"tasks_topic" env:"KAFKA_TASKS_TOPIC" env-default:"document-conversion"`
	EventsTopic string   `yaml:"events_topic" env:"KAFKA_EVENTS_TOPIC" env-default:"document-converted"`
	GroupID     string   `yaml:"group_id" env:"KAFKA_GROUP_ID" env-default:"document-converter-group"`
}

type DBConfig struct {
	Enabled         bool          `yaml:"enabled" env:"DB_ENABLED" env-default:"false"`
	Host            string        `yaml:"host" env:"DB_HOST" env-default:"localhost"`
	Port            int           `yaml:"port" env:"DB_PORT" env-default:"5432"`
	User            string        `yaml:"user" env:"DB_USER" env-default:"postgres"`
	Password        string        `yaml:"password" env:"DB_PASSWORD" env-default:"postgres"`
	Name            string        `yaml:"name" env:"DB_NAME" env-default:"converter"`
	SSLMode         string        `yaml:"ssl_mode" env:"DB_SSLMODE" env-default:"disable"`
	MaxOpenConns    int           `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS" env-default:"10"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS" env-default:"5"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME" env-default:"30m"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr" env:"SERVER_ADDR" env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT" env-default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT" env-default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env:"SERVER_IDLE_TIMEOUT" env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

type WorkerConfig struct {
	Concurrency int `yaml:"concurrency" env:"WORKER_CONCURRENCY" env-default:"2"`
}

type RetryConfig struct {
	Attempts int           `yaml:"attempts" env:"RETRY_ATTEMPTS" env-default:"3"`
	Delay    time.Duration `yaml:"delay" env:"RETRY_DELAY" env-default:"500ms"`
	Backoff  float64       `yaml:"backoff" env:"RETRY_BACKOFF" env-default:"2"`
}

// MustLoad reads the YAML file named by CONFIG_PATH, or the environment alone
// when it is unset, and validates the result.
func MustLoad() (*Config, error) {
	return Load(os.Getenv(configPathEnv))
}

func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read env config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case "minio", "s3", "gcs", "local":
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDriver, c.Storage.Driver)
	}
	if c.Storage.Bucket == "" {
		return errors.New("storage bucket is required")
	}
	if c.Converter.ToolTimeout <= 0 {
		return errors.New("converter tool timeout must be positive")
	}
	if c.Pipeline.StageConcurrency < 1 {
		c.Pipeline.StageConcurrency = 1
	}
	if c.Pipeline.UploadConcurrency < 1 {
		c.Pipeline.UploadConcurrency = 1
	}
	if c.Converter.ToolParallelism < 1 {
		c.Converter.ToolParallelism = 1
	}
	if c.Worker.Concurrency < 1 {
		c.Worker.Concurrency = 1
	}
	return nil
}

// Scheme is the URL scheme used in SourceFileRef full paths.
func (c *Config) Scheme() string {
	switch c.Storage.Driver {
	case "gcs":
		return "gs"
	case "local":
		return "file"
	default:
		return "s3"
	}
}

func (c *Config) DBDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.Name, c.DB.SSLMode)
}

func (c *Config) DefaultRetryStrategy() retry.Strategy {
	return retry.Strategy{
		Attempts: c.Retry.Attempts,
		Delay:    c.Retry.Delay,
		Backoff:  c.Retry.Backoff,
	}
}
