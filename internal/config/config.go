package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Mongo   MongoConfig   `mapstructure:"mongo"`
	Storage StorageConfig `mapstructure:"storage"`
	Import  ImportConfig  `mapstructure:"import"`
	Log     LogConfig     `mapstructure:"log"`
}

type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type MongoConfig struct {
	URI      string        `mapstructure:"uri"`
	Database string        `mapstructure:"database"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type StorageConfig struct {
	Type          string `mapstructure:"type"`
	Bucket        string `mapstructure:"bucket"`
	Region        string `mapstructure:"region"`
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	UseSSL        bool   `mapstructure:"use_ssl"`
	PublicBaseURL string `mapstructure:"public_base_url"`
	Folder        string `mapstructure:"folder"`
	MaxImageBytes int64  `mapstructure:"max_image_bytes"`
}

type ImportConfig struct {
	UploadBatchSize int `mapstructure:"upload_batch_size"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// LoadConfig reads .env (when present) and the environment. Keys map to
// QBANK_<SECTION>_<KEY>, with the common unprefixed names bound as well.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("QBANK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:4200"})
	v.SetDefault("mongo.uri", "")
	v.SetDefault("mongo.database", "qbank")
	v.SetDefault("mongo.timeout", 10*time.Second)
	v.SetDefault("storage.type", "s3")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.region", "")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.access_key", "")
	v.SetDefault("storage.secret_key", "")
	v.SetDefault("storage.use_ssl", false)
	v.SetDefault("storage.public_base_url", "")
	v.SetDefault("storage.folder", "questionbank")
	v.SetDefault("storage.max_image_bytes", 5<<20)
	v.SetDefault("import.upload_batch_size", 5)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")

	v.BindEnv("server.port", "QBANK_SERVER_PORT", "PORT")
	v.BindEnv("mongo.uri", "QBANK_MONGO_URI", "MONGODB_URL")
	v.BindEnv("storage.bucket", "QBANK_STORAGE_BUCKET", "BUCKET_NAME")
	v.BindEnv("storage.region", "QBANK_STORAGE_REGION", "AWS_REGION")
	v.BindEnv("storage.access_key", "QBANK_STORAGE_ACCESS_KEY", "AWS_ACCESS_KEY_ID")
	v.BindEnv("storage.secret_key", "QBANK_STORAGE_SECRET_KEY", "AWS_SECRET_ACCESS_KEY")
	v.BindEnv("storage.endpoint", "QBANK_STORAGE_ENDPOINT", "AWS_ENDPOINT_URL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	// Comma separated origins arrive as a single element from the environment.
	if len(cfg.Server.AllowedOrigins) == 1 && strings.Contains(cfg.Server.AllowedOrigins[0], ",") {
		cfg.Server.AllowedOrigins = strings.Split(cfg.Server.AllowedOrigins[0], ",")
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Mongo.URI == "" {
		return errors.New("mongo uri is required (QBANK_MONGO_URI)")
	}
	if c.Import.UploadBatchSize <= 0 {
		return errors.New("import.upload_batch_size must be positive")
	}
	switch c.Storage.Type {
	case "s3", "minio":
	default:
		return errors.New("storage.type must be s3 or minio")
	}
	return nil
}
