package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t, "PORT", "QBANK_SERVER_PORT", "QBANK_STORAGE_TYPE", "QBANK_IMPORT_UPLOAD_BATCH_SIZE", "QBANK_MONGO_DATABASE")
	t.Setenv("QBANK_MONGO_URI", "mongodb://localhost:27017/?replicaSet=rs0")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "qbank", cfg.Mongo.Database)
	assert.Equal(t, 10*time.Second, cfg.Mongo.Timeout)
	assert.Equal(t, "s3", cfg.Storage.Type)
	assert.Equal(t, int64(5<<20), cfg.Storage.MaxImageBytes)
	assert.Equal(t, 5, cfg.Import.UploadBatchSize)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	clearEnv(t, "QBANK_MONGO_URI")
	t.Setenv("MONGODB_URL", "mongodb://db:27017")
	t.Setenv("QBANK_STORAGE_TYPE", "minio")
	t.Setenv("QBANK_IMPORT_UPLOAD_BATCH_SIZE", "3")
	t.Setenv("QBANK_SERVER_ALLOWED_ORIGINS", "http://a.test,http://b.test")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "mongodb://db:27017", cfg.Mongo.URI)
	assert.Equal(t, "minio", cfg.Storage.Type)
	assert.Equal(t, 3, cfg.Import.UploadBatchSize)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.AllowedOrigins)
}

func TestLoadConfigStorageEnv(t *testing.T) {
	clearEnv(t, "BUCKET_NAME", "AWS_REGION", "AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY", "AWS_ENDPOINT_URL")
	t.Setenv("QBANK_MONGO_URI", "mongodb://db:27017")
	t.Setenv("QBANK_STORAGE_TYPE", "minio")
	t.Setenv("QBANK_STORAGE_BUCKET", "questions")
	t.Setenv("QBANK_STORAGE_REGION", "auto")
	t.Setenv("QBANK_STORAGE_ENDPOINT", "minio:9000")
	t.Setenv("QBANK_STORAGE_ACCESS_KEY", "key")
	t.Setenv("QBANK_STORAGE_SECRET_KEY", "secret")
	t.Setenv("QBANK_STORAGE_USE_SSL", "true")
	t.Setenv("QBANK_STORAGE_PUBLIC_BASE_URL", "https://cdn.test")
	t.Setenv("QBANK_STORAGE_FOLDER", "bank")
	t.Setenv("QBANK_LOG_FILE", "/tmp/qbank.log")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, StorageConfig{
		Type:          "minio",
		Bucket:        "questions",
		Region:        "auto",
		Endpoint:      "minio:9000",
		AccessKey:     "key",
		SecretKey:     "secret",
		UseSSL:        true,
		PublicBaseURL: "https://cdn.test",
		Folder:        "bank",
		MaxImageBytes: 5 << 20,
	}, cfg.Storage)
	assert.Equal(t, "/tmp/qbank.log", cfg.Log.File)
}

func TestLoadConfigStorageUnset(t *testing.T) {
	clearEnv(t, "QBANK_STORAGE_ENDPOINT", "AWS_ENDPOINT_URL", "QBANK_STORAGE_USE_SSL", "QBANK_STORAGE_PUBLIC_BASE_URL")
	t.Setenv("QBANK_MONGO_URI", "mongodb://db:27017")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Empty(t, cfg.Storage.Endpoint)
	assert.False(t, cfg.Storage.UseSSL)
	assert.Empty(t, cfg.Storage.PublicBaseURL)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"ok", Config{Mongo: MongoConfig{URI: "mongodb://x"}, Storage: StorageConfig{Type: "s3"}, Import: ImportConfig{UploadBatchSize: 5}}, false},
		{"missing uri", Config{Storage: StorageConfig{Type: "s3"}, Import: ImportConfig{UploadBatchSize: 5}}, true},
		{"zero batch", Config{Mongo: MongoConfig{URI: "mongodb://x"}, Storage: StorageConfig{Type: "s3"}}, true},
		{"unknown storage", Config{Mongo: MongoConfig{URI: "mongodb://x"}, Storage: StorageConfig{Type: "ftp"}, Import: ImportConfig{UploadBatchSize: 5}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
