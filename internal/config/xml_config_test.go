package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "DATABASE_URL", "AWS_S3_BUCKET_NAME", "AWS_SQS_QUEUE_URL",
		"AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY", "AWS_DEFAULT_REGION",
		"OBJECT_STORE_BACKEND", "OBJECT_STORE_ENDPOINT", "QUEUE_BACKEND", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfig_CreatesDefault(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "conf", "taxi-api.config.xml")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<TaxiTripAPI>")
	assert.Contains(t, string(data), "auto-generated")

	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, "ap-south-1", cfg.AWS.Region)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "data", "objects"), cfg.ObjectStore.Directory)
	assert.Equal(t, "duckdb://"+filepath.Join(filepath.Dir(path), "data", "taxi.duckdb"), cfg.Database.URL)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_ReadsFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "taxi-api.config.xml")
	xmlData := `<?xml version="1.0" encoding="UTF-8"?>
<TaxiTripAPI>
  <Server><Port>8080</Port><BindAddress>127.0.0.1</BindAddress></Server>
  <Database><URL>postgres://taxi:secret@db:5432/taxi?sslmode=disable</URL></Database>
  <ObjectStore><Backend>s3</Backend><Bucket>raw-trips</Bucket><TimeoutSeconds>30</TimeoutSeconds></ObjectStore>
  <Queue>
    <Backend>sqs</Backend>
    <URL>https://sqs.ap-south-1.amazonaws.com/123456789012/etl.fifo</URL>
    <GroupID>etl-job</GroupID>
    <TimeoutSeconds>5</TimeoutSeconds>
  </Queue>
  <Intake><VerifyTriggerKeys>true</VerifyTriggerKeys></Intake>
  <Advanced><LogLevel>debug</LogLevel></Advanced>
</TaxiTripAPI>`
	require.NoError(t, os.WriteFile(path, []byte(xmlData), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "127.0.0.1:8080", cfg.GetServerAddr())
	assert.Equal(t, "postgres://taxi:secret@db:5432/taxi?sslmode=disable", cfg.Database.URL)

	in := cfg.IntakeSettings()
	assert.Equal(t, "raw-trips", in.Bucket)
	assert.Equal(t, "https://sqs.ap-south-1.amazonaws.com/123456789012/etl.fifo", in.QueueTarget)
	assert.True(t, in.VerifyTriggerKeys)
	assert.Equal(t, 30*time.Second, in.StoreTimeout)
	assert.Equal(t, 5*time.Second, in.QueueTimeout)

	q := cfg.QueueSettings()
	assert.Equal(t, "sqs", q.Backend)
	assert.Equal(t, q.URL, q.Target)
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_URL", "sqlite:///var/lib/taxi.db")
	t.Setenv("AWS_S3_BUCKET_NAME", "env-bucket")
	t.Setenv("QUEUE_BACKEND", "SQS")
	t.Setenv("AWS_SQS_QUEUE_URL", "https://sqs.eu-west-1.amazonaws.com/1/jobs.fifo")
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIAEXAMPLE")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "shh")
	t.Setenv("AWS_DEFAULT_REGION", "eu-west-1")
	t.Setenv("OBJECT_STORE_BACKEND", "s3")
	t.Setenv("OBJECT_STORE_ENDPOINT", "localhost:9000")
	t.Setenv("LOG_LEVEL", "WARN")

	path := filepath.Join(t.TempDir(), "taxi-api.config.xml")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "sqlite:///var/lib/taxi.db", cfg.Database.URL)
	assert.Equal(t, "warn", cfg.Advanced.LogLevel)

	store := cfg.ObjectStoreSettings()
	assert.Equal(t, "s3", store.Backend)
	assert.Equal(t, "env-bucket", store.Bucket)
	assert.Equal(t, "localhost:9000", store.Endpoint)
	assert.Equal(t, "eu-west-1", store.Region)
	assert.Equal(t, "AKIAEXAMPLE", store.AccessKeyID)

	q := cfg.QueueSettings()
	assert.Equal(t, "https://sqs.eu-west-1.amazonaws.com/1/jobs.fifo", q.Target)
	assert.Equal(t, "shh", q.SecretAccessKey)

	// credentials never reach the file, even when saved after loading
	require.NoError(t, cfg.Save(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "AKIAEXAMPLE")
	assert.NotContains(t, string(data), "shh")
}

func TestLoadConfig_InvalidXML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "bad.xml")
	require.NoError(t, os.WriteFile(path, []byte("<TaxiTripAPI><Server>"), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *AppConfig)
		wantErr string
	}{
		{"defaults", func(c *AppConfig) {}, ""},
		{"bad port", func(c *AppConfig) { c.Server.Port = 0 }, "Server.Port"},
		{"no database", func(c *AppConfig) { c.Database.URL = "" }, "DATABASE_URL"},
		{"unknown store", func(c *AppConfig) { c.ObjectStore.Backend = "gcs" }, "ObjectStore.Backend"},
		{"no bucket", func(c *AppConfig) { c.ObjectStore.Bucket = "" }, "AWS_S3_BUCKET_NAME"},
		{"unknown queue", func(c *AppConfig) { c.Queue.Backend = "kafka" }, "Queue.Backend"},
		{"sqs without url", func(c *AppConfig) { c.Queue.Backend = "sqs"; c.Queue.URL = "" }, "AWS_SQS_QUEUE_URL"},
		{"amqp without queue", func(c *AppConfig) { c.Queue.Backend = "amqp"; c.Queue.Target = "" }, "amqp"},
		{"bad log level", func(c *AppConfig) { c.Advanced.LogLevel = "verbose" }, "LogLevel"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("TAXI_TEST_FROM_DOTENV=loaded\n"), 0644))
	t.Setenv("TAXI_TEST_FROM_DOTENV", "")
	os.Unsetenv("TAXI_TEST_FROM_DOTENV")

	require.NoError(t, LoadDotEnv(envFile))
	assert.Equal(t, "loaded", os.Getenv("TAXI_TEST_FROM_DOTENV"))

	assert.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env")))
}

func TestPath(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	assert.Equal(t, DefaultPath, Path())

	t.Setenv("CONFIG_PATH", "/etc/taxi/config.xml")
	assert.True(t, strings.HasSuffix(Path(), "config.xml"))
}
