// Package config provides XML-based configuration with environment overrides.
package config

import (
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/taxi-insights/backend/internal/database"
	"github.com/taxi-insights/backend/internal/intake"
	"github.com/taxi-insights/backend/internal/objectstore"
	"github.com/taxi-insights/backend/internal/queue"
)

// DefaultPath is used when CONFIG_PATH is not set.
const DefaultPath = "taxi-api.config.xml"

// AppConfig represents the root XML configuration structure
type AppConfig struct {
	XMLName xml.Name `xml:"TaxiTripAPI"`

	Server      ServerConfig      `xml:"Server"`
	Database    DatabaseConfig    `xml:"Database"`
	ObjectStore ObjectStoreConfig `xml:"ObjectStore"`
	Queue       QueueConfig       `xml:"Queue"`
	AWS         AWSConfig         `xml:"AWS"`
	Intake      IntakeConfig      `xml:"Intake"`
	Advanced    AdvancedConfig    `xml:"Advanced"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port            int    `xml:"Port"`
	BindAddress     string `xml:"BindAddress"`
	EnableCORS      bool   `xml:"EnableCORS"`
	AllowOrigins    string `xml:"AllowOrigins"`
	ReadTimeout     int    `xml:"ReadTimeoutSeconds"`
	WriteTimeout    int    `xml:"WriteTimeoutSeconds"`
	IdleTimeout     int    `xml:"IdleTimeoutSeconds"`
	RequestTimeout  int    `xml:"RequestTimeoutSeconds"`
	ShutdownTimeout int    `xml:"ShutdownTimeoutSeconds"`
	BodyLimit       string `xml:"BodyLimit"`
}

// DatabaseConfig selects the SQL engine through the URL scheme
type DatabaseConfig struct {
	URL             string `xml:"URL"`
	MaxOpenConns    int    `xml:"MaxOpenConns"`
	MaxIdleConns    int    `xml:"MaxIdleConns"`
	ConnMaxLifetime int    `xml:"ConnMaxLifetimeSeconds"`
	CreateSchema    bool   `xml:"CreateSchema"`
	CreateIndexes   bool   `xml:"CreateIndexes"`
}

// ObjectStoreConfig contains upload storage settings
type ObjectStoreConfig struct {
	Backend      string `xml:"Backend"`
	Bucket       string `xml:"Bucket"`
	Endpoint     string `xml:"Endpoint"`
	UseSSL       bool   `xml:"UseSSL"`
	CreateBucket bool   `xml:"CreateBucket"`
	NATSURL      string `xml:"NATSURL"`
	Directory    string `xml:"Directory"`
	Timeout      int    `xml:"TimeoutSeconds"`
}

// QueueConfig contains job queue settings
type QueueConfig struct {
	Backend string `xml:"Backend"`
	// URL is the SQS queue URL, NATS server URL or AMQP broker URL.
	URL string `xml:"URL"`
	// Target is the NATS subject or AMQP queue name. SQS uses URL.
	Target          string `xml:"Target"`
	Stream          string `xml:"Stream"`
	GroupID         string `xml:"GroupID"`
	DuplicateWindow int    `xml:"DuplicateWindowSeconds"`
	Endpoint        string `xml:"Endpoint"`
	Timeout         int    `xml:"TimeoutSeconds"`
}

// AWSConfig holds region and credentials. Credentials only ever come from
// the environment and are never written to disk.
type AWSConfig struct {
	Region          string `xml:"Region"`
	AccessKeyID     string `xml:"-"`
	SecretAccessKey string `xml:"-"`
}

// IntakeConfig contains upload and trigger settings
type IntakeConfig struct {
	VerifyTriggerKeys bool `xml:"VerifyTriggerKeys"`
}

// AdvancedConfig contains advanced/tuning options
type AdvancedConfig struct {
	LogLevel             string `xml:"LogLevel"`
	EnableRequestLogging bool   `xml:"EnableRequestLogging"`
	DuckDBThreads        int    `xml:"DuckDBThreads"`
	DuckDBMemoryLimit    string `xml:"DuckDBMemoryLimit"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:            5000,
			BindAddress:     "0.0.0.0",
			EnableCORS:      true,
			AllowOrigins:    "*",
			ReadTimeout:     30,
			WriteTimeout:    120,
			IdleTimeout:     120,
			RequestTimeout:  60,
			ShutdownTimeout: 15,
			BodyLimit:       "512M",
		},
		Database: DatabaseConfig{
			URL:             "duckdb://./data/taxi.duckdb",
			MaxOpenConns:    20,
			MaxIdleConns:    5,
			ConnMaxLifetime: 300,
			CreateSchema:    true,
			CreateIndexes:   false,
		},
		ObjectStore: ObjectStoreConfig{
			Backend:   objectstore.BackendLocal,
			Bucket:    "taxi-trips-raw",
			UseSSL:    true,
			NATSURL:   "nats://127.0.0.1:4222",
			Directory: "./data/objects",
			Timeout:   60,
		},
		Queue: QueueConfig{
			Backend:         queue.BackendNATS,
			URL:             "nats://127.0.0.1:4222",
			Target:          "etl.jobs",
			Stream:          "ETL_JOBS",
			GroupID:         intake.DefaultGroupID,
			DuplicateWindow: 300,
			Timeout:         10,
		},
		AWS: AWSConfig{
			Region: "ap-south-1",
		},
		Advanced: AdvancedConfig{
			LogLevel:             "info",
			EnableRequestLogging: true,
			DuckDBThreads:        4,
			DuckDBMemoryLimit:    "1GB",
		},
	}
}

// Path returns CONFIG_PATH or DefaultPath.
func Path() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return DefaultPath
}

// LoadDotEnv loads variables from .env files into the process environment.
// Variables that are already set win. A missing file is not an error.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// LoadConfig loads configuration from XML file
func LoadConfig(configPath string) (*AppConfig, error) {
	config := DefaultConfig()

	// If file doesn't exist, create default
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := config.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	} else {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := xml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	config.applyEnvironmentOverrides()
	config.resolvePaths(filepath.Dir(configPath))

	return config, nil
}

// Save saves the configuration to XML file
func (c *AppConfig) Save(configPath string) error {
	output, err := xml.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(xml.Header + "\n<!-- Taxi Trip API Configuration -->\n<!-- This file is auto-generated on first run -->\n\n")
	content := append(header, output...)

	if dir := filepath.Dir(configPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// applyEnvironmentOverrides allows environment variables to override config values
func (c *AppConfig) applyEnvironmentOverrides() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	if url := os.Getenv("DATABASE_URL"); url != "" {
		c.Database.URL = url
	}

	if bucket := os.Getenv("AWS_S3_BUCKET_NAME"); bucket != "" {
		c.ObjectStore.Bucket = bucket
	}
	if backend := os.Getenv("OBJECT_STORE_BACKEND"); backend != "" {
		c.ObjectStore.Backend = strings.ToLower(backend)
	}
	if endpoint := os.Getenv("OBJECT_STORE_ENDPOINT"); endpoint != "" {
		c.ObjectStore.Endpoint = endpoint
	}

	if backend := os.Getenv("QUEUE_BACKEND"); backend != "" {
		c.Queue.Backend = strings.ToLower(backend)
	}
	// the SQS queue URL is also its target
	if url := os.Getenv("AWS_SQS_QUEUE_URL"); url != "" && c.Queue.Backend == queue.BackendSQS {
		c.Queue.URL = url
	}

	c.AWS.AccessKeyID = os.Getenv("AWS_ACCESS_KEY_ID")
	c.AWS.SecretAccessKey = os.Getenv("AWS_SECRET_ACCESS_KEY")
	if region := os.Getenv("AWS_DEFAULT_REGION"); region != "" {
		c.AWS.Region = region
	}
	if c.AWS.Region == "" {
		c.AWS.Region = "ap-south-1"
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Advanced.LogLevel = strings.ToLower(level)
	}
}

// resolvePaths converts relative paths to absolute based on config file location
func (c *AppConfig) resolvePaths(configDir string) {
	if c.ObjectStore.Directory != "" && !filepath.IsAbs(c.ObjectStore.Directory) {
		c.ObjectStore.Directory = filepath.Join(configDir, c.ObjectStore.Directory)
	}

	// file-backed embedded databases live next to the config file too
	for _, scheme := range []string{"duckdb://", "sqlite://", "sqlite3://"} {
		rest, ok := strings.CutPrefix(c.Database.URL, scheme)
		if !ok || rest == "" || rest == ":memory:" || filepath.IsAbs(rest) {
			continue
		}
		c.Database.URL = scheme + filepath.Join(configDir, rest)
	}
}

// Validate reports every setting that would prevent startup.
func (c *AppConfig) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("Server.Port %d out of range", c.Server.Port))
	}
	if c.Database.URL == "" {
		errs = append(errs, errors.New("Database.URL (DATABASE_URL) is required"))
	}

	switch c.ObjectStore.Backend {
	case objectstore.BackendS3, objectstore.BackendNATS:
	case objectstore.BackendLocal:
		if c.ObjectStore.Directory == "" {
			errs = append(errs, errors.New("ObjectStore.Directory is required for the local backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown ObjectStore.Backend %q", c.ObjectStore.Backend))
	}
	if c.ObjectStore.Bucket == "" {
		errs = append(errs, errors.New("ObjectStore.Bucket (AWS_S3_BUCKET_NAME) is required"))
	}

	switch c.Queue.Backend {
	case queue.BackendSQS:
		if c.Queue.URL == "" {
			errs = append(errs, errors.New("Queue.URL (AWS_SQS_QUEUE_URL) is required for the sqs backend"))
		}
	case queue.BackendNATS:
		if c.Queue.URL == "" || c.Queue.Target == "" || c.Queue.Stream == "" {
			errs = append(errs, errors.New("Queue.URL, Queue.Target and Queue.Stream are required for the nats backend"))
		}
	case queue.BackendAMQP:
		if c.Queue.URL == "" || c.Queue.Target == "" {
			errs = append(errs, errors.New("Queue.URL and Queue.Target are required for the amqp backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown Queue.Backend %q", c.Queue.Backend))
	}

	switch c.Advanced.LogLevel {
	case "debug", "info", "warn", "error", "off":
	default:
		errs = append(errs, fmt.Errorf("unknown Advanced.LogLevel %q", c.Advanced.LogLevel))
	}

	return errors.Join(errs...)
}

// GetServerAddr returns the server bind address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// QueueTarget is the destination handed to queue.Sender.Send.
func (c *AppConfig) QueueTarget() string {
	if c.Queue.Backend == queue.BackendSQS {
		return c.Queue.URL
	}
	return c.Queue.Target
}

// DatabaseOptions maps the database section onto pool settings.
func (c *AppConfig) DatabaseOptions() database.Options {
	return database.Options{
		MaxOpenConns:      c.Database.MaxOpenConns,
		MaxIdleConns:      c.Database.MaxIdleConns,
		ConnMaxLifetime:   seconds(c.Database.ConnMaxLifetime),
		DuckDBThreads:     c.Advanced.DuckDBThreads,
		DuckDBMemoryLimit: c.Advanced.DuckDBMemoryLimit,
	}
}

// ObjectStoreSettings builds the object store client configuration.
func (c *AppConfig) ObjectStoreSettings() objectstore.Config {
	return objectstore.Config{
		Backend:         c.ObjectStore.Backend,
		Endpoint:        c.ObjectStore.Endpoint,
		Region:          c.AWS.Region,
		UseSSL:          c.ObjectStore.UseSSL,
		AccessKeyID:     c.AWS.AccessKeyID,
		SecretAccessKey: c.AWS.SecretAccessKey,
		CreateBucket:    c.ObjectStore.CreateBucket,
		Bucket:          c.ObjectStore.Bucket,
		NATSURL:         c.ObjectStore.NATSURL,
		Directory:       c.ObjectStore.Directory,
	}
}

// QueueSettings builds the queue client configuration.
func (c *AppConfig) QueueSettings() queue.Config {
	return queue.Config{
		Backend:         c.Queue.Backend,
		URL:             c.Queue.URL,
		Target:          c.QueueTarget(),
		Region:          c.AWS.Region,
		AccessKeyID:     c.AWS.AccessKeyID,
		SecretAccessKey: c.AWS.SecretAccessKey,
		Endpoint:        c.Queue.Endpoint,
		Stream:          c.Queue.Stream,
		DuplicateWindow: seconds(c.Queue.DuplicateWindow),
	}
}

// IntakeSettings builds the intake service configuration.
func (c *AppConfig) IntakeSettings() intake.Config {
	return intake.Config{
		Bucket:            c.ObjectStore.Bucket,
		QueueTarget:       c.QueueTarget(),
		GroupID:           c.Queue.GroupID,
		VerifyTriggerKeys: c.Intake.VerifyTriggerKeys,
		StoreTimeout:      seconds(c.ObjectStore.Timeout),
		QueueTimeout:      seconds(c.Queue.Timeout),
	}
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// AllowedOrigins splits Server.AllowOrigins on commas. Empty means any.
func (c *AppConfig) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.Server.AllowOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
