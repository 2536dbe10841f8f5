package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Storage failure policies for the analysis pipeline. With PolicyFatal a
// failed artifact write fails the whole request; with PolicyIgnore the
// response still carries the report inline and dosya_url is null.
const (
	StoragePolicyFatal  = "fatal"
	StoragePolicyIgnore = "ignore"
)

type Config struct {
	ServerPort     int
	LogLevel       string
	OpenAIKey      string
	OpenAIModel    string
	MaxUploadMB    int64
	ManagedHosting bool
	WorkerPoolSize int
	Database       DatabaseConfig
	UserStore      UserStoreConfig
	Storage        StorageConfig
	Events         EventsConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	UseSSL   bool
}

// UserStoreConfig selects the credential store backend: "postgres" for the
// users/tokens tables, "jsonfile" for the single-writer users.json map.
type UserStoreConfig struct {
	Backend string
	Path    string
}

type StorageConfig struct {
	// Backend is one of "local", "gcs", "minio".
	Backend string
	// FailurePolicy is "fatal" or "ignore".
	FailurePolicy string
	LocalDir      string
	GCS           GCSConfig
	Minio         MinioConfig
}

type GCSConfig struct {
	Bucket          string
	CredentialsFile string
	ProjectID       string
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// EventsConfig selects the optional report.created publisher backend:
// "none", "pubsub" or "rabbitmq".
type EventsConfig struct {
	Backend  string
	Topic    string
	PubSub   PubSubConfig
	RabbitMQ RabbitMQConfig
}

type PubSubConfig struct {
	ProjectID       string
	CredentialsFile string
}

type RabbitMQConfig struct {
	URL          string
	QueueDurable bool
}

func LoadConfig() Config {
	if os.Getenv("ENV") == "dev" {
		godotenv.Load()
	}

	dbConfig := DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnvInt("DB_PORT", 5432),
		User:     getEnv("DB_USER", "icerik"),
		Password: getEnv("DB_PASSWORD", "password"),
		DBName:   getEnv("DB_NAME", "icerik_db"),
		UseSSL:   getEnvBool("DB_USE_SSL", false),
	}

	return Config{
		ServerPort:     getEnvInt("SERVER_PORT", 8080),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		OpenAIKey:      getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:    getEnv("OPENAI_MODEL", "gpt-4o"),
		MaxUploadMB:    int64(getEnvInt("MAX_UPLOAD_MB", 50)),
		ManagedHosting: getEnvBool("MANAGED_HOSTING", false),
		WorkerPoolSize: getEnvInt("WORKER_POOL_SIZE", 8),
		Database:       dbConfig,
		UserStore: UserStoreConfig{
			Backend: getEnv("USER_STORE", "postgres"),
			Path:    getEnv("USER_DB_PATH", "users.json"),
		},
		Storage: StorageConfig{
			Backend:       getEnv("STORAGE_BACKEND", "local"),
			FailurePolicy: getEnv("STORE_FAILURE_POLICY", StoragePolicyIgnore),
			LocalDir:      getEnv("REPORTS_DIR", "reports"),
			GCS: GCSConfig{
				Bucket:          getEnv("GCS_BUCKET", ""),
				CredentialsFile: getEnv("GCS_CREDENTIALS_FILE", ""),
				ProjectID:       getEnv("GCS_PROJECT_ID", ""),
			},
			Minio: MinioConfig{
				Endpoint:  getEnv("MINIO_ENDPOINT", ""),
				AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
				SecretKey: getEnv("MINIO_SECRET_KEY", ""),
				Bucket:    getEnv("MINIO_BUCKET", ""),
				UseSSL:    getEnvBool("MINIO_USE_SSL", false),
			},
		},
		Events: EventsConfig{
			Backend: getEnv("EVENTS_BACKEND", "none"),
			Topic:   getEnv("EVENTS_TOPIC", "report-created"),
			PubSub: PubSubConfig{
				ProjectID:       getEnv("PUBSUB_PROJECT_ID", ""),
				CredentialsFile: getEnv("PUBSUB_CREDENTIALS_FILE", ""),
			},
			RabbitMQ: RabbitMQConfig{
				URL:          getEnv("RABBITMQ_URL", ""),
				QueueDurable: getEnvBool("RABBITMQ_QUEUE_DURABLE", true),
			},
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(key); exists {
		var value int
		fmt.Sscanf(valueStr, "%d", &value)
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if valueStr, exists := os.LookupEnv(key); exists {
		switch strings.ToLower(strings.TrimSpace(valueStr)) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}
	return defaultValue
}
