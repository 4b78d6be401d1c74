package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Auth         AuthConfig
	Redis        RedisConfig
	Logging      LoggingConfig
	Alert        AlertConfig
	Camera       CameraConfig
	Detection    DetectionConfig
	Notification NotificationConfig
	Biometric    BiometricConfig
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	FrontendURL     string
	Environment     string
	RateLimit       float64
	RateBurst       int
}

// DatabaseConfig contains alert store configuration. Driver "memory" keeps
// alerts in process.
type DatabaseConfig struct {
	Driver          string
	Host            string
	Port            int
	Name            string
	User            string
	Password        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	// For SQLite
	Path string
}

// AuthConfig contains API authentication configuration
type AuthConfig struct {
	Enabled   bool
	JWTSecret string
}

// RedisConfig contains Redis configuration for the shared cooldown window
type RedisConfig struct {
	Enabled   bool
	Host      string
	Port      int
	Password  string
	DB        int
	KeyPrefix string
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level      string
	Format     string // json or console
	OutputPath string
}

// AlertConfig controls suppression, statistics and retention
type AlertConfig struct {
	Cooldown          time.Duration
	StatsWindowDays   int
	RetentionDays     int
	RetentionSchedule string
	DefaultLimit      int
}

// CameraConfig controls the per-camera monitoring loop
type CameraConfig struct {
	FPS                  float64
	MotionSensitivity    float64
	NightVisionThreshold float64
	RetryDelay           time.Duration
	SourceRoot           string
	FrameStore           string // local, s3 or gcs
	StoragePath          string
	S3Bucket             string
	S3Region             string
	S3Endpoint           string
	S3AccessKeyID        string
	S3SecretAccessKey    string
	GCSBucket            string
	GCSCredentialsFile   string
}

// DetectionConfig selects the DetectionEngine implementation
type DetectionConfig struct {
	Engine      string // none, noop, http, openai or gemini
	EndpointURL string
	APIKey      string
	Timeout     time.Duration
	OpenAIKey   string
	OpenAIModel string
	GeminiKey   string
	GeminiModel string
	Threshold   float64
}

// NotificationConfig contains per-channel settings
type NotificationConfig struct {
	Timeout time.Duration

	EmailEnabled    bool
	SMTPHost        string
	SMTPPort        int
	SMTPUsername    string
	SMTPPassword    string
	SenderEmail     string
	SenderName      string
	EmailRecipients []string

	SMSEnabled    bool
	SMSAPIURL     string
	SMSAPIKey     string
	SMSSender     string
	SMSRecipients []string

	WebhookURL    string
	WebhookSecret string

	PushEnabled    bool
	PushGatewayURL string
	PushAPIKey     string
	PushTokens     []string
}

// BiometricConfig contains matching thresholds
type BiometricConfig struct {
	FaceTolerance       float64
	FusionThreshold     float64
	IrisEnabled         bool
	LivenessMinVariance float64
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore errors as it's optional)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			FrontendURL:     getEnv("FRONTEND_URL", "http://localhost:5173"),
			Environment:     getEnv("ENVIRONMENT", "development"),
			RateLimit:       getEnvAsFloat("SERVER_RATE_LIMIT", 100),
			RateBurst:       getEnvAsInt("SERVER_RATE_BURST", 200),
		},
		Database: DatabaseConfig{
			Driver:          getEnv("DB_DRIVER", "memory"),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			Name:            getEnv("DB_NAME", "watchpost"),
			User:            getEnv("DB_USER", ""),
			Password:        getEnv("DB_PASSWORD", ""),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			Path:            getEnv("DB_PATH", "./watchpost.db"),
		},
		Auth: AuthConfig{
			Enabled:   getEnvAsBool("AUTH_ENABLED", false),
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Redis: RedisConfig{
			Enabled:   getEnvAsBool("REDIS_ENABLED", false),
			Host:      getEnv("REDIS_HOST", "localhost"),
			Port:      getEnvAsInt("REDIS_PORT", 6379),
			Password:  getEnv("REDIS_PASSWORD", ""),
			DB:        getEnvAsInt("REDIS_DB", 0),
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", "watchpost:cooldown:"),
		},
		Logging: LoggingConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			Format:     getEnv("LOG_FORMAT", "json"),
			OutputPath: getEnv("LOG_OUTPUT", "stdout"),
		},
		Alert: AlertConfig{
			Cooldown:          time.Duration(getEnvAsInt("ALERT_COOLDOWN", 60)) * time.Second,
			StatsWindowDays:   getEnvAsInt("ALERT_STATS_WINDOW_DAYS", 30),
			RetentionDays:     getEnvAsInt("ALERT_RETENTION_DAYS", 30),
			RetentionSchedule: getEnv("ALERT_RETENTION_SCHEDULE", "@every 1h"),
			DefaultLimit:      getEnvAsInt("ALERT_DEFAULT_LIMIT", 50),
		},
		Camera: CameraConfig{
			FPS:                  getEnvAsFloat("CAMERA_FPS", 30),
			MotionSensitivity:    getEnvAsFloat("MOTION_DETECTION_SENSITIVITY", 0.5),
			NightVisionThreshold: getEnvAsFloat("NIGHT_VISION_THRESHOLD", 0.3),
			RetryDelay:           getEnvAsDuration("CAMERA_RETRY_DELAY", time.Second),
			SourceRoot:           getEnv("CAMERA_SOURCE_ROOT", "./cameras"),
			FrameStore:           getEnv("FRAME_STORE", "local"),
			StoragePath:          getEnv("STORAGE_PATH", "storage"),
			S3Bucket:             getEnv("FRAME_S3_BUCKET", ""),
			S3Region:             getEnv("FRAME_S3_REGION", "us-east-1"),
			S3Endpoint:           getEnv("FRAME_S3_ENDPOINT", ""),
			S3AccessKeyID:        getEnv("AWS_ACCESS_KEY_ID", ""),
			S3SecretAccessKey:    getEnv("AWS_SECRET_ACCESS_KEY", ""),
			GCSBucket:            getEnv("FRAME_GCS_BUCKET", ""),
			GCSCredentialsFile:   getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		},
		Detection: DetectionConfig{
			Engine:      getEnv("DETECTION_ENGINE", "none"),
			EndpointURL: getEnv("DETECTION_ENDPOINT_URL", ""),
			APIKey:      getEnv("DETECTION_API_KEY", ""),
			Timeout:     getEnvAsDuration("DETECTION_TIMEOUT", 5*time.Second),
			OpenAIKey:   getEnv("OPENAI_API_KEY", ""),
			OpenAIModel: getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			GeminiKey:   getEnv("GEMINI_API_KEY", ""),
			GeminiModel: getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
			Threshold:   getEnvAsFloat("EMERGENCY_DETECTION_THRESHOLD", 0.7),
		},
		Notification: NotificationConfig{
			Timeout: getEnvAsDuration("NOTIFY_TIMEOUT", 30*time.Second),

			EmailEnabled:    getEnvAsBool("EMAIL_ENABLED", false),
			SMTPHost:        getEnv("SMTP_SERVER", "localhost"),
			SMTPPort:        getEnvAsInt("SMTP_PORT", 587),
			SMTPUsername:    getEnv("SMTP_USERNAME", ""),
			SMTPPassword:    getEnv("SMTP_PASSWORD", ""),
			SenderEmail:     getEnv("SENDER_EMAIL", "surveillance@example.com"),
			SenderName:      getEnv("SENDER_NAME", "Watchpost"),
			EmailRecipients: getEnvAsList("ALERT_EMAIL_RECIPIENTS"),

			SMSEnabled:    getEnvAsBool("SMS_ENABLED", false),
			SMSAPIURL:     getEnv("SMS_API_URL", ""),
			SMSAPIKey:     getEnv("SMS_API_KEY", ""),
			SMSSender:     getEnv("SMS_SENDER_NUMBER", ""),
			SMSRecipients: getEnvAsList("ALERT_SMS_RECIPIENTS"),

			WebhookURL:    getEnv("WEBHOOK_URL", ""),
			WebhookSecret: getEnv("WEBHOOK_SECRET", ""),

			PushEnabled:    getEnvAsBool("PUSH_ENABLED", true),
			PushGatewayURL: getEnv("PUSH_GATEWAY_URL", ""),
			PushAPIKey:     getEnv("PUSH_API_KEY", ""),
			PushTokens:     getEnvAsList("PUSH_DEVICE_TOKENS"),
		},
		Biometric: BiometricConfig{
			FaceTolerance:       getEnvAsFloat("FACE_RECOGNITION_TOLERANCE", 0.6),
			FusionThreshold:     getEnvAsFloat("FUSION_CONFIDENCE_THRESHOLD", 0.7),
			IrisEnabled:         getEnvAsBool("IRIS_RECOGNITION_ENABLED", true),
			LivenessMinVariance: getEnvAsFloat("LIVENESS_MIN_VARIANCE", 100),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Auth.Enabled && c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must be set when AUTH_ENABLED is true")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch c.Database.Driver {
	case "memory", "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	if c.Alert.Cooldown < 0 {
		return fmt.Errorf("ALERT_COOLDOWN must not be negative")
	}
	if c.Alert.StatsWindowDays < 1 {
		return fmt.Errorf("ALERT_STATS_WINDOW_DAYS must be at least 1")
	}

	if c.Camera.FPS <= 0 {
		return fmt.Errorf("CAMERA_FPS must be positive, got %v", c.Camera.FPS)
	}
	if !inUnitRange(c.Camera.MotionSensitivity) {
		return fmt.Errorf("MOTION_DETECTION_SENSITIVITY must be within [0,1], got %v", c.Camera.MotionSensitivity)
	}
	if !inUnitRange(c.Camera.NightVisionThreshold) {
		return fmt.Errorf("NIGHT_VISION_THRESHOLD must be within [0,1], got %v", c.Camera.NightVisionThreshold)
	}
	switch c.Camera.FrameStore {
	case "local":
	case "s3":
		if c.Camera.S3Bucket == "" {
			return fmt.Errorf("FRAME_S3_BUCKET is required for the s3 frame store")
		}
	case "gcs":
		if c.Camera.GCSBucket == "" {
			return fmt.Errorf("FRAME_GCS_BUCKET is required for the gcs frame store")
		}
	default:
		return fmt.Errorf("unsupported frame store: %s", c.Camera.FrameStore)
	}

	switch c.Detection.Engine {
	case "none", "noop":
	case "http":
		if c.Detection.EndpointURL == "" {
			return fmt.Errorf("DETECTION_ENDPOINT_URL is required for the http detection engine")
		}
	case "openai":
		if c.Detection.OpenAIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for the openai detection engine")
		}
	case "gemini":
		if c.Detection.GeminiKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required for the gemini detection engine")
		}
	default:
		return fmt.Errorf("unsupported detection engine: %s", c.Detection.Engine)
	}

	if !inUnitRange(c.Biometric.FusionThreshold) {
		return fmt.Errorf("FUSION_CONFIDENCE_THRESHOLD must be within [0,1], got %v", c.Biometric.FusionThreshold)
	}
	if c.Biometric.FaceTolerance <= 0 {
		return fmt.Errorf("FACE_RECOGNITION_TOLERANCE must be positive")
	}

	if c.Notification.Timeout <= 0 {
		return fmt.Errorf("NOTIFY_TIMEOUT must be positive")
	}

	return nil
}

func inUnitRange(v float64) bool {
	return v >= 0 && v <= 1
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsList splits a comma separated variable, dropping blanks
func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
