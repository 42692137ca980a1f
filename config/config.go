package config

import (
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/smartcareconnect/smartcare-api/models"
)

// Config holds the project config values
type Config struct {
	URL          string
	DatabaseName string
	BaseURL      string
	Port         string
	Env          string

	AllowedOrigins []string
	RequestTimeout time.Duration

	SendGridAPIKey   string
	EmailFromName    string
	EmailFromAddress string

	TwilioAccountSID string
	TwilioAPIKey     string
	TwilioAPISecret  string
	TokenTTL         time.Duration
	TokenRateLimit   int
	TokenRateWindow  time.Duration

	RedisURL string

	BlobBackend            string
	CloudinaryURL          string
	CloudinaryAPISecret    string
	CloudinaryUploadPreset string
	MinioEndpoint          string
	MinioAccessKey         string
	MinioSecretKey         string
	MinioBucket            string
	MinioUseSSL            bool
	MinioPublicURL         string
}

// New sets up all config related services
func New() *Config {
	// a missing .env is fine, the real environment wins anyway
	_ = godotenv.Load()

	env := getEnv("APP_ENV", "production")

	//setup zap logger and replace default logger
	logger, err := setLogger(env)
	if err != nil {
		logger = zap.NewExample()
	}
	defer logger.Sync()
	_ = zap.ReplaceGlobals(logger)

	return &Config{
		URL:          os.Getenv("DB_URI"),
		DatabaseName: os.Getenv("DB_NAME"),
		BaseURL:      os.Getenv("BASE_URL"),
		Port:         getEnv("PORT", "8080"),
		Env:          env,

		AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		RequestTimeout: getDuration("REQUEST_TIMEOUT", 30*time.Second),

		SendGridAPIKey:   os.Getenv("SENDGRID_API_KEY"),
		EmailFromName:    getEnv("EMAIL_FROM_NAME", "SmartCare Connects"),
		EmailFromAddress: getEnv("EMAIL_FROM_ADDRESS", "no-reply@smartcareconnects.com"),

		TwilioAccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAPIKey:     os.Getenv("TWILIO_API_KEY"),
		TwilioAPISecret:  os.Getenv("TWILIO_API_SECRET"),
		TokenTTL:         getDuration("TWILIO_TOKEN_TTL", time.Hour),
		TokenRateLimit:   getInt("TOKEN_RATE_LIMIT", 5),
		TokenRateWindow:  getDuration("TOKEN_RATE_WINDOW", time.Minute),

		RedisURL: os.Getenv("REDIS_URL"),

		BlobBackend:            getEnv("BLOB_BACKEND", "cloudinary"),
		CloudinaryURL:          os.Getenv("CLOUDINARY_URL"),
		CloudinaryAPISecret:    os.Getenv("CLOUDINARY_API_SECRET"),
		CloudinaryUploadPreset: os.Getenv("CLOUDINARY_UPLOAD_PRESET"),
		MinioEndpoint:          os.Getenv("MINIO_ENDPOINT"),
		MinioAccessKey:         os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey:         os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:            getEnv("MINIO_BUCKET", "smartcare-chat"),
		MinioUseSSL:            getBool("MINIO_USE_SSL", true),
		MinioPublicURL:         os.Getenv("MINIO_PUBLIC_URL"),
	}
}

func setLogger(env string) (*zap.Logger, error) {
	switch env {
	case "development", "local":
		return zap.NewDevelopment()
	default:
		return zap.NewProduction()
	}
}

// ErrorStatus is a useful function that will log, write http headers and body for a
// give message, status code and err
func ErrorStatus(message string, httpStatusCode int, w http.ResponseWriter, err error) {
	zap.S().With("error", err).Error(message)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatusCode)
	_ = json.NewEncoder(w).Encode(models.ErrorResponse{Error: message})
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v <= 0 {
		return defaultValue
	}
	return v
}

func getBool(key string, defaultValue bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return v
}

// getDuration accepts Go durations ("90s") or bare seconds ("90").
func getDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
