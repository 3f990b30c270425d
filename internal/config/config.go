package config

import (
	"crypto/rand"
	"encoding/hex"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          int
	Password      string
	SessionSecret string        // HMAC key for session cookies
	SessionTTL    time.Duration // lifetime of a login

	ModelPath       string // checkpoint: network file or JSON parameters
	ModelConfigPath string // optional network description for ReadNet
	BackbonePath    string // feature network for parameter checkpoints
	CascadePath     string // Haar cascade for the face gate

	UseFaceCrop       bool
	EnforceNoFace     bool
	SelectLargestFace bool
	Threshold         float64 // 0 = brak progu Uncertain

	FaceMinSize   int
	FaceScale     float64
	FaceNeighbors int

	UploadDirectory   string
	DatabasePath      string
	DatabaseURL       string // jeśli ustawione, używamy PostgreSQL zamiast SQLite
	ProcessingWorkers int    // Liczba worker threads i kopii sieci
	FetchTimeout      time.Duration
	MaxUploadBytes    int64
	LogDirectory      string

	TelegramToken string
}

// Load reads the environment once at startup. A .env file in the working
// directory is applied first; variables already set take precedence.
func Load() *Config {
	_ = godotenv.Load()
	return fromEnv()
}

// LoadFile is Load with an explicit .env path.
func LoadFile(path string) (*Config, error) {
	if err := godotenv.Load(path); err != nil {
		return nil, err
	}
	return fromEnv(), nil
}

func fromEnv() *Config {
	return &Config{
		Port:          getEnvAsInt("PORT", 8080),
		Password:      getEnv("PASSWORD", "changeme"),
		SessionSecret: getEnv("SESSION_SECRET", randomSecret()),
		SessionTTL:    time.Duration(getEnvAsInt("SESSION_TTL_HOURS", 24)) * time.Hour,

		ModelPath:       getEnv("MODEL_PATH", filepath.Join(".", "models", "detector.onnx")),
		ModelConfigPath: getEnv("MODEL_CONFIG", ""),
		BackbonePath:    getEnv("BACKBONE_PATH", filepath.Join(".", "models", "backbone.onnx")),
		CascadePath:     getEnv("FACE_CASCADE_PATH", filepath.Join(".", "models", "haarcascade_frontalface_default.xml")),

		UseFaceCrop:       getEnvAsBool("USE_FACE_CROP", false),
		EnforceNoFace:     getEnvAsBool("ENFORCE_NOFACE", true),
		SelectLargestFace: getEnvAsBool("SELECT_LARGEST_FACE", true),
		Threshold:         getEnvAsThreshold("THRESH"),

		FaceMinSize:   getEnvAsInt("FACE_MIN_SIZE", 60),
		FaceScale:     getEnvAsFloat("FACE_SCALE", 1.2),
		FaceNeighbors: getEnvAsInt("FACE_NEIGHBORS", 4),

		UploadDirectory:   getEnv("UPLOAD_DIR", filepath.Join(".", "uploads")),
		DatabasePath:      getEnv("DB_PATH", filepath.Join(".", "data", "detections.db")),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		ProcessingWorkers: getEnvAsInt("PROCESSING_WORKERS", 3),
		FetchTimeout:      time.Duration(getEnvAsInt("FETCH_TIMEOUT", 8)) * time.Second,
		MaxUploadBytes:    getEnvAsInt64("MAX_UPLOAD_MB", 16) << 20,
		LogDirectory:      getEnv("LOG_DIR", filepath.Join(".", "logs")),

		TelegramToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
	}
}

// randomSecret is used when SESSION_SECRET is unset; sessions then end with
// the process.
func randomSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic("config: no entropy for session secret: " + err.Error())
	}
	return hex.EncodeToString(b)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil && intValue > 0 {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil && intValue > 0 {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil && floatValue > 0 {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return ParseBool(value, defaultValue)
	}
	return defaultValue
}

// getEnvAsThreshold returns 0 (disabled) unless the value is in (0, 1].
func getEnvAsThreshold(key string) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" || strings.EqualFold(value, "none") {
		return 0
	}
	t, err := strconv.ParseFloat(value, 64)
	if err != nil || t <= 0 || t > 1 {
		return 0
	}
	return t
}

// ParseBool accepts 1/true/on/yes and 0/false/off/no in any case.
func ParseBool(value string, defaultValue bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "on", "yes":
		return true
	case "0", "false", "off", "no":
		return false
	}
	return defaultValue
}
