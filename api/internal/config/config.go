package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string

	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string

	GeminiAPIKey string
	GeminiModel  string

	// ExtractionEngine selects which vision engine reads the plate: "openai" or "gemini".
	ExtractionEngine string

	UploadDir   string
	AllowedExts map[string]bool

	// Detector model files. Empty means the passthrough detector
	// (the vision model localizes the plate itself).
	YOLOConfig        string
	YOLOWeights       string
	YOLOConfThreshold float64

	// Optional recognition history. Empty disables the store.
	DatabaseURL string

	TelegramBotToken string
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getEnvFloat(k string, def float64) float64 {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port: getEnv("PORT", "8000"),

		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4.1"),
		OpenAIBaseURL: strings.TrimRight(getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"), "/"),

		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.5-flash"),

		ExtractionEngine: strings.ToLower(getEnv("EXTRACTION_ENGINE", "openai")),

		UploadDir: getEnv("UPLOAD_DIR", "uploads"),
		AllowedExts: map[string]bool{
			".png":  true,
			".jpg":  true,
			".jpeg": true,
			".gif":  true,
			".bmp":  true,
		},

		YOLOConfig:        os.Getenv("YOLO_CONFIG"),
		YOLOWeights:       os.Getenv("YOLO_WEIGHTS"),
		YOLOConfThreshold: getEnvFloat("YOLO_CONF_THRESHOLD", 0.5),

		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),

		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
	}
}
