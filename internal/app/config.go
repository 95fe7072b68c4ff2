package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPAddr  string
	SentryDSN string
	LogLevel  string

	// Optional Postgres pool for session event telemetry
	DatabaseURL string

	// STT collaborator
	DeepgramAPIKey string
	DeepgramModel  string
	STTLanguage    string

	// LLM collaborators
	LLMProvider  string // default provider name, e.g. "gemini"
	GeminiAPIKey string
	GeminiModel  string
	OpenAIAPIKey string
	OpenAIModel  string

	// How long a boundary resolution waits for lagging transcript finals
	WaitForFinals time.Duration
}

func LoadConfigFromEnv() Config {
	return Config{
		HTTPAddr:  getenv("HTTP_ADDR", ":8080"),
		SentryDSN: getenv("SENTRY_DSN", ""),
		LogLevel:  getenv("LOG_LEVEL", "info"),

		DatabaseURL: getenv("DATABASE_URL", ""),

		DeepgramAPIKey: getenv("DEEPGRAM_API_KEY", ""),
		DeepgramModel:  getenv("DEEPGRAM_MODEL", "nova-2"),
		STTLanguage:    getenv("STT_LANGUAGE", "en"),

		LLMProvider:  getenv("LLM", ""),
		GeminiAPIKey: getenv("GEMINI_API_KEY", ""),
		GeminiModel:  getenv("GEMINI_MODEL", ""),
		OpenAIAPIKey: getenv("OPENAI_API_KEY", ""),
		OpenAIModel:  getenv("OPENAI_MODEL", ""),

		WaitForFinals: getenvSeconds("VAD_WAIT_FOR_FINALS", 600*time.Millisecond),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// getenvSeconds reads a duration expressed as seconds (e.g. "0.6").
func getenvSeconds(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	secs, err := strconv.ParseFloat(v, 64)
	if err != nil || secs <= 0 {
		return def
	}
	return time.Duration(secs * float64(time.Second))
}
