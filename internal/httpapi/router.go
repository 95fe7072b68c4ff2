package httpapi

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/lukasbauer/voicebridge/internal/eventlog"
	"github.com/lukasbauer/voicebridge/internal/stt"
)

type RouterConfig struct {
	// STT collaborator
	DeepgramAPIKey string
	DeepgramModel  string // e.g., "nova-2"
	STTLanguage    string // e.g., "en"

	// LLM collaborators
	LLMProvider string // default provider name; empty falls back to gemini if registered
	GeminiAPIKey string
	GeminiModel  string
	OpenAIAPIKey string
	OpenAIModel  string

	// How long a boundary resolution waits for lagging transcript finals
	WaitForFinals time.Duration
}

// transcriberFactory opens a streaming STT subscription. Overridden in tests.
type transcriberFactory func(ctx context.Context, cfg stt.DeepgramConfig) (stt.Client, error)

type Router struct {
	cfg            RouterConfig
	logger         *log.Logger
	eventLog       *eventlog.Logger
	mux            *http.ServeMux
	newTranscriber transcriberFactory
}

func NewRouter(cfg RouterConfig, logger *log.Logger, eventLog *eventlog.Logger) http.Handler {
	r := &Router{
		cfg:      cfg,
		logger:   logger,
		eventLog: eventLog,
		mux:      http.NewServeMux(),
		newTranscriber: func(ctx context.Context, cfg stt.DeepgramConfig) (stt.Client, error) {
			return stt.NewDeepgramClient(ctx, cfg)
		},
	}

	r.routes()
	return withSentryRecovery(withCORS(r.mux))
}

func (r *Router) routes() {
	// Health check
	r.mux.HandleFunc("GET /healthz", r.handleHealthz)

	// Streaming transcription session
	r.mux.HandleFunc("GET /ws/transcribe", r.handleSessionWS)

	// LLM management
	r.mux.HandleFunc("GET /llm/providers", r.handleLLMProviders)
	r.mux.HandleFunc("POST /llm/respond", r.handleLLMRespond)
}

func (r *Router) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func withSentryRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				hub := sentry.CurrentHub().Clone()
				hub.Scope().SetRequest(req)
				hub.RecoverWithContext(req.Context(), err)
				hub.Flush(2 * time.Second)
				http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, req)
	})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if req.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, req)
	})
}

// captureError sends an error to Sentry with request context
func captureError(req *http.Request, err error, msg string) {
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetRequest(req)
		scope.SetExtra("message", msg)
		sentry.CaptureException(err)
	})
}
