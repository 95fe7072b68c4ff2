package httpapi

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/lukasbauer/voicebridge/internal/eventlog"
	"github.com/lukasbauer/voicebridge/internal/llm"
	"github.com/lukasbauer/voicebridge/internal/stt"
	"github.com/lukasbauer/voicebridge/internal/turn"
	"github.com/lukasbauer/voicebridge/internal/vad"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// session manages a single transcription session: one goroutine reads client
// audio, one consumes STT results, both feeding the coordinator. All writes
// to the client connection go through Notify under connMu so notifications
// keep coordinator production order.
type session struct {
	id string

	conn   *websocket.Conn
	connMu sync.Mutex

	sttClient stt.Client
	coord     *turn.Coordinator

	eventLog *eventlog.Logger
	logger   *log.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Notify serializes one notification to the client. Implements turn.Notifier.
func (s *session) Notify(kind turn.Kind, text string) {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if err := s.conn.WriteJSON(map[string]string{string(kind): text}); err != nil {
		s.logger.Printf("session_ws: write error for session %s: %v", s.id, err)
	}
}

func (r *Router) handleSessionWS(w http.ResponseWriter, req *http.Request) {
	conn, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Printf("session_ws: upgrade failed: %v", err)
		return
	}

	ctx, cancel := context.WithCancel(req.Context())

	s := &session{
		id:       uuid.NewString(),
		conn:     conn,
		eventLog: r.eventLog,
		logger:   r.logger,
		ctx:      ctx,
		cancel:   cancel,
	}
	defer s.cleanup()

	// No audio path is possible without the STT collaborator: report once
	// and close the session.
	if r.cfg.DeepgramAPIKey == "" {
		s.Notify(turn.KindError, "DEEPGRAM_API_KEY not set")
		captureError(req, fmt.Errorf("transcription not configured: missing API key"), "session_ws: configuration error")
		return
	}

	sttClient, err := r.newTranscriber(ctx, stt.DeepgramConfig{
		APIKey:         r.cfg.DeepgramAPIKey,
		Language:       r.cfg.STTLanguage,
		Model:          r.cfg.DeepgramModel,
		SampleRate:     16000,
		Encoding:       "linear16",
		Channels:       1,
		InterimResults: true,
		Punctuate:      true,
		SmartFormat:    true,
	})
	if err != nil {
		r.logger.Printf("session_ws: failed to start transcription: %v", err)
		captureError(req, err, "session_ws: stt connect error")
		s.Notify(turn.KindError, fmt.Sprintf("failed to start transcription: %v", err))
		return
	}
	s.sttClient = sttClient
	s.eventLog.LogAsync(s.id, eventlog.EventSTTConnected, map[string]any{"model": r.cfg.DeepgramModel})

	// A missing LLM is non-fatal: transcription continues without replies.
	llmClient := r.sessionLLM(s)

	s.coord = turn.New(turn.Config{
		SessionID:     s.id,
		Sink:          sttClient,
		Detector:      vad.NewEnergy(vad.DefaultConfig()),
		LLM:           llmClient,
		Notifier:      s,
		EventLog:      r.eventLog,
		Logger:        r.logger,
		WaitForFinals: r.cfg.WaitForFinals,
	})

	s.eventLog.LogAsync(s.id, eventlog.EventSessionStarted, nil)
	r.logger.Printf("session_ws: session %s started", s.id)

	s.wg.Add(1)
	go s.consumeTranscripts()

	s.readAudio()
}

// sessionLLM creates the session's LLM client from the default provider.
// Creation failure is reported once and the session continues without it.
func (r *Router) sessionLLM(s *session) llm.Client {
	provider := r.defaultLLMProvider()
	if provider == "" {
		return nil
	}
	client, err := llm.New(provider, r.llmConfig(provider))
	if err != nil {
		r.logger.Printf("session_ws: llm provider %s unavailable: %v", provider, err)
		s.Notify(turn.KindError, fmt.Sprintf("llm unavailable: %v", err))
		return nil
	}
	return client
}

// readAudio delivers binary frames from the client to the coordinator in
// receipt order. Text frames are ignored. Returns on disconnect.
func (s *session) readAudio() {
	for {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		mt, msg, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Printf("session_ws: session %s closed by client", s.id)
			} else {
				s.logger.Printf("session_ws: read error for session %s: %v", s.id, err)
			}
			return
		}

		if mt != websocket.BinaryMessage || len(msg) == 0 {
			continue
		}

		s.coord.OnAudioChunk(s.ctx, msg)
	}
}

// consumeTranscripts applies STT results to the coordinator in arrival
// order. An STT stream error kills the audio path, so it ends the session.
func (s *session) consumeTranscripts() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return

		case err := <-s.sttClient.Errors():
			if err == nil {
				return
			}
			s.logger.Printf("session_ws: STT error for session %s: %v", s.id, err)
			s.Notify(turn.KindError, fmt.Sprintf("transcription failed: %v", err))
			s.abort()
			return

		case result, ok := <-s.sttClient.Results():
			if !ok {
				return
			}
			s.coord.OnTranscript(result)
		}
	}
}

// abort ends the session from the transcript side. The expired read deadline
// unblocks the audio read loop without closing the connection, so teardown
// can still flush pending text to the client.
func (s *session) abort() {
	s.cancel()
	_ = s.conn.SetReadDeadline(time.Now())
}

func (s *session) cleanup() {
	s.cancel()
	s.wg.Wait()

	if s.coord != nil {
		// Let in-flight resolutions observe cancellation, then flush text
		// that was detected but never boundary-resolved.
		s.coord.Wait()
		s.coord.Flush()
	}

	if s.sttClient != nil {
		_ = s.sttClient.Close()
	}

	s.connMu.Lock()
	_ = s.conn.Close()
	s.connMu.Unlock()

	s.eventLog.LogAsync(s.id, eventlog.EventSessionEnded, map[string]any{
		"ended_at": time.Now().UTC().Format(time.RFC3339),
	})
	s.logger.Printf("session_ws: session %s cleaned up", s.id)
}
