// Package turn reconciles two asynchronous event streams - transcript
// results arriving from the STT service and boundary decisions computed
// locally on the raw audio - into a single ordered "utterance complete"
// decision per spoken turn.
package turn

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/lukasbauer/voicebridge/internal/audio"
	"github.com/lukasbauer/voicebridge/internal/eventlog"
	"github.com/lukasbauer/voicebridge/internal/llm"
	"github.com/lukasbauer/voicebridge/internal/stt"
	"github.com/lukasbauer/voicebridge/internal/vad"
)

// Kind identifies a client notification.
type Kind string

const (
	KindPartial     Kind = "partial"
	KindFinal       Kind = "final"
	KindFinalFull   Kind = "final_full"
	KindLLMResponse Kind = "llm_response"
	KindError       Kind = "error"
)

// Notifier delivers notifications to the client in the order they are
// produced. Implementations must be safe for concurrent use.
type Notifier interface {
	Notify(kind Kind, text string)
}

// AudioSink receives forwarded audio chunks. Satisfied by stt.Client.
type AudioSink interface {
	StreamAudio(ctx context.Context, audio []byte) error
}

const (
	// DefaultWaitForFinals bounds how long a boundary resolution waits for
	// transcription finality to catch up with the local boundary decision.
	DefaultWaitForFinals = 600 * time.Millisecond

	// DefaultPollInterval is the wait loop's poll period.
	DefaultPollInterval = 50 * time.Millisecond
)

// Config holds coordinator settings and collaborators.
type Config struct {
	SessionID     string
	Sink          AudioSink
	Detector      vad.Detector
	LLM           llm.Client // nil disables replies
	Notifier      Notifier
	EventLog      *eventlog.Logger
	Logger        *log.Logger
	WaitForFinals time.Duration
	PollInterval  time.Duration
}

// Coordinator owns one session's utterance state. Audio chunks and
// transcript events may arrive on different goroutines; the finals buffer is
// guarded by a mutex so a boundary wait in progress observes finals as they
// land. Boundary resolutions are serialized - at most one in flight.
type Coordinator struct {
	sessionID     string
	sink          AudioSink
	detector      vad.Detector
	llm           llm.Client
	notifier      Notifier
	eventLog      *eventlog.Logger
	logger        *log.Logger
	waitForFinals time.Duration
	pollInterval  time.Duration

	mu      sync.Mutex
	finals  []string
	history []llm.Message

	resolveMu sync.Mutex // serializes boundary resolutions
	wg        sync.WaitGroup

	// pending carries an unaligned trailing byte between audio chunks for
	// local decoding. Touched only by the audio-reading goroutine.
	pending []byte
}

// New creates a coordinator for one session.
func New(cfg Config) *Coordinator {
	if cfg.WaitForFinals <= 0 {
		cfg.WaitForFinals = DefaultWaitForFinals
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.EventLog == nil {
		cfg.EventLog = eventlog.New(nil)
	}
	return &Coordinator{
		sessionID:     cfg.SessionID,
		sink:          cfg.Sink,
		detector:      cfg.Detector,
		llm:           cfg.LLM,
		notifier:      cfg.Notifier,
		eventLog:      cfg.EventLog,
		logger:        cfg.Logger,
		waitForFinals: cfg.WaitForFinals,
		pollInterval:  cfg.PollInterval,
	}
}

// OnAudioChunk forwards one chunk to the transcriber and the local detector.
// It never blocks waiting for transcription results. A forwarding error is
// logged but does not stop local detection; a boundary decision triggers an
// asynchronous resolution.
func (c *Coordinator) OnAudioChunk(ctx context.Context, chunk []byte) {
	if len(chunk) == 0 {
		return
	}

	if c.sink != nil {
		if err := c.sink.StreamAudio(ctx, chunk); err != nil {
			c.logger.Printf("turn: audio forward error: %v", err)
		}
	}

	// Frame boundaries carry no alignment guarantee; carry a trailing odd
	// byte into the next chunk for sample decoding.
	data := chunk
	if len(c.pending) > 0 {
		data = append(c.pending, chunk...)
		c.pending = nil
	}
	if len(data)%2 != 0 {
		c.pending = []byte{data[len(data)-1]}
		data = data[:len(data)-1]
	}
	if len(data) == 0 {
		return
	}

	boundary, _ := c.detector.Process(audio.Samples(data))
	if boundary {
		c.wg.Add(1)
		go c.resolveBoundary(ctx)
	}
}

// OnTranscript applies one transcript event. Finals are appended to the
// utterance buffer and echoed to the client; interim results are echoed only.
func (c *Coordinator) OnTranscript(res stt.TranscriptResult) {
	if res.Text == "" {
		return
	}

	if !res.IsFinal {
		c.notifier.Notify(KindPartial, res.Text)
		return
	}

	c.mu.Lock()
	c.finals = append(c.finals, res.Text)
	c.mu.Unlock()

	c.notifier.Notify(KindFinal, res.Text)
}

// resolveBoundary handles one end-of-utterance signal. Transcription finality
// typically lags the boundary decision made on raw samples, so an empty
// buffer gets a bounded poll-wait before the utterance is assembled. The
// buffer is cleared unconditionally afterwards so the next utterance starts
// from an empty window.
func (c *Coordinator) resolveBoundary(ctx context.Context) {
	defer c.wg.Done()

	c.resolveMu.Lock()
	defer c.resolveMu.Unlock()

	start := time.Now()
	deadline := start.Add(c.waitForFinals)
	for c.buffered() == 0 && time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			// Cancellation wins: no LLM call, leave the buffer for the
			// teardown flush.
			return
		case <-time.After(c.pollInterval):
		}
	}

	c.mu.Lock()
	count := len(c.finals)
	text := strings.TrimSpace(strings.Join(c.finals, " "))
	c.finals = nil
	var history []llm.Message
	if text != "" && c.llm != nil {
		history = append(history, c.history...)
		c.history = append(c.history, llm.Message{Role: "user", Content: text})
	}
	c.mu.Unlock()

	c.eventLog.LogAsync(c.sessionID, eventlog.EventBoundaryResolved, map[string]any{
		"finals":    count,
		"chars":     len(text),
		"waited_ms": time.Since(start).Milliseconds(),
	})

	if text == "" {
		return
	}
	c.logger.Printf("turn: end of utterance: %s", text)
	if c.llm == nil {
		return
	}

	c.wg.Add(1)
	go c.respond(ctx, text, history)
}

// respond invokes the LLM off the coordinator's event-handling path. A failed
// call is reported as an error notification; the session continues.
func (c *Coordinator) respond(ctx context.Context, text string, history []llm.Message) {
	defer c.wg.Done()

	reply, err := c.llm.Respond(ctx, text, history)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		c.logger.Printf("turn: llm error: %v", err)
		c.eventLog.LogAsync(c.sessionID, eventlog.EventLLMError, map[string]any{"error": err.Error()})
		c.notifier.Notify(KindError, fmt.Sprintf("llm: %v", err))
		return
	}

	c.mu.Lock()
	c.history = append(c.history, llm.Message{Role: "assistant", Content: reply})
	c.mu.Unlock()

	c.eventLog.LogAsync(c.sessionID, eventlog.EventLLMCompleted, map[string]any{"chars": len(reply)})
	c.notifier.Notify(KindLLMResponse, reply)
}

// Flush emits buffered finals that were never boundary-resolved as a single
// final_full notification. Called once at session teardown.
func (c *Coordinator) Flush() {
	c.mu.Lock()
	text := strings.TrimSpace(strings.Join(c.finals, " "))
	c.finals = nil
	c.mu.Unlock()

	if text != "" {
		c.notifier.Notify(KindFinalFull, text)
	}
}

// Wait blocks until outstanding boundary resolutions and LLM calls finish.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

func (c *Coordinator) buffered() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.finals)
}
