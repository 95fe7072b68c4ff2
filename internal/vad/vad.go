package vad

import "math"

// Detector consumes consecutive PCM chunks and reports utterance boundaries.
// Implementations keep internal state across calls; Process returns true when
// a speech-to-silence transition was detected as of the given chunk, along
// with the samples buffered since speech started. The boundary signal is a
// timing trigger only - transcript content comes from the STT service.
type Detector interface {
	Process(pcm []int16) (endOfUtterance bool, utterance []int16)
	Reset()
}

// Config tunes the energy detector. Thresholds are normalized RMS levels
// (0..1); frame counts are consecutive Process calls needed to flip state.
type Config struct {
	SpeechThreshold  float64 // RMS level to start speech
	SilenceThreshold float64 // RMS level to end speech
	SpeechFrames     int     // consecutive speech frames to trigger start
	SilenceFrames    int     // consecutive silence frames to trigger end
	MaxUtteranceSec  int     // cap on buffered utterance audio
}

// DefaultConfig returns settings suitable for 16kHz mono chunks of
// roughly 20-60ms. SilenceFrames assumes ~20ms chunks (~600ms of silence).
func DefaultConfig() Config {
	return Config{
		SpeechThreshold:  0.015,
		SilenceThreshold: 0.008,
		SpeechFrames:     3,
		SilenceFrames:    30,
		MaxUtteranceSec:  30,
	}
}

// Energy is a pure-Go voice activity detector based on RMS energy levels.
// Hysteresis (separate start/end thresholds plus consecutive-frame counts)
// avoids flickering between speech and silence states.
type Energy struct {
	cfg          Config
	maxSamples   int
	inSpeech     bool
	speechCount  int
	silenceCount int
	buffer       []int16
}

// NewEnergy creates an energy detector for 16kHz audio.
func NewEnergy(cfg Config) *Energy {
	if cfg.SpeechThreshold <= 0 {
		cfg = DefaultConfig()
	}
	return &Energy{
		cfg:        cfg,
		maxSamples: cfg.MaxUtteranceSec * 16000,
	}
}

// Process feeds one chunk into the detector. When it returns true, the
// second return value holds the utterance audio buffered since speech
// started, and internal state is reset for the next utterance.
func (v *Energy) Process(pcm []int16) (bool, []int16) {
	if len(pcm) == 0 {
		return false, nil
	}

	level := rms(pcm)

	if v.inSpeech {
		if len(v.buffer) < v.maxSamples {
			v.buffer = append(v.buffer, pcm...)
		}
		if level < v.cfg.SilenceThreshold {
			v.silenceCount++
			v.speechCount = 0
			if v.silenceCount >= v.cfg.SilenceFrames {
				utterance := v.buffer
				v.Reset()
				return true, utterance
			}
		} else {
			v.silenceCount = 0
		}
		return false, nil
	}

	if level >= v.cfg.SpeechThreshold {
		v.speechCount++
		v.silenceCount = 0
		v.buffer = append(v.buffer, pcm...)
		if v.speechCount >= v.cfg.SpeechFrames {
			v.inSpeech = true
			v.speechCount = 0
		}
	} else {
		v.speechCount = 0
		v.buffer = v.buffer[:0]
	}
	return false, nil
}

// Reset clears internal state.
func (v *Energy) Reset() {
	v.inSpeech = false
	v.speechCount = 0
	v.silenceCount = 0
	v.buffer = nil
}

// rms computes the normalized root mean square of the chunk.
func rms(pcm []int16) float64 {
	var sum float64
	for _, s := range pcm {
		f := float64(s) / 32768.0
		sum += f * f
	}
	return math.Sqrt(sum / float64(len(pcm)))
}
