package stt

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// The two messages callers can show verbatim when recognition yields no
// usable text. Silence is a success, failure is not, and the UI tells them
// apart by these strings.
const (
	NoSpeechMessage = "No speech detected in audio file"
	FailedMessage   = "Could not transcribe audio. Speech recognition failed."
)

var (
	fallbackEncodings = []Encoding{
		EncodingLinear16,
		EncodingOggOpus,
		EncodingWebmOpus,
		EncodingMP3,
	}
	fallbackRates = []int64{48000, 44100, 16000, 8000}
)

// Transcriber turns uploaded audio into text, trying progressively looser
// recognition configs until one works. Transcribe always produces a usable
// string: a transcript, NoSpeechMessage, or FailedMessage. It never returns
// an error, so callers need no error path of their own.
type Transcriber struct {
	recognizer Recognizer
	logger     *log.Logger

	// AttemptTimeout bounds each recognition call. Zero disables the bound.
	AttemptTimeout time.Duration

	LanguageCode string
	Model        string
}

func NewTranscriber(recognizer Recognizer, logger *log.Logger) *Transcriber {
	return &Transcriber{
		recognizer:     recognizer,
		logger:         logger,
		AttemptTimeout: 30 * time.Second,
		LanguageCode:   "en-US",
		Model:          "latest_long",
	}
}

type outcome int

const (
	outcomeFailed outcome = iota
	outcomeEmpty
	outcomeSuccess
)

// Transcribe recognizes audio read from the file named by filename. The
// name only matters for its extension, which picks the first config to try;
// the audio bytes are passed in by the caller.
func (t *Transcriber) Transcribe(
	ctx context.Context,
	filename string,
	audio []byte,
) string {
	primary := t.primaryConfig(filename)
	t.logger.Info(
		"transcribing",
		"file", filepath.Base(filename),
		"bytes", len(audio),
		"encoding", primary.Encoding,
		"rate", primary.SampleRateHertz,
	)

	text, result, err := t.attempt(ctx, primary, audio)
	if result == outcomeEmpty {
		// The service answered but heard nothing. Browser recordings
		// sometimes only decode as WEBM_OPUS, so give that one shot
		// before calling it silence.
		t.logger.Warn("no speech recognized, retrying", "encoding", EncodingWebmOpus)
		retry := primary
		retry.Encoding = EncodingWebmOpus
		retry.SampleRateHertz = 48000
		retry.ChannelCount = 0
		text, result, err = t.attempt(ctx, retry, audio)
		if result == outcomeEmpty {
			return NoSpeechMessage
		}
	}
	if result == outcomeSuccess {
		return text
	}
	return t.sweep(ctx, audio, err)
}

func (t *Transcriber) primaryConfig(filename string) Config {
	cfg := Config{
		LanguageCode: t.LanguageCode,
		Model:        t.Model,
		Punctuate:    true,
		Enhanced:     true,
	}
	if strings.EqualFold(filepath.Ext(filename), ".webm") {
		// Browser MediaRecorder output: Opus in a WebM container,
		// mono at 48 kHz.
		cfg.Encoding = EncodingOggOpus
		cfg.SampleRateHertz = 48000
		cfg.ChannelCount = 1
	} else {
		// Let the service read the rate from the file header.
		cfg.Encoding = EncodingLinear16
	}
	return cfg
}

func (t *Transcriber) attempt(
	ctx context.Context,
	cfg Config,
	audio []byte,
) (string, outcome, error) {
	segments, err := t.recognize(ctx, cfg, audio)
	if err != nil {
		return "", outcomeFailed, err
	}
	if len(segments) == 0 {
		return "", outcomeEmpty, nil
	}
	return JoinTranscripts(segments), outcomeSuccess, nil
}

// sweep retries recognition across every encoding and sample rate a browser
// upload plausibly has. cause is the error that got us here; it is the one
// worth reporting if nothing below works either.
func (t *Transcriber) sweep(
	ctx context.Context,
	audio []byte,
	cause error,
) string {
	t.logger.Warn("recognition failed, sweeping configs", "error", cause)

	for _, encoding := range fallbackEncodings {
		for _, rate := range fallbackRates {
			cfg := Config{
				Encoding:        encoding,
				SampleRateHertz: rate,
				LanguageCode:    t.LanguageCode,
				Model:           t.Model,
				Punctuate:       true,
				Enhanced:        true,
			}
			segments, err := t.recognize(ctx, cfg, audio)
			if err != nil {
				t.logger.Debug(
					"fallback attempt failed",
					"encoding", encoding,
					"rate", rate,
					"error", err,
				)
				continue
			}
			if len(segments) == 0 {
				t.logger.Debug(
					"fallback attempt heard nothing",
					"encoding", encoding,
					"rate", rate,
				)
				continue
			}
			t.logger.Info(
				"fallback attempt succeeded",
				"encoding", encoding,
				"rate", rate,
			)
			return JoinTranscripts(segments)
		}
	}

	t.logger.Error("all transcription attempts failed", "error", cause)
	return FailedMessage
}

func (t *Transcriber) recognize(
	ctx context.Context,
	cfg Config,
	audio []byte,
) ([]Segment, error) {
	if t.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.AttemptTimeout)
		defer cancel()
	}
	return t.recognizer.Recognize(ctx, cfg, audio)
}
