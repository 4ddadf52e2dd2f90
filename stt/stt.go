package stt

import (
	"context"
	"strings"
)

// Encoding names an audio encoding the recognition service understands.
// The values are the wire names of the Speech-to-Text API.
type Encoding string

const (
	EncodingUnspecified Encoding = ""
	EncodingLinear16    Encoding = "LINEAR16"
	EncodingOggOpus     Encoding = "OGG_OPUS"
	EncodingWebmOpus    Encoding = "WEBM_OPUS"
	EncodingMP3         Encoding = "MP3"
)

// Config carries the recognition parameters for one request. Zero values
// mean "leave it to the service": a SampleRateHertz of 0 omits the rate so
// the service reads it from the container, an empty Encoding leaves the
// encoding unspecified.
type Config struct {
	Encoding        Encoding
	SampleRateHertz int64
	ChannelCount    int64
	LanguageCode    string
	Model           string
	Punctuate       bool
	Enhanced        bool
}

type Alternative struct {
	Transcript string
	Confidence float64
}

// Segment is one recognized stretch of audio. The service orders
// alternatives by likelihood; the first one is the transcript we use.
type Segment struct {
	Alternatives []Alternative
}

// Recognizer is the speech recognition capability. Returning no segments
// with a nil error means the service answered but heard nothing.
type Recognizer interface {
	Recognize(ctx context.Context, cfg Config, audio []byte) ([]Segment, error)
}

// JoinTranscripts combines the best alternative of each segment into one
// transcript, segments in service order, separated by single spaces.
// Segments without alternatives are skipped.
func JoinTranscripts(segments []Segment) string {
	parts := make([]string, 0, len(segments))
	for _, segment := range segments {
		if len(segment.Alternatives) == 0 {
			continue
		}
		parts = append(parts, segment.Alternatives[0].Transcript)
	}
	return strings.Join(parts, " ")
}
