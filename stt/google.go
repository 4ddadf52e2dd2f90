package stt

import (
	"context"
	"encoding/base64"
	"fmt"

	"google.golang.org/api/option"
	speech "google.golang.org/api/speech/v1"
)

// GoogleRecognizer calls the Google Cloud Speech-to-Text REST API.
type GoogleRecognizer struct {
	service *speech.Service
}

// NewGoogleRecognizer builds a recognizer authenticated by API key. Extra
// client options are applied after the key, so tests can swap in their own
// endpoint.
func NewGoogleRecognizer(
	ctx context.Context,
	apiKey string,
	opts ...option.ClientOption,
) (*GoogleRecognizer, error) {
	if apiKey != "" {
		opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	}
	service, err := speech.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("error creating speech service: %w", err)
	}
	return &GoogleRecognizer{service: service}, nil
}

func (g *GoogleRecognizer) Recognize(
	ctx context.Context,
	cfg Config,
	audio []byte,
) ([]Segment, error) {
	req := &speech.RecognizeRequest{
		Config: &speech.RecognitionConfig{
			Encoding:                   string(cfg.Encoding),
			SampleRateHertz:            cfg.SampleRateHertz,
			AudioChannelCount:          cfg.ChannelCount,
			LanguageCode:               cfg.LanguageCode,
			Model:                      cfg.Model,
			EnableAutomaticPunctuation: cfg.Punctuate,
			UseEnhanced:                cfg.Enhanced,
		},
		Audio: &speech.RecognitionAudio{
			Content: base64.StdEncoding.EncodeToString(audio),
		},
	}

	resp, err := g.service.Speech.Recognize(req).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("recognize request failed: %w", err)
	}

	segments := make([]Segment, 0, len(resp.Results))
	for _, result := range resp.Results {
		segment := Segment{
			Alternatives: make([]Alternative, 0, len(result.Alternatives)),
		}
		for _, alternative := range result.Alternatives {
			segment.Alternatives = append(segment.Alternatives, Alternative{
				Transcript: alternative.Transcript,
				Confidence: alternative.Confidence,
			})
		}
		segments = append(segments, segment)
	}
	return segments, nil
}
