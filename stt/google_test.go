package stt

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"google.golang.org/api/option"
)

func newStubRecognizer(t *testing.T, handler http.HandlerFunc) *GoogleRecognizer {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	recognizer, err := NewGoogleRecognizer(
		context.Background(),
		"",
		option.WithEndpoint(server.URL),
		option.WithoutAuthentication(),
	)
	if err != nil {
		t.Fatalf("creating recognizer: %v", err)
	}
	return recognizer
}

func TestGoogleRecognizerRequestAndResponse(t *testing.T) {
	audio := []byte("fake opus bytes")

	var got struct {
		Config struct {
			Encoding                   string `json:"encoding"`
			SampleRateHertz            int64  `json:"sampleRateHertz"`
			AudioChannelCount          int64  `json:"audioChannelCount"`
			LanguageCode               string `json:"languageCode"`
			Model                      string `json:"model"`
			EnableAutomaticPunctuation bool   `json:"enableAutomaticPunctuation"`
			UseEnhanced                bool   `json:"useEnhanced"`
		} `json:"config"`
		Audio struct {
			Content string `json:"content"`
		} `json:"audio"`
	}

	recognizer := newStubRecognizer(t, func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"results":[`+
			`{"alternatives":[{"transcript":"hello world","confidence":0.92}]},`+
			`{"alternatives":[{"transcript":"second segment","confidence":0.81}]}]}`)
	})

	segments, err := recognizer.Recognize(context.Background(), Config{
		Encoding:        EncodingOggOpus,
		SampleRateHertz: 48000,
		ChannelCount:    1,
		LanguageCode:    "en-US",
		Model:           "latest_long",
		Punctuate:       true,
		Enhanced:        true,
	}, audio)
	if err != nil {
		t.Fatalf("recognize: %v", err)
	}

	if got.Config.Encoding != "OGG_OPUS" {
		t.Errorf("encoding on the wire: expected OGG_OPUS, got %q", got.Config.Encoding)
	}
	if got.Config.SampleRateHertz != 48000 {
		t.Errorf("sample rate on the wire: expected 48000, got %d", got.Config.SampleRateHertz)
	}
	if got.Config.AudioChannelCount != 1 {
		t.Errorf("channel count on the wire: expected 1, got %d", got.Config.AudioChannelCount)
	}
	if got.Config.LanguageCode != "en-US" || got.Config.Model != "latest_long" {
		t.Errorf("expected language and model to pass through, got %+v", got.Config)
	}
	if !got.Config.EnableAutomaticPunctuation || !got.Config.UseEnhanced {
		t.Errorf("expected punctuation and enhanced flags set, got %+v", got.Config)
	}
	if want := base64.StdEncoding.EncodeToString(audio); got.Audio.Content != want {
		t.Errorf("audio content: expected %q, got %q", want, got.Audio.Content)
	}

	if len(segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segments))
	}
	if segments[0].Alternatives[0].Transcript != "hello world" {
		t.Errorf("unexpected first transcript: %q", segments[0].Alternatives[0].Transcript)
	}
	if segments[1].Alternatives[0].Confidence != 0.81 {
		t.Errorf("unexpected second confidence: %v", segments[1].Alternatives[0].Confidence)
	}
}

func TestGoogleRecognizerOmitsZeroFields(t *testing.T) {
	var raw map[string]json.RawMessage

	recognizer := newStubRecognizer(t, func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Config json.RawMessage `json:"config"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decoding request body: %v", err)
		}
		if err := json.Unmarshal(body.Config, &raw); err != nil {
			t.Errorf("decoding config: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{}`)
	})

	segments, err := recognizer.Recognize(context.Background(), Config{
		Encoding:     EncodingLinear16,
		LanguageCode: "en-US",
		Model:        "latest_long",
		Punctuate:    true,
		Enhanced:     true,
	}, []byte("pcm"))
	if err != nil {
		t.Fatalf("recognize: %v", err)
	}

	if _, present := raw["sampleRateHertz"]; present {
		t.Error("zero sample rate should be omitted so the service infers it")
	}
	if _, present := raw["audioChannelCount"]; present {
		t.Error("zero channel count should be omitted")
	}
	if len(segments) != 0 {
		t.Errorf("expected no segments from empty response, got %d", len(segments))
	}
}

func TestGoogleRecognizerSurfacesAPIErrors(t *testing.T) {
	recognizer := newStubRecognizer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"code":400,"message":"Invalid sample rate.","status":"INVALID_ARGUMENT"}}`)
	})

	_, err := recognizer.Recognize(context.Background(), Config{
		Encoding:        EncodingLinear16,
		SampleRateHertz: 12345,
		LanguageCode:    "en-US",
	}, []byte("pcm"))
	if err == nil {
		t.Fatal("expected an error from the API")
	}
}
