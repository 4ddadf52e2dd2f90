package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"

	"github.com/ShivaniNR/agents-assemble/agent"
	"github.com/ShivaniNR/agents-assemble/stt"
	"github.com/ShivaniNR/agents-assemble/uploads"
)

type stubRecognizer struct {
	calls    int
	segments []stt.Segment
	err      error
}

func (s *stubRecognizer) Recognize(
	ctx context.Context,
	cfg stt.Config,
	audio []byte,
) ([]stt.Segment, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.segments, nil
}

type stubProcessor struct {
	req  agent.Request
	resp agent.Response
	err  error
}

func (p *stubProcessor) Process(
	ctx context.Context,
	req agent.Request,
) (agent.Response, error) {
	p.req = req
	if p.err != nil {
		return agent.Response{}, p.err
	}
	if p.resp.Reply == "" {
		return agent.Response{Reply: req.Text}, nil
	}
	return p.resp, nil
}

func spoken(text string) []stt.Segment {
	return []stt.Segment{
		{Alternatives: []stt.Alternative{{Transcript: text, Confidence: 0.9}}},
	}
}

func newTestRouter(
	t *testing.T,
	recognizer stt.Recognizer,
	processor agent.Processor,
) (chi.Router, *uploads.Store) {
	t.Helper()
	store := uploads.NewStore(t.TempDir())
	server := &Server{
		Transcriber: stt.NewTranscriber(recognizer, log.New(io.Discard)),
		Processor:   processor,
		Uploads:     store,
		Logger:      log.New(io.Discard),
	}
	r := chi.NewRouter()
	server.Routes(r)
	return r, store
}

func multipartBody(
	t *testing.T,
	fields map[string]string,
	fileField, fileName string,
	fileContent []byte,
) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for key, value := range fields {
		if err := w.WriteField(key, value); err != nil {
			t.Fatalf("writing field %s: %v", key, err)
		}
	}
	if fileField != "" {
		fw, err := w.CreateFormFile(fileField, fileName)
		if err != nil {
			t.Fatalf("creating file part: %v", err)
		}
		if _, err := fw.Write(fileContent); err != nil {
			t.Fatalf("writing file part: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("closing multipart writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

type processResponse struct {
	Success          bool            `json:"success"`
	Result           string          `json:"result"`
	TranscribedText  string          `json:"transcribed_text"`
	ProcessingTimeMs int64           `json:"processing_time_ms"`
	RequestID        string          `json:"request_id"`
	Error            string          `json:"error"`
	Data             json.RawMessage `json:"data"`
}

func postProcess(
	t *testing.T,
	r chi.Router,
	fields map[string]string,
	audio []byte,
) (*httptest.ResponseRecorder, processResponse) {
	t.Helper()
	fileField := ""
	if audio != nil {
		fileField = "audio"
	}
	body, contentType := multipartBody(t, fields, fileField, "recording.webm", audio)

	req := httptest.NewRequest(http.MethodPost, "/api/process", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var resp processResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
	return rec, resp
}

func TestProcessWithAudio(t *testing.T) {
	recognizer := &stubRecognizer{segments: spoken("went for a run this morning")}
	processor := &stubProcessor{}
	r, store := newTestRouter(t, recognizer, processor)

	rec, resp := postProcess(t, r, map[string]string{
		"browser_transcript": "went for a fun this morning",
		"user_id":            "u42",
		"input_method":       "voice",
		"browser_preview":    "false",
	}, []byte("opus bytes"))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !resp.Success {
		t.Error("expected success")
	}
	if resp.TranscribedText != "went for a run this morning" {
		t.Errorf("expected server transcript to win, got %q", resp.TranscribedText)
	}
	if resp.RequestID == "" {
		t.Error("expected a request id")
	}
	if recognizer.calls == 0 {
		t.Error("expected the recognizer to be called")
	}
	if processor.req.UserID != "u42" {
		t.Errorf("expected user id to reach the processor, got %q", processor.req.UserID)
	}
	if processor.req.Text != "went for a run this morning" {
		t.Errorf("processor received wrong text: %q", processor.req.Text)
	}

	// The temp recording must be cleaned up after the request.
	entries, err := os.ReadDir(store.Dir)
	if err != nil {
		t.Fatalf("reading upload dir: %v", err)
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), "temp_audio_") {
			t.Errorf("temp file left behind: %s", entry.Name())
		}
	}
}

func TestProcessAudioFailureFallsBackToBrowserTranscript(t *testing.T) {
	recognizer := &stubRecognizer{err: errors.New("unrecognizable")}
	processor := &stubProcessor{}
	r, _ := newTestRouter(t, recognizer, processor)

	rec, resp := postProcess(t, r, map[string]string{
		"browser_transcript": "the browser heard this",
	}, []byte("opus bytes"))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if resp.TranscribedText != "the browser heard this" {
		t.Errorf("expected browser fallback, got %q", resp.TranscribedText)
	}
}

func TestProcessTextOnly(t *testing.T) {
	recognizer := &stubRecognizer{}
	processor := &stubProcessor{}
	r, _ := newTestRouter(t, recognizer, processor)

	rec, resp := postProcess(t, r, map[string]string{
		"browser_transcript": "typed or browser recognized",
	}, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if resp.TranscribedText != "typed or browser recognized" {
		t.Errorf("unexpected transcript: %q", resp.TranscribedText)
	}
	if recognizer.calls != 0 {
		t.Errorf("recognizer should not run without audio, got %d calls", recognizer.calls)
	}
	if processor.req.UserID != "anonymous" {
		t.Errorf("expected default user id, got %q", processor.req.UserID)
	}
	if processor.req.InputMethod != "voice" {
		t.Errorf("expected default input method, got %q", processor.req.InputMethod)
	}
}

func TestProcessRejectsEmptyRequest(t *testing.T) {
	r, _ := newTestRouter(t, &stubRecognizer{}, &stubProcessor{})

	rec, resp := postProcess(t, r, map[string]string{
		"browser_transcript": "",
	}, nil)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if resp.Error != "No audio found in request" {
		t.Errorf("unexpected error message: %q", resp.Error)
	}
}

func TestProcessProcessorError(t *testing.T) {
	processor := &stubProcessor{err: errors.New("model exploded")}
	r, _ := newTestRouter(t, &stubRecognizer{}, processor)

	rec, resp := postProcess(t, r, map[string]string{
		"browser_transcript": "some words",
	}, nil)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if resp.Success {
		t.Error("expected success to be false")
	}
	if resp.Error != "model exploded" {
		t.Errorf("unexpected error: %q", resp.Error)
	}
	if resp.RequestID == "" {
		t.Error("expected a request id even on failure")
	}
}

func TestProcessStructuredData(t *testing.T) {
	processor := &stubProcessor{resp: agent.Response{
		Reply: "Noted!",
		Data:  json.RawMessage(`{"intent":"note"}`),
	}}
	r, _ := newTestRouter(t, &stubRecognizer{}, processor)

	_, resp := postProcess(t, r, map[string]string{
		"browser_transcript": "remember the milk",
	}, nil)

	if resp.Result != "Noted!" {
		t.Errorf("unexpected result: %q", resp.Result)
	}
	if string(resp.Data) != `{"intent":"note"}` {
		t.Errorf("unexpected data: %s", resp.Data)
	}
}

func TestUploadArchivesFile(t *testing.T) {
	r, store := newTestRouter(t, &stubRecognizer{}, &stubProcessor{})

	body, contentType := multipartBody(t, nil, "file", "clip.ogg", []byte("ogg bytes"))
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Message string `json:"message"`
		Path    string `json:"path"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Message != "File saved" {
		t.Errorf("unexpected message: %q", resp.Message)
	}

	name := filepath.Base(resp.Path)
	if !strings.HasPrefix(name, "audio_") || !strings.HasSuffix(name, ".ogg") {
		t.Errorf("unexpected archive name: %s", name)
	}
	data, err := os.ReadFile(filepath.Join(store.Dir, name))
	if err != nil {
		t.Fatalf("reading archived file: %v", err)
	}
	if string(data) != "ogg bytes" {
		t.Errorf("archived content mismatch: %q", data)
	}
}

func TestUploadWithoutFile(t *testing.T) {
	r, _ := newTestRouter(t, &stubRecognizer{}, &stubProcessor{})

	body, contentType := multipartBody(t, map[string]string{"note": "x"}, "", "", nil)
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "No audio found in request") {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestHealth(t *testing.T) {
	r, _ := newTestRouter(t, &stubRecognizer{}, &stubProcessor{})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Status  string `json:"status"`
		Service string `json:"service"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Status != "healthy" || resp.Service != "agents-assemble" {
		t.Errorf("unexpected health payload: %+v", resp)
	}
}
