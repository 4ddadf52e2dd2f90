package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"

	"github.com/ShivaniNR/agents-assemble/agent"
	"github.com/ShivaniNR/agents-assemble/db"
	"github.com/ShivaniNR/agents-assemble/etc"
	"github.com/ShivaniNR/agents-assemble/stt"
	"github.com/ShivaniNR/agents-assemble/uploads"
)

// Uploaded recordings are short voice notes; 32 MB is generous.
const maxUploadBytes = 32 << 20

// noAudioMessage is the client-facing reply when a request carries
// neither audio nor a transcript.
const noAudioMessage = "No audio found in request"

// Server holds the pieces the voice endpoints work with. Queries may be
// nil, which disables request logging but never fails a request.
type Server struct {
	Transcriber *stt.Transcriber
	Processor   agent.Processor
	Uploads     *uploads.Store
	Queries     *db.Queries
	Logger      *log.Logger
}

func (s *Server) Routes(r chi.Router) {
	r.Post("/api/process", s.handleProcess)
	r.Post("/api/upload", s.handleUpload)
	r.Get("/api/health", s.handleHealth)
}

// handleProcess accepts one voice note as multipart form data: the
// browser's own speech recognition transcript, optional metadata, and
// optionally the recorded audio itself. When audio is present we
// transcribe it server-side and prefer that transcript; the browser's
// text is the fallback.
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	requestID := etc.NewFreshID()
	start := time.Now()

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.respond(w, http.StatusBadRequest, map[string]any{
			"error":      "expected multipart form data",
			"request_id": requestID,
		})
		return
	}

	browserTranscript := r.FormValue("browser_transcript")
	userID := r.FormValue("user_id")
	if userID == "" {
		userID = "anonymous"
	}
	inputMethod := r.FormValue("input_method")
	if inputMethod == "" {
		inputMethod = "voice"
	}
	preview := strings.EqualFold(r.FormValue("browser_preview"), "true")
	timestamp := etc.ParseTimestamp(r.FormValue("timestamp"))
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	s.Logger.Info(
		"processing input",
		"request_id", requestID,
		"user", userID,
		"method", inputMethod,
	)

	text, ok := s.transcript(r, requestID, browserTranscript)
	if !ok {
		s.respond(w, http.StatusBadRequest, map[string]any{
			"error":      noAudioMessage,
			"request_id": requestID,
		})
		return
	}

	result, err := s.Processor.Process(r.Context(), agent.Request{
		UserID:      userID,
		Text:        text,
		InputMethod: inputMethod,
		Timestamp:   timestamp,
		Preview:     preview,
	})
	if err != nil {
		s.Logger.Error("processing failed", "request_id", requestID, "error", err)
		s.respond(w, http.StatusInternalServerError, map[string]any{
			"success":    false,
			"error":      err.Error(),
			"request_id": requestID,
		})
		return
	}

	elapsed := time.Since(start).Milliseconds()
	s.record(r.Context(), db.InsertVoiceRequestParams{
		ID:          requestID,
		UserID:      userID,
		InputMethod: inputMethod,
		Transcript:  text,
		Result:      result.Reply,
		ElapsedMs:   elapsed,
	})

	payload := map[string]any{
		"success":            true,
		"result":             result.Reply,
		"transcribed_text":   text,
		"processing_time_ms": elapsed,
		"request_id":         requestID,
	}
	if result.Data != nil {
		payload["data"] = result.Data
	}
	s.respond(w, http.StatusOK, payload)
}

// transcript picks the text to process: the server-side transcription of
// the uploaded audio when there is any, otherwise the browser transcript.
// ok is false when the request carried neither.
func (s *Server) transcript(
	r *http.Request,
	requestID string,
	browserTranscript string,
) (string, bool) {
	file, _, err := r.FormFile("audio")
	if err != nil {
		if browserTranscript == "" {
			return "", false
		}
		s.Logger.Info("no audio file, using browser transcript", "request_id", requestID)
		return browserTranscript, true
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		s.Logger.Error("reading audio upload", "request_id", requestID, "error", err)
		return browserTranscript, browserTranscript != ""
	}

	// Keep the recording on disk while we work on it, the way the rest
	// of the pipeline expects uploads to exist.
	path, err := s.Uploads.SaveTemp(requestID, bytes.NewReader(audio))
	if err != nil {
		s.Logger.Error("saving temp audio", "request_id", requestID, "error", err)
		return browserTranscript, browserTranscript != ""
	}
	defer func() {
		if err := s.Uploads.Remove(path); err != nil {
			s.Logger.Warn("removing temp audio", "path", path, "error", err)
		}
	}()

	text := s.Transcriber.Transcribe(r.Context(), path, audio)
	if text == stt.FailedMessage && browserTranscript != "" {
		s.Logger.Info("transcription failed, using browser transcript", "request_id", requestID)
		return browserTranscript, true
	}
	return text, true
}

// handleUpload archives a recording without processing it.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		s.respond(w, http.StatusBadRequest, map[string]any{
			"error": noAudioMessage,
		})
		return
	}
	defer file.Close()

	name := uploads.TimestampName(filepath.Ext(header.Filename), time.Now())
	path, err := s.Uploads.Save(name, file)
	if err != nil {
		s.Logger.Error("archiving upload", "error", err)
		s.respond(w, http.StatusInternalServerError, map[string]any{
			"error": err.Error(),
		})
		return
	}

	s.Logger.Info("audio archived", "path", path, "bytes", header.Size)
	s.respond(w, http.StatusOK, map[string]any{
		"message": "File saved",
		"path":    path,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"service": "agents-assemble",
	})
}

func (s *Server) record(ctx context.Context, arg db.InsertVoiceRequestParams) {
	if s.Queries == nil {
		return
	}
	if err := s.Queries.InsertVoiceRequest(ctx, arg); err != nil {
		s.Logger.Warn("recording voice request", "request_id", arg.ID, "error", err)
	}
}

func (s *Server) respond(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.Logger.Error("encoding response", "error", err)
	}
}
