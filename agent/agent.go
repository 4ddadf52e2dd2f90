package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ShivaniNR/agents-assemble/llm"
)

// Request is one piece of user input on its way to the assistant, either
// transcribed speech or typed text.
type Request struct {
	UserID      string
	Text        string
	InputMethod string
	Timestamp   time.Time
	Preview     bool
}

// Response is the assistant's answer. Data carries the structured payload
// when the model produced one; Reply is always set.
type Response struct {
	Reply string
	Data  json.RawMessage
}

type Processor interface {
	Process(ctx context.Context, req Request) (Response, error)
}

// EchoProcessor answers with the input text itself. It stands in when no
// language model is configured.
type EchoProcessor struct{}

func (EchoProcessor) Process(_ context.Context, req Request) (Response, error) {
	return Response{Reply: req.Text}, nil
}

const systemPrompt = `You are the assistant behind a voice journaling app.
The user speaks short notes about their day; you receive the transcript.

Answer with a JSON object:

{"response": "<one or two warm, concise sentences back to the user>",
 "intent": "<note|reminder|question|other>",
 "topics": ["<short topic tags>"]}

Return only the JSON object.`

// LanguageModelProcessor sends the transcript to a language model and
// recovers the structured part of its answer.
type LanguageModelProcessor struct {
	model  llm.LanguageModel
	logger *log.Logger
}

func NewLanguageModelProcessor(
	model llm.LanguageModel,
	logger *log.Logger,
) *LanguageModelProcessor {
	return &LanguageModelProcessor{
		model:  model,
		logger: logger,
	}
}

func (p *LanguageModelProcessor) Process(
	ctx context.Context,
	req Request,
) (Response, error) {
	prompt := &llm.ChatCompletionRequest{
		SystemPrompt: systemPrompt,
		MaxTokens:    1024,
		Temperature:  0.2,
	}
	prompt.WithUserMessage(req.Text)

	stream, err := p.model.ChatCompletion(ctx, prompt)
	if err != nil {
		return Response{}, fmt.Errorf("chat completion: %w", err)
	}

	text, err := llm.Collect(stream)
	if err != nil {
		return Response{}, fmt.Errorf("streaming completion: %w", err)
	}

	resp := Response{Reply: strings.TrimSpace(text)}

	raw, ok := llm.ExtractJSON(text)
	if !ok {
		p.logger.Debug("model reply carried no JSON, using raw text", "user", req.UserID)
		return resp, nil
	}

	resp.Data = raw
	var structured struct {
		Response string `json:"response"`
	}
	if err := json.Unmarshal(raw, &structured); err == nil && structured.Response != "" {
		resp.Reply = structured.Response
	}
	return resp, nil
}
