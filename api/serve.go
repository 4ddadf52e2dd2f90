package api

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ShivaniNR/agents-assemble/agent"
	"github.com/ShivaniNR/agents-assemble/db"
	"github.com/ShivaniNR/agents-assemble/llm"
	"github.com/ShivaniNR/agents-assemble/stt"
	"github.com/ShivaniNR/agents-assemble/uploads"
)

func newLogger(prefix string) *log.Logger {
	return log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          prefix,
	})
}

// Serve wires the voice pipeline together from configuration and runs the
// HTTP server until it fails.
func Serve(port int) error {
	ctx := context.Background()
	logger := newLogger("http")

	recognizer, err := stt.NewGoogleRecognizer(
		ctx,
		viper.GetString("GOOGLE_API_KEY"),
	)
	if err != nil {
		return fmt.Errorf("failed to create speech recognizer: %w", err)
	}
	transcriber := stt.NewTranscriber(recognizer, newLogger("stt"))

	var queries *db.Queries
	if viper.GetString("DATABASE_URL") != "" {
		conn, q, err := db.OpenDatabase()
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer conn.Close(ctx)
		queries = q
	} else {
		logger.Warn("DATABASE_URL not set, request log disabled")
	}

	uploadDir := viper.GetString("UPLOAD_DIR")
	if uploadDir == "" {
		uploadDir = "uploads"
	}

	server := &Server{
		Transcriber: transcriber,
		Processor:   buildProcessor(ctx, logger),
		Uploads:     uploads.NewStore(uploadDir),
		Queries:     queries,
		Logger:      logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))
	server.Routes(r)

	logger.Info("http", "url", fmt.Sprintf("http://localhost:%d", port))
	return http.ListenAndServe(fmt.Sprintf(":%d", port), r)
}

// buildProcessor picks the best available language model, falling back to
// a plain echo when none is configured.
func buildProcessor(ctx context.Context, logger *log.Logger) agent.Processor {
	agentLogger := newLogger("agent")

	if key := viper.GetString("GEMINI_API_KEY"); key != "" {
		model, err := llm.NewGeminiLanguageModel(ctx, key)
		if err == nil {
			return agent.NewLanguageModelProcessor(model, agentLogger)
		}
		logger.Warn("gemini client unavailable", "error", err)
	}
	if key := viper.GetString("OPENAI_API_KEY"); key != "" {
		return agent.NewLanguageModelProcessor(
			llm.NewOpenAILanguageModel(key),
			agentLogger,
		)
	}

	logger.Warn("no language model configured, echoing transcripts")
	return agent.EchoProcessor{}
}

var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the voice processing HTTP server",
	Long:  `This command starts the HTTP server that receives voice notes from the browser.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := Serve(viper.GetInt("PORT")); err != nil {
			log.Fatal("Failed to start server", "error", err)
		}
	},
}

func init() {
	ServeCmd.Flags().IntP("port", "p", 8080, "Port to run the HTTP server on")
	viper.BindPFlag("PORT", ServeCmd.Flags().Lookup("port"))
}
