package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ShivaniNR/agents-assemble/api"
	"github.com/ShivaniNR/agents-assemble/db"
	"github.com/ShivaniNR/agents-assemble/llm"
	"github.com/ShivaniNR/agents-assemble/setup"
	"github.com/ShivaniNR/agents-assemble/stt"
)

var logger *log.Logger

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(api.ServeCmd)
	rootCmd.AddCommand(stt.TranscribeCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(listRequestsCmd)
	rootCmd.AddCommand(setupCmd)

	// Add persistent flags
	rootCmd.PersistentFlags().
		String("google-api-key", "", "Google Cloud Speech API key")
	rootCmd.PersistentFlags().String("gemini-api-key", "", "Gemini API key")
	rootCmd.PersistentFlags().String("openai-api-key", "", "OpenAI API key")
	rootCmd.PersistentFlags().
		String("database-url", "", "Postgres connection URL")
	rootCmd.PersistentFlags().
		String("upload-dir", "", "Directory for uploaded audio")

	// Bind flags to viper
	viper.BindPFlag(
		"GOOGLE_API_KEY",
		rootCmd.PersistentFlags().Lookup("google-api-key"),
	)
	viper.BindPFlag(
		"GEMINI_API_KEY",
		rootCmd.PersistentFlags().Lookup("gemini-api-key"),
	)
	viper.BindPFlag(
		"OPENAI_API_KEY",
		rootCmd.PersistentFlags().Lookup("openai-api-key"),
	)
	viper.BindPFlag(
		"DATABASE_URL",
		rootCmd.PersistentFlags().Lookup("database-url"),
	)
	viper.BindPFlag(
		"UPLOAD_DIR",
		rootCmd.PersistentFlags().Lookup("upload-dir"),
	)
}

func initConfig() {
	viper.SetConfigName("assemble")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(filepath.Join(home, ".config", "assemble"))
	}
	viper.SetDefault("PORT", 8080)
	viper.SetDefault("UPLOAD_DIR", "uploads")
	viper.AutomaticEnv()

	err := viper.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			fmt.Printf("Error reading config file: %s\n", err)
		}
	}

	logger = log.New(os.Stdout)
}

var rootCmd = &cobra.Command{
	Use:   "assemble",
	Short: "Assemble turns voice notes into structured journal entries",
	Long:  `Assemble receives voice notes over HTTP, transcribes them with Google Cloud Speech, and hands the text to a language model for a structured reply.`,
}

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask the configured language model a question",
	Long:  `Send a one-off question to whichever language model is configured and render the answer as Markdown.`,
	Args:  cobra.MinimumNArgs(1),
	Run:   runAsk,
}

var listRequestsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List recent voice requests in a cool table",
	Long:  `List the most recent processed voice requests with their details in a formatted table.`,
	Run:   runListRequests,
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactively configure API keys and the database",
	Run: func(cmd *cobra.Command, args []string) {
		setup.RunSetup()
	},
}

func runAsk(cmd *cobra.Command, args []string) {
	mainLogger, talkLogger := createLoggers()

	ctx := context.Background()
	question := strings.Join(args, " ")

	model, cleanup, err := pickLanguageModel(ctx)
	if err != nil {
		mainLogger.Fatal("pick language model", "error", err.Error())
	}
	defer cleanup()

	talkLogger.Debug("asking", "question", question)

	req := &llm.ChatCompletionRequest{
		SystemPrompt: "You are a concise assistant. Answer in Markdown.",
		MaxTokens:    2048,
		Temperature:  0.7,
	}
	stream, err := model.ChatCompletion(ctx, req.WithUserMessage(question))
	if err != nil {
		mainLogger.Fatal("start completion", "error", err.Error())
	}

	answer, err := llm.Collect(stream)
	if err != nil {
		mainLogger.Fatal("read completion", "error", err.Error())
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(62),
	)
	if err != nil {
		mainLogger.Fatal("failed to create renderer", "error", err.Error())
	}

	rendered, err := renderer.Render(answer)
	if err != nil {
		mainLogger.Fatal("failed to render answer", "error", err.Error())
	}

	fmt.Print(rendered)
}

// pickLanguageModel prefers Gemini, then OpenAI. The cleanup func closes
// whatever the chosen client holds open.
func pickLanguageModel(
	ctx context.Context,
) (llm.LanguageModel, func(), error) {
	if key := viper.GetString("GEMINI_API_KEY"); key != "" {
		model, err := llm.NewGeminiLanguageModel(ctx, key)
		if err != nil {
			return nil, nil, err
		}
		return model, func() { model.Close() }, nil
	}
	if key := viper.GetString("OPENAI_API_KEY"); key != "" {
		return llm.NewOpenAILanguageModel(key), func() {}, nil
	}
	return nil, nil, errors.New(
		"missing GEMINI_API_KEY or OPENAI_API_KEY",
	)
}

func runListRequests(cmd *cobra.Command, args []string) {
	mainLogger, _ := createLoggers()

	conn, queries, err := db.OpenDatabase()
	if err != nil {
		mainLogger.Fatal("connect to database", "error", err.Error())
	}

	ctx := context.Background()
	defer conn.Close(ctx)

	requests, err := queries.ListVoiceRequests(ctx, 50)
	if err != nil {
		mainLogger.Fatal("fetch voice requests", "error", err.Error())
	}

	if len(requests) == 0 {
		fmt.Println("No voice requests found.")
		return
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Created At", "User", "Method", "Transcript", "Elapsed"})
	table.SetBorder(false)
	table.SetCenterSeparator("|")
	table.SetColumnSeparator("|")
	table.SetRowSeparator("-")
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)

	for _, request := range requests {
		table.Append([]string{
			request.ID,
			request.CreatedAt.Format("2006-01-02 15:04:05"),
			request.UserID,
			request.InputMethod,
			clip(request.Transcript, 48),
			fmt.Sprintf("%d ms", request.ElapsedMs),
		})
	}

	table.Render()
}

// clip shortens s to at most max runes for table display.
func clip(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}

func createLoggers() (mainLogger, talkLogger *log.Logger) {
	logLevel := log.DebugLevel

	logger.SetLevel(logLevel)
	logger.SetReportCaller(true)
	logger.SetCallerFormatter(
		func(file string, line int, funcName string) string {
			path, err := filepath.Rel(".", file)
			if err != nil {
				path = file
			}
			return fmt.Sprintf("%s:%d", path, line)
		},
	)

	styles := log.DefaultStyles()
	styles.Prefix = styles.Prefix.MarginTop(1).
		Bold(false).Transform(func(s string) string {
		return strings.TrimSuffix(s, ":")
	})
	styles.Levels[log.InfoLevel] = styles.Levels[log.InfoLevel].
		MaxWidth(6).
		MarginRight(1).
		Bold(false)
	styles.Levels[log.ErrorLevel] = styles.Levels[log.ErrorLevel].
		MaxWidth(6).
		MarginRight(1).
		Bold(false)
	styles.Message = styles.Message.Bold(true).Width(24)
	styles.Key = styles.Key.MarginLeft(1).
		Bold(false).
		Foreground(lipgloss.Color("#ff8800"))

	logger.SetStyles(styles)

	mainLogger = logger.With().WithPrefix("main")
	talkLogger = logger.With().WithPrefix("talk")

	return
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
