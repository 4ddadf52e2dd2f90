package stt

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var TranscribeCmd = &cobra.Command{
	Use:   "transcribe [file]",
	Short: "Transcribe an audio file through the fallback engine",
	Args:  cobra.ExactArgs(1),
	RunE:  runTranscribe,
}

func init() {
	TranscribeCmd.Flags().BoolP("verbose", "v", false, "Log every recognition attempt")
	TranscribeCmd.Flags().Bool("json", false, "Print raw recognition segments as JSON")
}

func runTranscribe(cmd *cobra.Command, args []string) error {
	path := args[0]
	audio, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("error reading audio file: %w", err)
	}

	logger := log.New(os.Stderr)
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		logger.SetLevel(log.DebugLevel)
	}

	ctx := context.Background()
	recognizer, err := NewGoogleRecognizer(ctx, viper.GetString("GOOGLE_API_KEY"))
	if err != nil {
		return fmt.Errorf("error creating recognizer: %w", err)
	}

	transcriber := NewTranscriber(recognizer, logger)

	if rawJSON, _ := cmd.Flags().GetBool("json"); rawJSON {
		segments, err := recognizer.Recognize(
			ctx,
			transcriber.primaryConfig(path),
			audio,
		)
		if err != nil {
			return fmt.Errorf("recognition failed: %w", err)
		}
		out, err := json.MarshalIndent(segments, "", "  ")
		if err != nil {
			return fmt.Errorf("error encoding segments: %w", err)
		}
		fmt.Println(string(out))
		return nil
	}

	fmt.Println(transcriber.Transcribe(ctx, path, audio))
	return nil
}
