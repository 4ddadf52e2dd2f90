package setup

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/log"
	_ "github.com/lib/pq"
	"github.com/spf13/viper"

	"github.com/ShivaniNR/agents-assemble/db"
)

// RunSetup prompts for the credentials the voice pipeline uses and saves
// them to the config file. Every key is optional; leaving one blank just
// turns the feature it unlocks off.
func RunSetup() {
	log.Info("Starting assemble setup...")

	googleAPIKey := viper.GetString("GOOGLE_API_KEY")
	geminiAPIKey := viper.GetString("GEMINI_API_KEY")
	openaiAPIKey := viper.GetString("OPENAI_API_KEY")
	databaseURL := viper.GetString("DATABASE_URL")

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Enter your Google Cloud Speech API Key").
				Value(&googleAPIKey),
			huh.NewInput().
				Title("Enter your Gemini API Key").
				Value(&geminiAPIKey),
			huh.NewInput().
				Title("Enter your OpenAI API Key").
				Value(&openaiAPIKey),
			huh.NewInput().
				Title("Enter your Postgres URL (blank disables request history)").
				Value(&databaseURL),
		),
	)

	err := form.Run()
	if err != nil {
		log.Fatal("Error during setup", "error", err)
	}

	if databaseURL != "" {
		checkDatabase(databaseURL)
	}

	// Save the configuration
	viper.Set("GOOGLE_API_KEY", googleAPIKey)
	viper.Set("GEMINI_API_KEY", geminiAPIKey)
	viper.Set("OPENAI_API_KEY", openaiAPIKey)
	viper.Set("DATABASE_URL", databaseURL)

	err = writeConfig()
	if err != nil {
		log.Fatal("Error saving configuration", "error", err)
	}

	log.Info("Setup completed successfully!")
}

// checkDatabase verifies the Postgres URL actually answers, offering to
// create the database when it does not.
func checkDatabase(databaseURL string) {
	conn, err := sql.Open("postgres", databaseURL)
	if err != nil {
		log.Fatal("Failed to open database", "error", err)
	}
	defer conn.Close()

	if err := conn.Ping(); err != nil {
		log.Error("Failed to connect to database", "error", err)

		createDB := false
		huh.NewConfirm().
			Title("Do you want to create the database?").
			Value(&createDB).
			Run()

		if !createDB {
			log.Fatal("Database connection is required to continue")
		}
		if err := createDatabase(databaseURL); err != nil {
			log.Fatal("Failed to create database", "error", err)
		}
		return
	}

	log.Info("Successfully connected to the database")
}

func createDatabase(databaseURL string) error {
	name := databaseName(databaseURL)

	log.Info("Creating database...", "name", name)

	cmd := exec.Command("createdb", name)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err := cmd.Run()
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}

	log.Info("Database created successfully")

	// Initialize the database schema
	log.Info("Initializing database schema...")

	conn, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open new database: %w", err)
	}
	defer conn.Close()

	_, err = conn.Exec(db.Schema)
	if err != nil {
		return fmt.Errorf("failed to initialize database schema: %w", err)
	}

	log.Info("Database schema initialized successfully")

	return nil
}

// databaseName pulls the database name out of a Postgres URL. The
// createdb call needs a bare name, not a connection string.
func databaseName(databaseURL string) string {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return "assemble"
	}
	name := strings.TrimPrefix(u.Path, "/")
	if name == "" {
		return "assemble"
	}
	return name
}

// writeConfig updates the config file in place, creating it on first run.
func writeConfig() error {
	err := viper.WriteConfig()
	if err == nil {
		return nil
	}
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		return viper.SafeWriteConfig()
	}
	return err
}
