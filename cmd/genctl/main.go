// Command genctl submits a prompt to a running API server and polls until the
// generation reaches a terminal outcome, printing the image URLs on success.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/YuppyChen/ai-images-creator/internal/apiclient"
	"github.com/YuppyChen/ai-images-creator/internal/domain"
	"github.com/YuppyChen/ai-images-creator/internal/poll"
)

func main() {
	_ = godotenv.Load()

	var (
		server   = flag.String("server", envOr("API_SERVER_URL", "http://localhost:8080"), "API server base URL")
		token    = flag.String("token", os.Getenv("API_TOKEN"), "bearer token")
		prompt   = flag.String("prompt", "", "text prompt to generate images for")
		interval = flag.Duration("interval", poll.DefaultInterval, "polling interval")
		timeout  = flag.Duration("timeout", 5*time.Minute, "overall deadline")
		verbose  = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	if *prompt == "" {
		fmt.Fprintln(os.Stderr, "usage: genctl -prompt \"a red tower\" [-server URL] [-token TOKEN]")
		os.Exit(2)
	}

	level := zerolog.WarnLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()

	client, err := apiclient.New(apiclient.Options{BaseURL: *server, Token: *token})
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid client options")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if credits, err := client.Credits(ctx); err == nil {
		fmt.Printf("credits: %d\n", credits)
	}

	done := make(chan domain.GenerationOutcome, 1)
	coordinator := poll.NewCoordinator(client, poll.Options{
		Interval: *interval,
		Logger:   logger,
		OnTerminal: func(taskID string, outcome domain.GenerationOutcome) {
			done <- outcome
		},
	})

	taskID, err := coordinator.Start(ctx, *prompt)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to start generation")
	}
	fmt.Printf("task %s submitted, polling...\n", taskID)

	select {
	case outcome := <-done:
		switch outcome.State {
		case domain.OutcomeSucceeded:
			fmt.Println("succeeded:")
			for _, url := range outcome.ImageURLs {
				fmt.Println("  " + url)
			}
		case domain.OutcomeFailed:
			fmt.Fprintf(os.Stderr, "failed: %s\n", outcome.Message)
			os.Exit(1)
		}
	case <-ctx.Done():
		coordinator.Stop()
		fmt.Fprintln(os.Stderr, "timed out waiting for task to finish")
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
