package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/stemsi/curriculum-backend/internal/config"
	"github.com/stemsi/curriculum-backend/internal/logger"
	"github.com/stemsi/curriculum-backend/internal/service"
	"golang.org/x/term"
)

func main() {
	var (
		subject string
		expiry  time.Duration
	)
	flag.StringVar(&subject, "subject", "", "Who the token is issued to (required)")
	flag.DurationVar(&expiry, "expiry", 0, "Token lifetime; defaults to JWT_EXPIRY_HOURS")
	flag.Parse()

	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()
	log := logger.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	if subject == "" {
		fmt.Fprintln(os.Stderr, "Usage: issue-token -subject <name> [-expiry 24h]")
		os.Exit(2)
	}
	if expiry > 0 {
		cfg.JWTExpiry = expiry
	}

	token, err := service.NewAuthService(cfg).IssueToken(subject, service.ScopeCurriculaWrite)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to issue token")
	}

	log.Info().
		Str("subject", subject).
		Str("scope", service.ScopeCurriculaWrite).
		Time("expires_at", time.Now().Add(cfg.JWTExpiry)).
		Msg("Token issued")

	// Print only the token when piped, so it can be captured by scripts.
	if term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Printf("Authorization: Bearer %s\n", token)
		return
	}
	fmt.Println(token)
}
