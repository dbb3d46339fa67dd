// Command validate checks curriculum documents offline. Diagnostics go to
// stderr; with -order the study order of each valid file goes to stdout.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/stemsi/curriculum-backend/internal/catalog"
	"github.com/stemsi/curriculum-backend/internal/loader"
	"github.com/stemsi/curriculum-backend/internal/logger"
	"github.com/stemsi/curriculum-backend/internal/validator"
)

func main() {
	var (
		format    string
		order     bool
		strict    bool
		logFormat string
	)
	flag.StringVar(&format, "format", "", "Document format (json, yaml); default from file extension")
	flag.BoolVar(&order, "order", false, "Print the study order of each valid file")
	flag.BoolVar(&strict, "strict", false, "Treat catalog warnings as failures")
	flag.StringVar(&logFormat, "log-format", "pretty", "Log format (pretty, json)")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: validate [flags] file...")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	log := logger.New(os.Stderr, "info", logFormat)
	validator.Setup()

	failed := 0
	for _, path := range flag.Args() {
		if !check(log.With().Str("file", path).Logger(), path, format, order, strict) {
			failed++
		}
	}

	if failed > 0 {
		log.Error().Int("failed", failed).Int("files", flag.NArg()).Msg("Validation failed")
		os.Exit(1)
	}
}

func check(log zerolog.Logger, path, format string, order, strict bool) bool {
	f, err := formatFor(path, format)
	if err != nil {
		log.Error().Err(err).Msg("Cannot determine format")
		return false
	}

	file, err := os.Open(path)
	if err != nil {
		log.Error().Err(err).Msg("Cannot open file")
		return false
	}
	defer file.Close()

	cur, err := loader.Decode(file, f)
	if err != nil {
		reportError(log, err)
		return false
	}

	cat := catalog.Build(cur, zerolog.Nop())
	for _, w := range cat.Warnings() {
		log.Warn().Str("kind", string(w.Kind)).Strs("courses", w.Courses).Msg(w.Message)
	}

	s := cat.Summary()
	log.Info().
		Int("courses", s.Courses).
		Int("nested", s.NestedCourses).
		Int("modules", s.Modules).
		Float64("credits", s.Credits).
		Bool("acyclic", s.Acyclic).
		Msg("Valid")

	if order {
		entries, err := cat.StudyOrder()
		if err != nil {
			log.Error().Err(err).Msg("No study order")
			return false
		}
		for _, e := range entries {
			fmt.Println(e.Key)
		}
	}

	return !strict || len(s.Warnings) == 0
}

func formatFor(path, flagValue string) (loader.Format, error) {
	if flagValue != "" {
		return loader.ParseFormat(flagValue)
	}
	return loader.FormatFromPath(path)
}

func reportError(log zerolog.Logger, err error) {
	var ve *validator.ValidationError
	if errors.As(err, &ve) {
		for _, fe := range ve.Errors {
			log.Error().Str("field", fe.Field).Str("rule", fe.Rule).Msg(fe.Message)
		}
		return
	}

	var de *loader.DecodeError
	if errors.As(err, &de) {
		for field, msg := range de.Fields() {
			log.Error().Str("field", field).Msg(msg)
		}
		return
	}

	log.Error().Err(err).Msg("Invalid document")
}
