// Command backup exports every quiz with its questions and options to
// backup_quizzes.json, for moving content between Supabase projects.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"net/url"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/Atubu88/quiz/internal/config"
	"github.com/Atubu88/quiz/internal/models"
	"github.com/Atubu88/quiz/internal/supabase"
)

func main() {
	out := flag.String("out", "backup_quizzes.json", "output file")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config load failed", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db := supabase.New(cfg.SupabaseURL, cfg.SupabaseAPIKey, logger)

	params := url.Values{}
	params.Set("select", "*,questions(*,options(*))")
	params.Set("order", "id.asc")

	var quizzes []models.Quiz
	if err := db.Select(ctx, "quizzes", params, &quizzes); err != nil {
		logger.Fatal("quizzes export failed", zap.Error(err))
	}

	file, err := os.Create(*out)
	if err != nil {
		logger.Fatal("output file", zap.Error(err))
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(quizzes); err != nil {
		logger.Fatal("encode failed", zap.Error(err))
	}

	total := 0
	for _, q := range quizzes {
		total += len(q.Questions)
	}
	logger.Info("backup written",
		zap.String("file", *out),
		zap.Int("quizzes", len(quizzes)),
		zap.Int("questions", total),
	)
}
