package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Atubu88/quiz/internal/config"
	"github.com/Atubu88/quiz/internal/handlers"
	"github.com/Atubu88/quiz/internal/middleware"
	"github.com/Atubu88/quiz/internal/services"
	"github.com/Atubu88/quiz/internal/supabase"
	"github.com/Atubu88/quiz/internal/telegram"
	"github.com/Atubu88/quiz/internal/ws"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config load failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db := supabase.New(cfg.SupabaseURL, cfg.SupabaseAPIKey, logger)
	hub := ws.NewHub(logger)

	authService := services.NewAuthService(db, cfg.BotToken, cfg.JWTSecret, logger)
	teamService := services.NewTeamService(db, logger)
	matchService := services.NewMatchService(db, teamService, hub, logger)
	progressService := services.NewProgressService(db, teamService, hub, logger)
	scoreboardService := services.NewScoreboardService(db, teamService, logger)
	quizService := services.NewQuizService(db, logger)
	resultService := services.NewResultService(db, logger)
	chatService := services.NewChatService(cfg.MistralAPIKey, cfg.MistralAPIURL, cfg.MistralModel, logger)

	authHandler := handlers.NewAuthHandler(authService)
	teamHandler := handlers.NewTeamHandler(teamService, matchService)
	matchHandler := handlers.NewMatchHandler(matchService)
	gameHandler := handlers.NewGameHandler(teamService, progressService, quizService, scoreboardService, matchService)
	quizHandler := handlers.NewQuizHandler(quizService)
	wsHandler := handlers.NewWSHandler(hub, matchService, logger)

	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Authorization"},
	}))

	router.POST("/login", authHandler.Login)
	router.POST("/widget-login", authHandler.WidgetLogin)
	router.GET("/ws/match/:match_id", wsHandler.Subscribe)

	authorized := router.Group("/", middleware.JWTAuth(authService))
	{
		authorized.GET("/me", authHandler.Me)

		authorized.GET("/categories", quizHandler.Categories)
		authorized.GET("/quizzes", quizHandler.List)

		authorized.POST("/team/create", teamHandler.Create)
		authorized.POST("/team/join", teamHandler.Join)
		authorized.POST("/team/leave", teamHandler.Leave)
		authorized.POST("/team/select-quiz", teamHandler.SelectQuiz)
		authorized.POST("/team/start", teamHandler.Start)
		authorized.GET("/team/of-user/:user_id", teamHandler.OfUser)
		authorized.GET("/team/:id", teamHandler.Get)
		authorized.DELETE("/team/:id", teamHandler.Delete)

		authorized.GET("/match/status/:match_id", matchHandler.Status)

		authorized.GET("/game/:match_id", gameHandler.Quiz)
		authorized.POST("/game/:match_id/answer", gameHandler.Answer)
		authorized.POST("/game/:match_id/complete", gameHandler.Complete)
		authorized.GET("/game/status/:match_id", gameHandler.Status)
	}

	if cfg.BotToken != "" {
		bot := telegram.NewBot(
			telegram.NewClient(cfg.BotToken, logger),
			cfg, authService, quizService, resultService, chatService, logger,
		)
		go func() {
			if err := bot.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Error("bot stopped", zap.Error(err))
			}
		}()
	} else {
		logger.Warn("BOT_TOKEN not set, running API only")
	}

	logger.Info("server listening", zap.String("port", cfg.ServerPort))
	if err := router.Run(":" + cfg.ServerPort); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}
