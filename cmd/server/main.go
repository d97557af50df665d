package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"meeting-assistant/internal/api"
	"meeting-assistant/internal/assistant"
	"meeting-assistant/internal/completion"
	"meeting-assistant/internal/config"
	"meeting-assistant/internal/database"
	"meeting-assistant/internal/logging"
	"meeting-assistant/internal/scheduling"
	"meeting-assistant/internal/store"
	"meeting-assistant/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg := config.LoadConfig()
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Server stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.InitGorm(cfg, logger)
	if err != nil {
		return err
	}
	users, err := database.LoadFixtures(cfg.FixturesPath)
	if err != nil {
		return err
	}
	if n, err := database.SeedMockUsers(db, users); err != nil {
		return err
	} else if n > 0 {
		logger.Info("Seeded mock users", zap.Int("count", n))
	}
	st := store.New(db)

	completer, err := completion.New(ctx, cfg)
	if err != nil {
		return err
	}
	logger.Info("Completion provider ready", zap.String("provider", cfg.CompletionProvider))
	asst := assistant.New(completer)

	hub := ws.NewHub(&ws.Dispatcher{Assistant: asst, Conversations: st}, logger.Named("ws"))
	manager := scheduling.NewManager(scheduling.Options{
		Extractor: completion.NewExtractor(completer),
		Directory: st,
		Sink:      st,
		Listener:  hub.ProgressListener(),
		Delay:     cfg.StepDelay,
		Location:  cfg.Location(),
		Logger:    logger,
	})

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.SetupRouter(api.Deps{
		Store:     st,
		Completer: completer,
		Assistant: asst,
		Manager:   manager,
		Hub:       hub,
		Logger:    logger.Named("http"),
	})
	srv := &http.Server{Addr: ":" + cfg.Port, Handler: router}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		logger.Info("Server starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "listen")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := manager.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Scheduling runs did not stop in time", zap.Error(err))
		}
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
