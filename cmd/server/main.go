package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	router "github.com/dkeye/VoiceMatch/internal/adapters/http"
	sig "github.com/dkeye/VoiceMatch/internal/adapters/signal"
	"github.com/dkeye/VoiceMatch/internal/adapters/speech"
	"github.com/dkeye/VoiceMatch/internal/app"
	"github.com/dkeye/VoiceMatch/internal/config"
	"github.com/dkeye/VoiceMatch/internal/core"
	"github.com/dkeye/VoiceMatch/internal/logging"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Console logger until the configured one is installed.
	logging.Bootstrap()

	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("failed to load config")
		os.Exit(1)
	}
	logCloser := logging.Setup(cfg.Log)
	defer logCloser.Close()

	reg := app.NewRegistry(app.PolicyByName(cfg.Policy))
	mm := app.NewMatchmaker(reg)
	if cfg.WaitTimeout > 0 {
		go mm.RunExpiry(ctx, cfg.WaitTimeout)
	}

	var synth core.Synthesizer
	if cfg.TTS.URL != "" {
		synth = speech.NewHTTPSynthesizer(cfg.TTS)
		log.Info().Str("url", cfg.TTS.URL).Str("lang", cfg.TTS.Lang).Msg("speech synthesis enabled")
	}

	ctrl := sig.NewSignalWSController(cfg, mm, reg, synth)
	r := router.SetupRouter(ctx, cfg, ctrl)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("VoiceMatch server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
