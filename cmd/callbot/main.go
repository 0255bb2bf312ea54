package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dkeye/VoiceMatch/internal/adapters/rtc"
	"github.com/dkeye/VoiceMatch/internal/bot"
	"github.com/dkeye/VoiceMatch/internal/core"
	"github.com/dkeye/VoiceMatch/internal/logging"
)

var (
	serverURL string
	stunURLs  []string
	once      bool
	say       string
	loopback  bool
	logLevel  string
)

var rootCmd = &cobra.Command{
	Use:   "callbot",
	Short: "Headless call participant for VoiceMatch",
	Long:  `callbot connects to a VoiceMatch signaling server, waits for a partner, negotiates a WebRTC audio call and sends silence. It is useful for smoke tests and for pairing with a human when nobody else is online.`,
	RunE:  run,
}

func init() {
	rootCmd.Flags().StringVarP(&serverURL, "server", "s", "ws://localhost:8080/api/ws/signal", "signaling WebSocket URL")
	rootCmd.Flags().StringSliceVar(&stunURLs, "stun", []string{"stun:stun.l.google.com:19302"}, "STUN server URLs")
	rootCmd.Flags().BoolVar(&once, "once", false, "exit after the first call ends")
	rootCmd.Flags().StringVar(&say, "say", "", "text to inject into every call via speech synthesis")
	rootCmd.Flags().BoolVar(&loopback, "loopback", false, "gather loopback ICE candidates (same-host calls)")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "log level")
}

func run(cmd *cobra.Command, _ []string) error {
	zerolog.SetGlobalLevel(logging.ParseLevel(logLevel))

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	api, err := rtc.NewAPI(rtc.APIOptions{IncludeLoopback: loopback})
	if err != nil {
		return err
	}
	pcConfig := rtc.DefaultWebRTCConfig(stunURLs...)

	client, err := bot.Dial(ctx, serverURL)
	if err != nil {
		return err
	}
	defer client.Close()

	b := bot.New(client, func(label string) (core.MediaConnection, error) {
		conn, err := rtc.NewWebRTCConnection(api, pcConfig, label)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}, bot.Options{Once: once, Say: say})

	err = b.Run(ctx)
	log.Info().Str("module", "callbot").Int("calls", b.Calls()).Msg("callbot stopped")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func main() {
	logging.Bootstrap()

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Error().Err(err).Str("module", "callbot").Msg("callbot failed")
		os.Exit(1)
	}
}
