package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"jamalekbot/pkg/bus"
	"jamalekbot/pkg/dispatch"
	"jamalekbot/pkg/gateway"
	"jamalekbot/pkg/reply"
	"jamalekbot/pkg/session"
)

var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Run the bot",
	Long:  "Connects to the messaging network, answers directory commands and serves the status endpoints.",
	Run: func(cmd *cobra.Command, args []string) {
		_ = args

		cfg, log, err := loadRuntime("cmd.gateway")
		if err != nil {
			fmt.Printf("failed to start: %v\n", err)
			return
		}

		if err := cfg.Validate(); err != nil {
			log.Error("Gateway configuration invalid", "error", err)
			return
		}

		runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		tr, err := buildTransport(cfg, log)
		if err != nil {
			log.Error("Failed to configure transport", "error", err)
			return
		}

		dir, err := buildDirectory(runCtx, cfg, log)
		if err != nil {
			log.Error("Failed to configure directory", "error", err)
			return
		}

		store, err := session.NewFileStore(cfg.Session.AuthDir)
		if err != nil {
			log.Error("Failed to open credential store", "error", err)
			return
		}

		mb := bus.NewMessageBus()
		sup := session.NewSupervisor(tr, store, mb, session.Options{
			AuthDir:           store.Dir(),
			PrunePattern:      cfg.Session.PrunePattern,
			ReconnectDelay:    cfg.Session.ReconnectDelay(),
			SetupFailureDelay: cfg.Session.SetupFailureDelay(),
			Announce:          cfg.Session.ShouldAnnounce(),
		}, log)
		dispatcher := dispatch.New(mb, reply.NewSequencer(dir, sup, log), log)

		svc, err := gateway.NewService(cfg, sup, dispatcher, mb, log)
		if err != nil {
			log.Error("Failed to initialize gateway service", "error", err)
			return
		}

		log.Info("Gateway started", "transport", tr.Name(), "directory", describeDirectory(cfg), "port", cfg.Gateway.Port)
		if err := svc.Run(runCtx); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			log.Error("Gateway runtime failed", "error", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(gatewayCmd)
}
