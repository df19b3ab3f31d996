package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"aquabot/pkg/bus"
	slackchannel "aquabot/pkg/channel/slack"
	"aquabot/pkg/command"
	"aquabot/pkg/commands"
	"aquabot/pkg/config"
	"aquabot/pkg/directory"
	"aquabot/pkg/gateway"
	"aquabot/pkg/logger"
	"aquabot/pkg/outbound"
	"aquabot/pkg/policy"
	"aquabot/pkg/router"
	"aquabot/pkg/secret"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Connect to Slack and answer messages",
	Long:  "Loads configuration, connects to Slack over socket mode, and runs the message loop until interrupted or the connection is lost.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_ = args

		cfg, err := config.LoadConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		appLogger, err := logger.New(cfg.Logging)
		if err != nil {
			return fmt.Errorf("initialize logger: %w", err)
		}
		slog.SetDefault(appLogger)

		runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return runBot(runCtx, cfg, appLogger)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runBot(ctx context.Context, cfg *config.Config, appLogger *slog.Logger) error {
	log := logger.Component(appLogger, "cmd.run")

	if err := secret.ResolveTokens(cfg); err != nil {
		return fmt.Errorf("resolve slack tokens: %w", err)
	}

	client, err := slackchannel.NewClient(cfg.APIToken, cfg.AppToken, false)
	if err != nil {
		return fmt.Errorf("configure slack client: %w", err)
	}
	adapter := slackchannel.NewAdapter(client, false, appLogger)

	self, err := adapter.Connect(ctx)
	if err != nil {
		return err
	}

	dir := directory.NewCache(slackchannel.NewDirectory(client, appLogger), appLogger)
	identity := resolveIdentity(ctx, dir, cfg.NormalizedBotName(), self, log)

	events := bus.NewMessageBus()
	defer events.Close()

	store := policy.Load(cfg.ChannelsPath(), appLogger)
	replies := outbound.New(store, slackchannel.NewPoster(client, appLogger), events, appLogger)

	registry := command.NewRegistry(appLogger)
	if err := commands.Register(registry, replies, appLogger); err != nil {
		return fmt.Errorf("register commands: %w", err)
	}

	svc, err := gateway.NewService(cfg, events, adapter, router.New(identity, dir, registry, events, appLogger), appLogger)
	if err != nil {
		return fmt.Errorf("initialize bot service: %w", err)
	}

	log.Info("Bot started",
		"bot", identity.Name,
		"bot_id", identity.ID,
		"commands", registry.Len(),
		"readonly_channels", store.Channels(),
	)
	if err := svc.Run(ctx); err != nil {
		log.Error("Bot stopped", "error", err)
		return err
	}

	log.Info("Bot stopped")
	return nil
}

// resolveIdentity looks the configured bot name up in the directory. The user
// the token authenticated as wins when the lookup misses or disagrees.
func resolveIdentity(ctx context.Context, dir directory.Service, botName string, self directory.UserRef, log *slog.Logger) router.Identity {
	if botName != "" {
		if user, ok := dir.FindUser(ctx, botName); ok {
			if self.ID == "" || user.ID == self.ID {
				return router.Identity{ID: user.ID, Name: user.Name}
			}
			log.Warn("bot-name does not match the authenticated user, using authenticated user", "bot_name", botName, "user_id", user.ID, "auth_user_id", self.ID)
			return router.Identity{ID: self.ID, Name: self.Name}
		}
		log.Warn("bot-name not found in workspace, using authenticated user", "bot_name", botName, "user_id", self.ID)
	}

	return router.Identity{ID: self.ID, Name: self.Name}
}
