package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/StoreStation/EssentialsCraft/pkg/config"
	"github.com/StoreStation/EssentialsCraft/pkg/server"
	"github.com/StoreStation/EssentialsCraft/pkg/store"
	"github.com/StoreStation/EssentialsCraft/pkg/vanish"
)

// CLI flags override values loaded from the config file and environment.
// Pointer fields stay nil when the flag is not given.
type CLI struct {
	Config      string `help:"YAML configuration file." type:"path" default:"essentials.yml"`
	WriteConfig bool   `help:"Write the effective configuration to --config and exit."`

	Address         *string `help:"Server address to listen on."`
	MaxPlayers      *int    `help:"Maximum number of players."`
	MOTD            *string `name:"motd" help:"Server MOTD."`
	DefaultGameMode *string `name:"default-gamemode" help:"Default game mode (survival, creative, adventure, spectator)."`
	Database        *string `help:"Sqlite file for persisted vanish state. Empty keeps it in memory."`
	MissingPlayer   *string `help:"Tab list entries of disconnected players: visible or fail."`
	LogLevel        *string `help:"Log level (trace, debug, info, warn, error)."`
}

// apply copies the flags that were set onto cfg.
func (c *CLI) apply(cfg *config.Config) {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&cfg.Address, c.Address)
	set(&cfg.MOTD, c.MOTD)
	set(&cfg.DefaultGameMode, c.DefaultGameMode)
	set(&cfg.Vanish.Database, c.Database)
	set(&cfg.Vanish.MissingPlayer, c.MissingPlayer)
	set(&cfg.LogLevel, c.LogLevel)
	if c.MaxPlayers != nil {
		cfg.MaxPlayers = *c.MaxPlayers
	}
}

// serverConfig validates cfg and converts it for the server package.
func serverConfig(cfg config.Config) (server.Config, error) {
	gameMode, ok := server.ParseGameMode(cfg.DefaultGameMode)
	if !ok {
		return server.Config{}, fmt.Errorf("invalid default game mode: %s", cfg.DefaultGameMode)
	}
	missing, err := vanish.ParseMissingPolicy(cfg.Vanish.MissingPlayer)
	if err != nil {
		return server.Config{}, err
	}
	if cfg.MaxPlayers <= 0 {
		return server.Config{}, fmt.Errorf("max players must be positive, got %d", cfg.MaxPlayers)
	}
	return server.Config{
		Address:         cfg.Address,
		MaxPlayers:      cfg.MaxPlayers,
		MOTD:            cfg.MOTD,
		DefaultGameMode: gameMode,
		MissingPlayer:   missing,
	}, nil
}

func openStore(path string) (store.VanishStore, error) {
	if path == "" {
		return store.NewMemory(), nil
	}
	return store.Open(path)
}

func run(cli *CLI) error {
	cfg, err := config.Load(cli.Config)
	if err != nil {
		return err
	}
	cli.apply(&cfg)

	if cli.WriteConfig {
		if err := config.Write(cli.Config, cfg); err != nil {
			return err
		}
		log.Info().Str("path", cli.Config).Msg("wrote configuration")
		return nil
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	zerolog.SetGlobalLevel(level)

	srvConfig, err := serverConfig(cfg)
	if err != nil {
		return err
	}

	st, err := openStore(cfg.Vanish.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	srv := server.New(srvConfig, server.WithVanishStore(st))
	if err := srv.Start(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	log.Info().
		Str("address", srvConfig.Address).
		Int("maxPlayers", srvConfig.MaxPlayers).
		Str("missingPlayer", srvConfig.MissingPlayer.String()).
		Msg("EssentialsCraft server started (Minecraft 1.8.9, protocol 47)")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down server")
	case <-srv.StopChan():
		log.Info().Msg("shutting down server (internal)")
	}

	srv.Stop()
	log.Info().Msg("server stopped")
	return nil
}

func main() {
	consoleWriter := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	log.Logger = log.Output(consoleWriter)
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var cli CLI
	kong.Parse(&cli,
		kong.Name("essentials"),
		kong.Description("a Minecraft 1.8 server with vanish support"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}))

	if err := run(&cli); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}
