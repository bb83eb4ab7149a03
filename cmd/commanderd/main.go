package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/PerkLab/SlicerMatlabBridge/internal/bridge"
	"github.com/PerkLab/SlicerMatlabBridge/internal/commander"
	"github.com/PerkLab/SlicerMatlabBridge/internal/config"
	"github.com/PerkLab/SlicerMatlabBridge/internal/observability"
)

func main() {
	path := flag.String("config", "cmd/commanderd/config.toml", "bridge config path")
	flag.Parse()

	observability.InitLogger("commanderd")
	gin.SetMode(gin.ReleaseMode)

	cfg, err := config.LoadBridgeConfig(*path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "commanderd: %v\n", err)
		os.Exit(1)
	}
	cc, err := cfg.Commander.Commander()
	if err != nil {
		fmt.Fprintf(os.Stderr, "commanderd: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("endpoint", cc.Endpoint.Address()).Int("retry_attempts", cc.RetryAttempts).Msg("commanderd: starting")
	srv := bridge.New(cfg, commander.NewExecutor(cc))
	if err := srv.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "commanderd: %v\n", err)
		os.Exit(1)
	}
}
