package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/ankurkotwal/metabind/mbind"
	"github.com/ankurkotwal/metabind/mbind/common"
)

var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

func main() {
	flags, configFile := parseCliArgs(os.Args[1:])
	cfg, err := common.LoadConfig(configFile, flags)
	if err != nil {
		log.Fatal(err)
	}
	logger := common.NewLog()
	services, err := mbind.NewServices(cfg, logger)
	if err != nil {
		logger.Fatal("Error starting: %s", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), shutdownSignals...)
	defer cancel()
	done := make(chan struct{})
	go func() {
		services.Run(ctx)
		close(done)
	}()

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: mbind.GetServer(services)}
	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()
	logger.Msg("%s %s listening on :%s", cfg.AppName, cfg.Version, cfg.Port)

	select {
	case <-ctx.Done():
		logger.Msg("Shutting down...")
	case err := <-serverErr:
		logger.Err("HTTP server: %s", err)
		cancel()
	}
	<-done

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Err("HTTP server shutdown: %s", err)
	}
}

func parseCliArgs(args []string) (*pflag.FlagSet, string) {
	flags := pflag.NewFlagSet("metabind", pflag.ExitOnError)
	flags.Usage = func() {
		fmt.Printf("Usage: %s [flags]\n\n", filepath.Base(os.Args[0]))
		fmt.Printf("Serves the capture and binding API for Star Citizen actionmaps.\n")
		flags.PrintDefaults()
	}
	flags.BoolP("debug", "d", false, "Enable debug mode & register pprof handlers.")
	configFile := flags.StringP("config", "c", common.DefaultConfigFile, "Configuration file.")
	flags.StringP("port", "p", "8080", "Port to listen on.")
	flags.Bool("sdl", false, "Read joysticks and gamepads through SDL3.")
	// ExitOnError means Parse never returns an error
	_ = flags.Parse(args)
	return flags, *configFile
}
