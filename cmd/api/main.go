// Command api serves a read-only web catalog over a Calibre library.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/do/v2"

	"github.com/raindrop213/bibi-library/internal/api"
	"github.com/raindrop213/bibi-library/internal/di"
	"github.com/raindrop213/bibi-library/internal/logger"
	"github.com/raindrop213/bibi-library/internal/media/thumbs"
	"github.com/raindrop213/bibi-library/internal/store/sqlite"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run() error {
	injector := di.NewContainer()

	log, err := do.Invoke[*logger.Logger](injector)
	if err != nil {
		return err
	}

	server, err := do.Invoke[*api.Server](injector)
	if err != nil {
		return err
	}

	janitor, err := do.Invoke[*thumbs.Janitor](injector)
	if err != nil {
		return err
	}
	janitor.Start()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Info("shutdown signal received", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("server shutdown failed", "error", err)
	}
	if err := janitor.Stop(ctx); err != nil {
		log.Error("janitor shutdown failed", "error", err)
	}
	if st, err := do.Invoke[*sqlite.Store](injector); err == nil {
		st.Close()
	}

	log.Info("shutdown complete")
	return nil
}
