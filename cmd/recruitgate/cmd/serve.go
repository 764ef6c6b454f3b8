package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/NeuralTrust/RecruitGate/pkg/infra/cache/channel"
	"github.com/NeuralTrust/RecruitGate/pkg/server"
	"github.com/NeuralTrust/RecruitGate/pkg/server/router"
	"github.com/spf13/cobra"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, websocket feed and scheduler",
		RunE: func(_ *cobra.Command, _ []string) error {
			a, err := bootstrap(opts)
			if err != nil {
				return err
			}
			defer a.close()
			return serve(a)
		},
	}
}

func serve(a *app) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c := a.container

	go func() {
		a.logger.Info("starting listening recruit events...")
		c.EventListener.Listen(ctx, channel.RecruitEventsChannel)
	}()

	if a.cfg.Scheduler.Enabled {
		go c.LeaderElector.Run(ctx)
		c.Scheduler.Start()
		defer c.Scheduler.Stop()
	}

	srv := server.NewBaseServer(a.cfg, a.logger).WithRouters(
		router.NewAPIRouter(c.MiddlewareTransport, c.HandlerTransport, c.FeedHandler),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-quit:
	}

	a.logger.Info("shutting down server...")
	if err := srv.Shutdown(); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}
	a.logger.Info("server gracefully stopped")
	return nil
}
