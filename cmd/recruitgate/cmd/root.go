package cmd

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/NeuralTrust/RecruitGate/pkg/config"
	"github.com/NeuralTrust/RecruitGate/pkg/dependency_container"
	infraLogger "github.com/NeuralTrust/RecruitGate/pkg/infra/logger"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
}

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:           "recruitgate",
		Short:         "RecruitGate: recruitment session store and notifier",
		Long:          "recruitgate serves the recruitment session API and websocket feed, and runs the expiry, start and teardown jobs.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			loadEnvFile()
		},
	}
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "config", "directory holding config.yaml")

	rootCmd.AddCommand(
		newVersionCmd(),
		newServeCmd(opts),
		newSweepCmd(opts),
	)
	return rootCmd
}

func loadEnvFile() {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		log.Println("no .env file found, using system environment variables")
	}
}

// app bundles what every subcommand needs; close releases it in reverse order.
type app struct {
	cfg       *config.Config
	logger    *logrus.Logger
	container *dependency_container.Container
	logCloser io.Closer
}

func bootstrap(opts *rootOptions) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, logCloser, err := infraLogger.NewLogger(infraLogger.Config{
		Level: cfg.Log.Level,
		File:  cfg.Log.File,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	container, err := dependency_container.NewContainer(dependency_container.ContainerDI{
		Cfg:    cfg,
		Logger: logger,
	})
	if err != nil {
		_ = logCloser.Close()
		return nil, err
	}
	return &app{
		cfg:       cfg,
		logger:    logger,
		container: container,
		logCloser: logCloser,
	}, nil
}

func (a *app) close() {
	a.container.Close()
	_ = a.logCloser.Close()
}
