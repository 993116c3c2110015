// Package cmd implements the scan-registry command-line interface.
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jonesrussell/north-cloud/scan-registry/internal/bootstrap"
	"github.com/jonesrussell/north-cloud/scan-registry/internal/config"
	"github.com/jonesrussell/north-cloud/scan-registry/internal/logger"
)

var (
	// cfgFile holds the path to the configuration file.
	cfgFile string

	// Debug enables debug logging for all commands.
	Debug bool

	storeBackend string

	rootCmd = &cobra.Command{
		Use:   "scan-registry",
		Short: "Site, variant and scan instruction registry",
		Long: `scan-registry stores the sites the crawlers scan, the history of their
crawler configuration variants, and the server instructions that schedule
scanning runs.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
)

// Execute runs the root command.
func Execute() error {
	// .env is optional
	_ = godotenv.Load()

	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	// Assigned here: initConfig reads rootCmd's flags.
	rootCmd.PersistentPreRunE = func(*cobra.Command, []string) error {
		if err := initConfig(); err != nil {
			return fmt.Errorf("failed to initialize configuration: %w", err)
		}
		return nil
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is ./config.yaml or ./config/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&Debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&storeBackend, "store", "",
		"document store backend: mongo or memory (overrides store.backend)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "scan-registry version %s\n", bootstrap.Version)
		},
	})
	rootCmd.AddCommand(newIndexesCommand(), newSitesCommand(), newInstructionsCommand())
}

// initConfig reads the config file and environment variables once flags are
// parsed.
func initConfig() error {
	if cfgFile == "" {
		cfgFile = os.Getenv("CONFIG_PATH")
	}
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
	}

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	config.SetViperDefaults(viper.GetViper())

	if err := viper.ReadInConfig(); err != nil {
		// Config file is optional; defaults and environment variables apply.
		fmt.Fprintf(os.Stderr, "Warning: config file not found: %v (using defaults and environment variables)\n", err)
	}

	if err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		return fmt.Errorf("failed to bind debug flag: %w", err)
	}
	if err := viper.BindPFlag("store.backend", rootCmd.PersistentFlags().Lookup("store")); err != nil {
		return fmt.Errorf("failed to bind store flag: %w", err)
	}
	if err := viper.BindEnv("logging.level", "LOG_LEVEL"); err != nil {
		return fmt.Errorf("failed to bind LOG_LEVEL: %w", err)
	}
	return nil
}

// newApp loads the configuration and wires the application for one command.
func newApp(cmd *cobra.Command) (*bootstrap.App, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}
	app, err := bootstrap.New(cmd.Context(), cfg, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get dependencies: %w", err)
	}
	return app, nil
}

// withApp runs fn against a freshly wired application and closes it.
func withApp(fn func(cmd *cobra.Command, app *bootstrap.App, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		cmd.SetContext(logger.WithFields(
			logger.WithContext(cmd.Context(), app.Logger),
			logger.String("command", cmd.CommandPath()),
		))
		defer func() {
			if closeErr := app.Close(context.Background()); closeErr != nil {
				logger.FromContext(cmd.Context()).Warn("Failed to close application", logger.Error(closeErr))
			}
		}()
		return fn(cmd, app, args)
	}
}
