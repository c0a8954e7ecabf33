package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/peakdefi/fund-deployer/configs"
	"github.com/peakdefi/fund-deployer/internal/logger"
)

const appName = "funddeploy"

var rootCmd = &cobra.Command{
	Use:           appName,
	Short:         "Deploys the fund factory suite and brings funds to operation",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(viper.GetViper(), configFile); err != nil {
			return err
		}

		if err := logger.Initialize(configs.Values.Log.Level, configs.Values.Log.Format); err != nil {
			return fmt.Errorf("invalid log settings: %w", err)
		}

		slog.With("network", configs.Values.Network, "config_file", viper.ConfigFileUsed()).Debug("configuration loaded")

		return nil
	},
}

// loadConfig layers the embedded defaults, the config file, the environment
// and bound flags, in increasing precedence, into configs.Values.
func loadConfig(v *viper.Viper, path string) error {
	if err := configs.LoadDefaults(v); err != nil {
		return err
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if execPath, err := os.Executable(); err == nil {
			v.AddConfigPath(filepath.Dir(execPath))
		}
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	// Defaults cover every key, so a missing file is fine unless one was asked for.
	if err := v.MergeInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := v.Unmarshal(&configs.Values); err != nil {
		return fmt.Errorf("unable to decode application config: %w", err)
	}

	return nil
}

func main() {
	rootCmd.AddCommand(deployCmd)
	rootCmd.AddCommand(devnetCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		os.Exit(1)
	}
}
