package main

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type (
	flagType interface {
		string | int | bool
	}

	// flagDef defines a command-line flag bound to a configuration key.
	flagDef[T flagType] struct {
		name         string
		viperKey     string
		defaultValue T
		description  string
	}
)

var (
	configFile string

	// Defaults live in config.example.yaml; a flag only wins when it is set.
	rootStringFlags = []flagDef[string]{
		{"network", "network", "", "Network entry under networks to deploy to"},
		{"output-dir", "output.dir", "", "Directory for deployment reports"},
		{"log-level", "log.level", "", "Log level (debug, info, warn, error)"},
		{"log-format", "log.format", "", "Log format (console or json)"},
	}

	devnetStringFlags = []flagDef[string]{
		{"image", "devnet.image", "", "Dev chain image"},
		{"build-context", "devnet.build-context", "", "Build the dev chain image from this directory"},
		{"container-name", "devnet.container-name", "", "Dev chain container name"},
	}

	devnetIntFlags = []flagDef[int]{
		{"port", "devnet.port", 0, "Host port for the dev chain RPC"},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default: config.yaml in the executable dir, . or ./configs)")

	mustDeclare(declareFlags(rootCmd.PersistentFlags(), rootStringFlags))
	mustDeclare(declareFlags(devnetCmd.PersistentFlags(), devnetStringFlags))
	mustDeclare(declareFlags(devnetCmd.PersistentFlags(), devnetIntFlags))

	deployCmd.PersistentFlags().StringVar(&overrides.rpcURL, "rpc-url", "", "Override the network RPC URL")
	deployCmd.PersistentFlags().StringVar(&overrides.privateKey, "private-key", "", "Override the operator private key")
	deployCmd.PersistentFlags().StringVar(&overrides.artifactsDir, "artifacts-dir", "", "Override the compiled artifacts directory")
}

func mustDeclare(err error) {
	if err != nil {
		panic(err)
	}
}

// declareFlags declares multiple flags and binds them to viper configuration keys.
func declareFlags[T flagType](fs *pflag.FlagSet, flags []flagDef[T]) error {
	for _, flag := range flags {
		if err := declareFlag(fs, flag.name, flag.viperKey, flag.defaultValue, flag.description); err != nil {
			return err
		}
	}
	return nil
}

// declareFlag declares a single flag and binds it to a viper configuration key.
// The type parameter T determines the flag type (string, int, or bool).
func declareFlag[T flagType](fs *pflag.FlagSet, flagName, viperKey string, defaultValue T, description string) error {
	var zero T
	switch any(zero).(type) {
	case string:
		fs.String(flagName, any(defaultValue).(string), description)
	case int:
		fs.Int(flagName, any(defaultValue).(int), description)
	case bool:
		fs.Bool(flagName, any(defaultValue).(bool), description)
	}
	return viper.BindPFlag(viperKey, fs.Lookup(flagName))
}
