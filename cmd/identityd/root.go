package main

import (
	"github.com/MrEthical07/identity/internal/config"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configFile string
	envFile    string
}

// NewRootCmd creates the identityd command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "identityd",
		Short:         "User identity and authentication service",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "YAML config file")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file read before the environment (ignored when absent)")
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newMigrateCmd(opts))
	cmd.AddCommand(newHashPasswordCmd(opts))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// load resolves the configuration for cmd, flags included.
func (o *rootOptions) load(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(config.Options{
		File:   o.configFile,
		DotEnv: o.envFile,
		Flags:  cmd.Flags(),
	})
	if err != nil {
		return config.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("identityd %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}
