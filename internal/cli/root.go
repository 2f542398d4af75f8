// Package cli wires the runtime behind cobra commands.
package cli

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Chative-core-poc-v1/actionserver/internal/config"
	logx "github.com/Chative-core-poc-v1/actionserver/pkg/logger"
)

type app struct {
	envFile string
	service string
	cfg     *config.AppConfig
}

// NewRootCommand creates the root command with every subcommand attached.
func NewRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "actionserver",
		Short: "Custom action runtime for multi-tenant bots",
		Long: `actionserver executes the custom actions of dialog engine bots, runs the
job scheduler behind schedule actions and polls mail channels.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd.Name())
		},
	}
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "Path to a dotenv file loaded before reading the environment")

	root.AddCommand(newServeCommand(a))
	root.AddCommand(newImportCommand(a))
	root.AddCommand(newMailCommand(a))
	return root
}

func (a *app) load(service string) error {
	if a.envFile != "" {
		if err := godotenv.Load(a.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.service = service
	logx.Init(logx.LoggerOpts{Environment: cfg.Env, Service: service})
	return nil
}
