package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Chative-core-poc-v1/actionserver/internal/seed"
)

func newImportCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.yaml>...",
		Short: "Load bot definitions from YAML seed files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := Build(ctx, a.cfg)
			if err != nil {
				return err
			}
			defer rt.Close(ctx)

			for _, path := range args {
				f, err := os.Open(path)
				if err != nil {
					return err
				}
				doc, err := seed.Decode(f)
				f.Close()
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				sum, err := seed.Import(ctx, rt.Store, rt.Vault, doc)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				if doc.MailChannel != nil {
					if _, err := rt.Mail.Schedule(ctx, rt.MailScheduler, *doc.MailChannel); err != nil {
						return fmt.Errorf("%s: schedule mail channel: %w", path, err)
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: bot %s, %d actions, %d secrets, %d documents\n",
					path, doc.Bot, sum.Actions, sum.Secrets, sum.Documents)
			}
			return nil
		},
	}
}
