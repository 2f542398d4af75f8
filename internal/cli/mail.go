package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMailCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mail",
		Short: "Operate bot mail channels",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "poll <bot>",
		Short: "Read and answer new mail for a bot once",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := Build(ctx, a.cfg)
			if err != nil {
				return err
			}
			defer rt.Close(ctx)

			res, err := rt.Mail.Process(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "processed %d, failed %d, last uid %d\n", res.Processed, res.Failed, res.LastEmailUID)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "stop <bot>",
		Short: "Stop scheduled polling for a bot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := Build(ctx, a.cfg)
			if err != nil {
				return err
			}
			defer rt.Close(ctx)
			return rt.Mail.Unschedule(ctx, rt.MailScheduler, args[0])
		},
	})
	return cmd
}
