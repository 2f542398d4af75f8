package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Chative-core-poc-v1/actionserver/internal/action/server"
	logx "github.com/Chative-core-poc-v1/actionserver/pkg/logger"
)

func newServeCommand(a *app) *cobra.Command {
	var (
		addr          string
		withScheduler bool
		withMail      bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the action server",
		Long:  `Serves the action webhook and callback URLs, and optionally the job scheduler and the mail channel poller.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, err := Build(ctx, a.cfg)
			if err != nil {
				return err
			}
			defer rt.Close(ctx)

			if addr == "" {
				addr = a.cfg.ServerAddr
			}
			opts := server.Options{Dispatcher: rt.Dispatcher, Callbacks: rt.Callbacks}

			g, gctx := errgroup.WithContext(ctx)
			if withScheduler {
				runner := rt.Runner(rt.Scheduler, rt.Executor)
				opts.Scheduler = runner
				g.Go(func() error { return runner.Run(gctx) })
			}
			if withMail {
				mailRunner := rt.Runner(rt.MailScheduler, rt.MailExecutor)
				g.Go(func() error { return mailRunner.Run(gctx) })
			}
			srv := server.New(opts)
			g.Go(func() error { return srv.Run(gctx, addr) })

			if err := g.Wait(); err != nil {
				return err
			}
			logx.Info().Msg("action server stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (defaults to SERVER_ADDR)")
	cmd.Flags().BoolVar(&withScheduler, "scheduler", true, "Run the job scheduler in this process")
	cmd.Flags().BoolVar(&withMail, "mail", false, "Run the mail channel poller in this process")
	return cmd
}
