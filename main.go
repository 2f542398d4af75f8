package main

import (
	"context"
	"os"

	"github.com/Chative-core-poc-v1/actionserver/internal/cli"
	logx "github.com/Chative-core-poc-v1/actionserver/pkg/logger"
)

func main() {
	if err := cli.NewRootCommand().ExecuteContext(context.Background()); err != nil {
		logx.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
