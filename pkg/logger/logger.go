package logx

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Chative-core-poc-v1/actionserver/internal/core"
)

var DefaultLoggerOpts = &LoggerOpts{
	Environment: core.Development,
}

type LoggerOpts struct {
	Environment core.Environment
	// Service is attached to every record so action server, scheduler and
	// mail poller output can be told apart when they share a sink.
	Service string
}

func safe(opts ...LoggerOpts) *LoggerOpts {
	if len(opts) == 0 {
		return DefaultLoggerOpts
	}
	return &opts[0]
}

func Init(opts ...LoggerOpts) {
	o := safe(opts...)
	if o.Environment.IsProduction() {
		ctx := zerolog.New(os.Stdout).With().Timestamp()
		if o.Service != "" {
			ctx = ctx.Str("service", o.Service)
		}
		log.Logger = ctx.Logger().Level(o.Environment.LogLevel())
		return
	}
	ctx := zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Caller()
	if o.Service != "" {
		ctx = ctx.Str("service", o.Service)
	}
	log.Logger = ctx.Logger().Level(o.Environment.LogLevel())
}

// With returns a child logger carrying the bot and action identifiers.
func With(bot, action string) zerolog.Logger {
	return log.Logger.With().Str("bot", bot).Str("action", action).Logger()
}

func Debug() *zerolog.Event {
	return log.Debug()
}

func Info() *zerolog.Event {
	return log.Info()
}

func Warn() *zerolog.Event {
	return log.Warn()
}

func Error() *zerolog.Event {
	return log.Error()
}

func Panic() *zerolog.Event {
	return log.Panic()
}

func Fatal() *zerolog.Event {
	return log.Fatal()
}
