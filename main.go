package main

import (
	"fmt"
	"os"

	"github.com/gookit/color"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/parthashirolkar/latch/auth"
	"github.com/parthashirolkar/latch/command"
	"github.com/parthashirolkar/latch/engine"
	"github.com/parthashirolkar/latch/health"
	"github.com/parthashirolkar/latch/vaultfile"
)

var version = "0.1.0"

type uiContext struct {
	vaultPath  string
	shortPath  string
	eng        *engine.Engine
	dispatcher *command.Dispatcher

	in lineEditor
}

func main() {
	parseCli()

	if flagNoColor {
		color.Disable()
	}

	ctx, err := setup()
	if err != nil {
		fmt.Printf("error occurred: %+v\n", err)
		os.Exit(1)
	}

	switch {
	case versionCmd.Used:
		fmt.Println("latch version", version)
	case genCmd.Used:
		err = ctx.runGen()
	case analyzeCmd.Used:
		err = ctx.runAnalyze()
	default:
		err = ctx.runRepl()
	}

	if err != nil {
		if err != ErrInterrupt {
			fmt.Printf("error occurred: %+v\n", err)
		}
		os.Exit(1)
	}
}

func setup() (*uiContext, error) {
	path := flagFile
	if path == "" {
		var err error
		path, err = vaultfile.DefaultPath()
		if err != nil {
			return nil, errors.Wrap(err, "failed to resolve vault path")
		}
	}

	store := vaultfile.New(path)

	opts := []engine.Option{}
	if kc, err := auth.SystemKeychain(); err == nil {
		opts = append(opts, engine.WithKeychain(kc))
	}
	eng := engine.New(store, opts...)

	dispatchOpts := []command.Option{
		command.WithBreachClient(health.NewBreachClient(os.Getenv("LATCH_HIBP_URL"))),
	}
	if logger, ok := setupLogger(); ok {
		dispatchOpts = append(dispatchOpts, command.WithLogger(logger))
	}

	return &uiContext{
		vaultPath:  path,
		shortPath:  shortPath(path),
		eng:        eng,
		dispatcher: command.New(eng, dispatchOpts...),
	}, nil
}

// setupLogger reads $LATCH_LOG for a zerolog level. Logging stays off
// unless asked for; the log carries command names and outcomes only.
func setupLogger() (zerolog.Logger, bool) {
	levelStr := os.Getenv("LATCH_LOG")
	if levelStr == "" {
		return zerolog.Nop(), false
	}

	level, err := zerolog.ParseLevel(levelStr)
	if err != nil {
		level = zerolog.InfoLevel
	}

	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger(), true
}
