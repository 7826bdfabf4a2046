package kvlite

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"moul.io/zapfilter"
)

var (
	Build = "head"
)

func NewApp() *cli.App {
	return &cli.App{
		Name:            "kvlite",
		Usage:           fmt.Sprintf("build for %s on %s", runtime.GOARCH, runtime.GOOS),
		Version:         Build,
		HideHelpCommand: true,
		Description:     "inspect and edit kvlite key value databases",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "db",
				Aliases:  []string{"d"},
				Usage:    "path to the database file",
				EnvVars:  []string{"KVLITE_DB"},
				Category: "Database Options",
			},
			&cli.BoolFlag{
				Name:     "memory",
				Usage:    "use a throwaway in-memory database",
				Category: "Database Options",
			},
			&cli.StringFlag{
				Name:     "config",
				Aliases:  []string{"c"},
				Usage:    "path to config yaml file, keys match the store options",
				Category: "Database Options",
			},
			&cli.BoolFlag{
				Name:     "quick-verify",
				Usage:    "run quick_check instead of integrity_check on open",
				Category: "Database Options",
			},
			&cli.BoolFlag{
				Name:     "no-verify",
				Usage:    "skip the integrity check on open",
				Category: "Database Options",
			},
			&cli.StringFlag{
				Name:     "cache-dir",
				Usage:    "directory to cache the compiled SQLite module in",
				EnvVars:  []string{"KVLITE_CACHE_DIR"},
				Category: "Engine Options",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Value: false,
				Usage: "enable verbose logging",
			},
			&cli.BoolFlag{
				Name:  "trace-sql",
				Value: false,
				Usage: "log every SQL statement",
			},
		},
		Commands: []*cli.Command{
			getCommand(),
			setCommand(),
			rmCommand(),
			keysCommand(),
			countCommand(),
			scanCommand(),
			clearAllCommand(),
			verifyCommand(),
			exportCommand(),
			importCommand(),
		},
		Before:   ConfigLogger,
		Metadata: map[string]interface{}{},
	}
}

// ConfigLogger builds the logger every command uses, unless one was provided in the app metadata.
func ConfigLogger(ctx *cli.Context) error {
	if _, ok := ctx.App.Metadata["logger"].(*zap.Logger); ok {
		return nil
	}

	verbose := ctx.Bool("verbose")
	traceSQL := ctx.Bool("trace-sql")

	var config zap.Config
	if verbose {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
	}
	if traceSQL {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	// Redirect everything to stderr
	config.OutputPaths = []string{"stderr"}
	logger, err := config.Build()
	if err != nil {
		return err
	}

	// --trace-sql alone should not bring in the rest of the debug output
	logger = logger.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapfilter.NewFilteringCore(core, func(e zapcore.Entry, f []zapcore.Field) bool {
			if verbose || e.Level > zapcore.DebugLevel {
				return true
			}
			return strings.HasSuffix(e.LoggerName, "gorm")
		})
	}))

	ctx.App.Metadata["logger"] = logger
	return nil
}

func getLogger(ctx *cli.Context) *zap.Logger {
	if logger, ok := ctx.App.Metadata["logger"].(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}
