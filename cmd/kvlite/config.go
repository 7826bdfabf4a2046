package kvlite

import (
	"fmt"
	"os"
	"regexp"

	"go.miragespace.co/kvlite/kv/sqlite3"
	"go.miragespace.co/kvlite/spec/kv"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

var envPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR} with the value of the environment variable, or "" when unset.
func expandEnvVars(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envPattern.FindStringSubmatch(match)[1])
	})
}

// LoadOptions reads a yaml config file on top of the default store options.
func LoadOptions(path string) (kv.Options, error) {
	opts := kv.DefaultOptions()
	if path == "" {
		return opts, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return opts, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), &opts); err != nil {
		return opts, fmt.Errorf("parsing config file: %w", err)
	}
	return opts, nil
}

// openStore opens the database selected by the global flags. adjust may override options
// a command depends on.
func openStore(ctx *cli.Context, adjust func(*kv.Options)) (*sqlite3.Store, error) {
	logger := getLogger(ctx)

	base, err := LoadOptions(ctx.String("config"))
	if err != nil {
		return nil, err
	}

	if err := sqlite3.ConfigureRuntime(ctx.String("cache-dir")); err != nil {
		return nil, fmt.Errorf("configuring sqlite runtime: %w", err)
	}

	s, err := sqlite3.Open(ctx.Context, func(o *kv.Options) {
		*o = base
		o.Logger = logger.Named("kv")
		if ctx.IsSet("db") {
			o.DatabaseName = ctx.String("db")
		}
		if ctx.Bool("memory") {
			o.InMemory = true
		}
		if ctx.Bool("trace-sql") {
			o.TraceSQL = true
		}
		if ctx.Bool("quick-verify") {
			o.QuickVerify = true
		}
		if ctx.Bool("no-verify") {
			o.VerifyOnOpen = false
		}
		if adjust != nil {
			adjust(o)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return s, nil
}
