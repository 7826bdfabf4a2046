package kvlite

import (
	"fmt"

	"go.miragespace.co/kvlite/spec/kv"

	"github.com/urfave/cli/v2"
)

func getCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		ArgsUsage: "KEY",
		Usage:     "print the value stored under KEY",
		Action:    cmdGet,
	}
}

func cmdGet(ctx *cli.Context) error {
	key := ctx.Args().First()
	s, err := openStore(ctx, func(o *kv.Options) {
		o.ThrowOnGetKeyNotFound = true
	})
	if err != nil {
		return err
	}
	defer s.Close()

	val, err := s.Get(ctx.Context, key)
	if err != nil {
		return err
	}
	fmt.Fprintln(ctx.App.Writer, val)
	return nil
}

func setCommand() *cli.Command {
	return &cli.Command{
		Name:      "set",
		ArgsUsage: "KEY VALUE",
		Usage:     "store VALUE under KEY, replacing any previous value",
		Action:    cmdSet,
	}
}

func cmdSet(ctx *cli.Context) error {
	if ctx.NArg() != 2 {
		return fmt.Errorf("%w: expected KEY and VALUE", kv.ErrInvalidArgument)
	}
	s, err := openStore(ctx, nil)
	if err != nil {
		return err
	}
	defer s.Close()

	return s.Set(ctx.Context, ctx.Args().Get(0), ctx.Args().Get(1))
}

func rmCommand() *cli.Command {
	return &cli.Command{
		Name:      "rm",
		ArgsUsage: "KEY",
		Usage:     "remove KEY, or every key starting with --prefix",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "prefix",
				Usage: "remove all keys starting with `PREFIX` instead of a single key",
			},
		},
		Action: cmdRm,
	}
}

func cmdRm(ctx *cli.Context) error {
	s, err := openStore(ctx, nil)
	if err != nil {
		return err
	}
	defer s.Close()

	if !ctx.IsSet("prefix") {
		return s.Clear(ctx.Context, ctx.Args().First())
	}

	removed, err := s.ClearPrefix(ctx.Context, ctx.String("prefix"))
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.App.Writer, "removed %d key(s)\n", removed)
	return nil
}

func keysCommand() *cli.Command {
	return &cli.Command{
		Name:   "keys",
		Usage:  "list every key",
		Action: cmdKeys,
	}
}

func cmdKeys(ctx *cli.Context) error {
	s, err := openStore(ctx, nil)
	if err != nil {
		return err
	}
	defer s.Close()

	for key, err := range s.QueryAllKeys(ctx.Context) {
		if err != nil {
			return err
		}
		fmt.Fprintln(ctx.App.Writer, key)
	}
	return nil
}

func countCommand() *cli.Command {
	return &cli.Command{
		Name:   "count",
		Usage:  "print the number of keys",
		Action: cmdCount,
	}
}

func cmdCount(ctx *cli.Context) error {
	s, err := openStore(ctx, nil)
	if err != nil {
		return err
	}
	defer s.Close()

	count, err := s.KeyCount(ctx.Context)
	if err != nil {
		return err
	}
	fmt.Fprintln(ctx.App.Writer, count)
	return nil
}

func clearAllCommand() *cli.Command {
	return &cli.Command{
		Name:  "clear-all",
		Usage: "remove every key",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "yes",
				Usage: "confirm removing every key",
			},
		},
		Action: cmdClearAll,
	}
}

func cmdClearAll(ctx *cli.Context) error {
	if !ctx.Bool("yes") {
		return fmt.Errorf("refusing to remove every key without --yes")
	}
	s, err := openStore(ctx, nil)
	if err != nil {
		return err
	}
	defer s.Close()

	return s.ClearAll(ctx.Context)
}
