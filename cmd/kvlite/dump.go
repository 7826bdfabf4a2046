package kvlite

import (
	"fmt"
	"os"
	"time"

	"go.miragespace.co/kvlite/spec/kv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

func scanCommand() *cli.Command {
	return &cli.Command{
		Name:      "scan",
		ArgsUsage: "[PREFIX]",
		Usage:     "show every element whose key starts with PREFIX as a table",
		Action:    cmdScan,
	}
}

func cmdScan(ctx *cli.Context) error {
	s, err := openStore(ctx, nil)
	if err != nil {
		return err
	}
	defer s.Close()

	elements, err := s.FetchPrefix(ctx.Context, ctx.Args().First())
	if err != nil {
		return err
	}

	elementTable := table.NewWriter()
	elementTable.SetOutputMirror(ctx.App.Writer)
	elementTable.AppendHeader(table.Row{"Key", "Value", "Last Update"})
	for _, e := range elements {
		elementTable.AppendRow(table.Row{e.Key, e.Value, e.LastUpdateTime.UTC().Format(time.RFC3339)})
	}
	elementTable.AppendFooter(table.Row{"", "Total", len(elements)})

	elementTable.SetStyle(table.StyleDefault)
	elementTable.Style().Options.SeparateRows = true
	elementTable.Render()

	return nil
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:      "export",
		ArgsUsage: "[PREFIX]",
		Usage:     "write every element whose key starts with PREFIX as yaml",
		Action:    cmdExport,
	}
}

func cmdExport(ctx *cli.Context) error {
	s, err := openStore(ctx, nil)
	if err != nil {
		return err
	}
	defer s.Close()

	elements, err := s.FetchPrefix(ctx.Context, ctx.Args().First())
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(ctx.App.Writer)
	defer enc.Close()
	return enc.Encode(elements)
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		ArgsUsage: "FILE",
		Usage:     "store every element of a yaml FILE written by export",
		Action:    cmdImport,
	}
}

func cmdImport(ctx *cli.Context) error {
	path := ctx.Args().First()
	if path == "" {
		return fmt.Errorf("%w: expected FILE", kv.ErrInvalidArgument)
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	elements := make([]*kv.Element, 0)
	if err := yaml.NewDecoder(f).Decode(&elements); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	s, err := openStore(ctx, nil)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.Batch(ctx.Context, func(b kv.Store) error {
		return b.SetElements(ctx.Context, elements)
	}); err != nil {
		return err
	}
	fmt.Fprintf(ctx.App.Writer, "imported %d element(s)\n", len(elements))
	return nil
}
