package kvlite

import (
	"fmt"

	"go.miragespace.co/kvlite/kv/sqlite3"
	"go.miragespace.co/kvlite/spec/kv"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v2"
)

func verifyCommand() *cli.Command {
	return &cli.Command{
		Name:   "verify",
		Usage:  "check the schema version and integrity of the database",
		Action: cmdVerify,
	}
}

func cmdVerify(ctx *cli.Context) error {
	// the check below reports problems instead of only logging them
	s, err := openStore(ctx, func(o *kv.Options) {
		o.VerifyOnOpen = false
	})
	if err != nil {
		return err
	}
	defer s.Close()

	okColor := color.New(color.FgGreen, color.Bold).SprintFunc()
	badColor := color.New(color.FgRed, color.Bold).SprintFunc()

	engine, err := s.EngineVersion(ctx.Context)
	if err != nil {
		return err
	}

	infoTable := table.NewWriter()
	infoTable.SetOutputMirror(ctx.App.Writer)
	infoTable.AppendRow(table.Row{"Database", s.DatabaseName()})
	infoTable.AppendRow(table.Row{"Engine", engine})
	pragmas := []string{
		sqlite3.PragmaUserVersion,
		sqlite3.PragmaSchemaVersion,
		sqlite3.PragmaEncoding,
		sqlite3.PragmaJournalMode,
		sqlite3.PragmaBusyTimeout,
		sqlite3.PragmaPageSize,
		sqlite3.PragmaPageCount,
		sqlite3.PragmaFreelistCount,
	}
	for _, name := range pragmas {
		value, err := s.Pragma(ctx.Context, name)
		if err != nil {
			return err
		}
		infoTable.AppendRow(table.Row{name, value})
	}
	infoTable.SetStyle(table.StyleDefault)
	infoTable.Render()

	quick := ctx.Bool("quick-verify")
	problems, err := s.CheckIntegrity(ctx.Context, quick)
	if err != nil {
		return err
	}
	if len(problems) == 0 {
		fmt.Fprintf(ctx.App.Writer, "integrity: %s\n", okColor("ok"))
		return nil
	}
	for _, p := range problems {
		fmt.Fprintf(ctx.App.Writer, "integrity: %s\n", badColor(p))
	}
	return fmt.Errorf("%w: integrity check reported %d problem(s)", kv.ErrCorrupt, len(problems))
}
