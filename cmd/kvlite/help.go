package kvlite

import (
	"fmt"
	"io"
	"os"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
	"golang.org/x/term"
)

const (
	helpIndent = "   "
	flagIndent = "  "
	flagGap    = 2
)

func termWidth(fallback int) int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	if cols := os.Getenv("COLUMNS"); cols != "" {
		if c, err := strconv.Atoi(cols); err == nil && c > 0 {
			return c
		}
	}
	return fallback
}

// wrapText breaks text into lines of at most width runes, keeping paragraphs apart.
func wrapText(text string, width int) []string {
	var out []string
	for _, para := range strings.Split(text, "\n\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			out = append(out, "")
			continue
		}
		line := words[0]
		for _, w := range words[1:] {
			if len(line)+1+len(w) > width {
				out = append(out, line)
				line = w
			} else {
				line += " " + w
			}
		}
		out = append(out, line, "")
	}
	if len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	if len(out) == 0 {
		out = append(out, "")
	}
	return out
}

func flagField(f cli.Flag, name string) reflect.Value {
	v := reflect.ValueOf(f)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	return v.FieldByName(name)
}

func flagLabel(f cli.Flag) (label, usage string) {
	parts := strings.SplitN(strings.TrimRight(f.String(), "\n"), "\t", 2)
	if len(parts) > 1 {
		usage = parts[1]
	}
	return parts[0], usage
}

// PrettierHelpPrinter replaces the cli help output with a grouped, colored layout.
// Flags are grouped by Category, with uncategorized flags under "Global Options".
func PrettierHelpPrinter() {
	sectionColor := color.New(color.FgGreen, color.Bold).SprintFunc()
	headerColor := color.New(color.FgCyan, color.Bold).SprintFunc()
	wrapWidth := min(160, termWidth(160)) - 4

	fallback := cli.HelpPrinter
	cli.HelpPrinter = func(w io.Writer, templ string, data interface{}) {
		var (
			flags    []cli.Flag
			cmds     []*cli.Command
			helpName string
			usage    string
			desc     string
			args     string
		)
		switch v := data.(type) {
		case *cli.App:
			flags, cmds, helpName, usage, desc = v.Flags, v.Commands, v.HelpName, v.Usage, v.Description
		case *cli.Command:
			flags, cmds, helpName, usage, desc, args = v.Flags, v.Subcommands, v.HelpName, v.Usage, v.Description, v.ArgsUsage
		default:
			fallback(w, templ, data)
			return
		}

		fmt.Fprintf(w, "%s\n%s%s - %s\n\n", sectionColor("NAME:"), helpIndent, helpName, usage)

		fmt.Fprintf(w, "%s\n%s%s", sectionColor("USAGE:"), helpIndent, helpName)
		if len(flags) > 0 {
			fmt.Fprint(w, " [options]")
		}
		if len(cmds) > 0 {
			fmt.Fprint(w, " command [arguments...]")
		}
		if args != "" {
			fmt.Fprintf(w, " %s", args)
		}
		fmt.Fprint(w, "\n\n")

		if desc != "" {
			fmt.Fprintln(w, sectionColor("DESCRIPTION:"))
			for _, line := range wrapText(desc, wrapWidth-len(helpIndent)) {
				fmt.Fprintf(w, "%s%s\n", helpIndent, line)
			}
			fmt.Fprint(w, "\n")
		}

		visible := make([]*cli.Command, 0, len(cmds))
		for _, c := range cmds {
			if c.Hidden || c.Name == "help" {
				continue
			}
			visible = append(visible, c)
		}
		if len(visible) > 0 {
			fmt.Fprintln(w, sectionColor("COMMANDS:"))
			for _, c := range visible {
				fmt.Fprintf(w, "%s%-12s  %s\n", helpIndent, c.Name, c.Usage)
			}
			fmt.Fprint(w, "\n")
		}

		byCategory := map[string][]cli.Flag{}
		categories := []string{}
		maxLabel := 0
		for _, f := range flags {
			if hidden := flagField(f, "Hidden"); hidden.IsValid() && hidden.Kind() == reflect.Bool && hidden.Bool() {
				continue
			}
			label, _ := flagLabel(f)
			if strings.HasPrefix(label, "--help") {
				continue
			}
			category := "Global Options"
			if c := flagField(f, "Category"); c.IsValid() && c.Kind() == reflect.String && c.String() != "" {
				category = c.String()
			}
			if _, ok := byCategory[category]; !ok {
				categories = append(categories, category)
			}
			byCategory[category] = append(byCategory[category], f)
			maxLabel = max(maxLabel, len(label))
		}
		if len(categories) == 0 {
			return
		}
		sort.Strings(categories)

		fmt.Fprintf(w, "%s\n\n", sectionColor("OPTIONS:"))
		for _, category := range categories {
			fmt.Fprintf(w, "%s%s\n", flagIndent, headerColor(category))
			for _, f := range byCategory[category] {
				label, usage := flagLabel(f)
				lines := wrapText(usage, max(20, wrapWidth-len(flagIndent)-maxLabel-flagGap))
				fmt.Fprintf(w, "%s%-*s%s%s\n", flagIndent, maxLabel, label, strings.Repeat(" ", flagGap), lines[0])
				cont := flagIndent + strings.Repeat(" ", maxLabel+flagGap+2)
				for _, line := range lines[1:] {
					fmt.Fprintf(w, "%s%s\n", cont, line)
				}
			}
			fmt.Fprint(w, "\n")
		}
	}
}
