package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type tone int

const (
	toneInfo tone = iota
	toneOK
	toneWarn
	toneError
)

var toneStyles = map[tone]struct {
	tag   string
	color text.Color
}{
	toneInfo:  {"INFO", text.FgBlue},
	toneOK:    {"OK", text.FgGreen},
	toneWarn:  {"WARN", text.FgYellow},
	toneError: {"ERROR", text.FgRed},
}

const labelWidth = 20

// printer writes aligned status lines, colored when w is a terminal.
type printer struct {
	w     io.Writer
	color bool
}

func newPrinter(w io.Writer) printer {
	return printer{w: w, color: isTerminal(w)}
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func (p printer) section(title string) {
	heading := "== " + strings.TrimSpace(title) + " =="
	rule := strings.Repeat("-", len(heading))
	if p.color {
		heading, rule = text.FgBlue.Sprint(heading), text.FgBlue.Sprint(rule)
	}
	fmt.Fprintln(p.w, heading)
	fmt.Fprintln(p.w, rule)
}

func (p printer) line(label string, t tone, message string) {
	style := toneStyles[t]
	out := fmt.Sprintf("  %-*s [%s]", labelWidth, label+":", style.tag)
	if message != "" {
		out += " " + message
	}
	if p.color {
		out = style.color.Sprint(out)
	}
	fmt.Fprintln(p.w, out)
}

type align int

const (
	left align = iota
	right
)

func renderTable(headers []string, rows [][]string, aligns []align) string {
	if len(headers) == 0 {
		return ""
	}
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(headers))
	configs := make([]table.ColumnConfig, len(headers))
	for i, h := range headers {
		header[i] = h
		configs[i] = table.ColumnConfig{Number: i + 1, Align: text.AlignLeft, AlignHeader: text.AlignLeft}
		if i < len(aligns) && aligns[i] == right {
			configs[i].Align = text.AlignRight
		}
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, row := range rows {
		r := make(table.Row, len(headers))
		for i := range r {
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}
	return tw.Render()
}

var titleCaser = cases.Title(language.English)

// humanStatus turns "email_sent" into "Email Sent".
func humanStatus(status string) string {
	return titleCaser.String(strings.ReplaceAll(strings.TrimSpace(status), "_", " "))
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
