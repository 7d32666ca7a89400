package app

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/birdayz/rsv/pkg/rsv"
)

// OutputFormat controls how tables are printed.
type OutputFormat string

const (
	OutputFormatJSON   OutputFormat = "json"
	OutputFormatPretty OutputFormat = "pretty"
	OutputFormatTable  OutputFormat = "table"
	OutputFormatHex    OutputFormat = "hex"
	OutputFormatRaw    OutputFormat = "raw"
)

var outputFormats = []string{"json", "pretty", "table", "hex", "raw"}

func (e *OutputFormat) String() string {
	return string(*e)
}

func (e *OutputFormat) Set(v string) error {
	switch v {
	case "json", "pretty", "table", "hex", "raw":
		*e = OutputFormat(v)
		return nil
	default:
		return fmt.Errorf("must be one of: %s", strings.Join(outputFormats, ", "))
	}
}

func (e *OutputFormat) Type() string {
	return "OutputFormat"
}

// CompleteOutputFormat provides shell completion for --output.
func CompleteOutputFormat(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return outputFormats, cobra.ShellCompDirectiveNoFileComp
}

// RenderTable formats t. Every format except raw ends with a newline.
func (a *App) RenderTable(t rsv.Table, f OutputFormat) ([]byte, error) {
	switch f {
	case OutputFormatRaw:
		return rsv.Encode(t), nil
	case OutputFormatHex:
		return []byte(hex.EncodeToString(rsv.Encode(t)) + "\n"), nil
	case OutputFormatTable:
		var buf bytes.Buffer
		a.writeTabular(&buf, t)
		return buf.Bytes(), nil
	case OutputFormatPretty:
		b, err := rsv.ToJSON(t)
		if err != nil {
			return nil, err
		}
		b, err = a.Prettyfmt.Format(b)
		if err != nil {
			return nil, err
		}
		return append(b, '\n'), nil
	default:
		b, err := rsv.ToJSON(t)
		if err != nil {
			return nil, err
		}
		return append(b, '\n'), nil
	}
}

// PrintTable writes t to the output. Pretty output goes through the
// colorable writer.
func (a *App) PrintTable(t rsv.Table, f OutputFormat) error {
	b, err := a.RenderTable(t, f)
	if err != nil {
		return err
	}
	_, err = a.writerFor(f).Write(b)
	return err
}

func (a *App) writerFor(f OutputFormat) io.Writer {
	if f == OutputFormatPretty {
		return a.ColorableOut
	}
	return a.OutWriter
}

// writeTabular renders one line per row with tab aligned cells. Null cells
// print as the configured placeholder; an empty row prints an empty line.
func (a *App) writeTabular(w io.Writer, t rsv.Table) {
	tw := NewTabWriter(w)
	for _, row := range t {
		cells := make([]string, len(row))
		for i, c := range row {
			if c.IsNull() {
				cells[i] = a.Null
			} else {
				cells[i] = c.String
			}
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	tw.Flush()
}
