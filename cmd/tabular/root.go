package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/tabular/internal/core"
)

const (
	formatYAML = "yaml"
	formatJSON = "json"
)

// cli carries the streams and global flags shared by every subcommand.
type cli struct {
	stdin  io.Reader
	stdout io.Writer
	format string
}

func newRootCmd(stdin io.Reader, stdout io.Writer) *cobra.Command {
	c := &cli{stdin: stdin, stdout: stdout}

	root := &cobra.Command{
		Use:           "tabular",
		Short:         "Describe, sort and correlate CSV tables",
		Long:          `tabular parses a CSV file the same way the web app does and prints statistics, correlations and insights, or writes the table back out sorted.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch c.format {
			case formatYAML, formatJSON:
				return nil
			default:
				return fmt.Errorf("unsupported --format: %s (use yaml|json)", c.format)
			}
		},
	}
	root.SetOut(stdout)
	root.PersistentFlags().StringVar(&c.format, "format", formatYAML, "output format: yaml|json")

	root.AddCommand(
		c.statsCmd(),
		c.sortCmd(),
		c.correlateCmd(),
		c.insightsCmd(),
		c.summaryCmd(),
	)
	return root
}

func (c *cli) statsCmd() *cobra.Command {
	var columns []string
	cmd := &cobra.Command{
		Use:   "stats <file>",
		Short: "Print average, highest and lowest of numeric columns",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := c.load(args[0])
			if err != nil {
				return err
			}
			if len(columns) == 0 {
				columns = core.NumericColumns(t)
			}
			return c.print(core.ComputeStats(t, columns))
		},
	}
	cmd.Flags().StringSliceVarP(&columns, "columns", "c", nil, "columns to describe (default: all numeric columns)")
	return cmd
}

func (c *cli) sortCmd() *cobra.Command {
	var (
		by     string
		mode   string
		desc   bool
		output string
	)
	cmd := &cobra.Command{
		Use:   "sort <file>",
		Short: "Sort rows and write the table as CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := c.load(args[0])
			if err != nil {
				return err
			}
			spec := core.SortSpec{Mode: core.ParseSortMode(mode), Column: by, Ascending: !desc}
			if spec.Mode == core.SortByColumn && by == "" {
				return fmt.Errorf("--by is required when sorting by column")
			}
			sorted := core.Sort(t, spec)

			if output == "" || output == "-" {
				return core.WriteCSV(c.stdout, sorted)
			}
			data, err := core.Serialize(sorted)
			if err != nil {
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "✓ Wrote %d rows to %s\n", sorted.RowCount(), output)
			return nil
		},
	}
	cmd.Flags().StringVar(&by, "by", "", "column to sort by")
	cmd.Flags().StringVar(&mode, "mode", "column", "sort key: column|row_average|row_max")
	cmd.Flags().BoolVar(&desc, "desc", false, "sort in descending order")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write CSV to this path instead of stdout")
	return cmd
}

func (c *cli) correlateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "correlate <file>",
		Short: "Print the correlation matrix of numeric columns",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := c.load(args[0])
			if err != nil {
				return err
			}
			return c.print(core.Correlate(t))
		},
	}
}

func (c *cli) insightsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "insights <file>",
		Short: "Print missing-value, correlation and variance insights",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := c.load(args[0])
			if err != nil {
				return err
			}
			return c.print(core.ComputeInsights(t))
		},
	}
}

func (c *cli) summaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary <file>",
		Short: "Print row, column and missing value counts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := c.load(args[0])
			if err != nil {
				return err
			}
			return c.print(core.Summarize(t))
		},
	}
}

// load parses path as CSV; "-" reads standard input.
func (c *cli) load(path string) (*core.Table, error) {
	if path == "-" {
		return core.ParseReader(c.stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return core.ParseReader(f)
}

func (c *cli) print(v any) error {
	if strings.EqualFold(c.format, formatJSON) {
		enc := json.NewEncoder(c.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	enc := yaml.NewEncoder(c.stdout)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
