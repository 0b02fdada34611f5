package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"qrnglab/adapters/excel"
	"qrnglab/domain/experiment"
	"qrnglab/internal/aggregation"
	"qrnglab/internal/config"
	"qrnglab/internal/container"
	"qrnglab/internal/report"
)

type analyzeOptions struct {
	file            string
	fromDB          bool
	archivePath     string
	seed            int64
	completion      string
	conditions      []string
	dataSources     []string
	ordinal         string
	sessionWeighted bool
	format          string
	out             string
	xlsx            string
}

func newAnalyzeCmd() *cobra.Command {
	var opts analyzeOptions

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run the confirmatory and exploratory analyses over a session source",
		Long: `Load sessions from a JSON snapshot or the sessions table, run the full
pipeline and print the report.

Example: qrnglab analyze --file sessions.json --completion completers --format markdown`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.file == "" && !opts.fromDB {
				return fmt.Errorf("one of --file or --db is required")
			}
			return runAnalyze(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.file, "file", "", "JSON snapshot of session documents")
	cmd.Flags().BoolVar(&opts.fromDB, "db", false, "Load sessions from the DATABASE_URL sessions table")
	cmd.Flags().StringVar(&opts.archivePath, "archive", "", "Badger directory to archive the report in")
	cmd.Flags().Int64Var(&opts.seed, "seed", 0, "Override the analysis seed (0 keeps the configured seed)")
	cmd.Flags().StringVar(&opts.completion, "completion", string(experiment.CompletionAll), "all, completers or nonCompleters")
	cmd.Flags().StringSliceVar(&opts.conditions, "condition", nil, "Restrict to these conditions")
	cmd.Flags().StringSliceVar(&opts.dataSources, "data-source", nil, "Restrict to these data sources")
	cmd.Flags().StringVar(&opts.ordinal, "ordinal", string(experiment.OrdinalAll), "all, first or repeat")
	cmd.Flags().BoolVar(&opts.sessionWeighted, "session-weighted", false, "Keep one session per participant")
	cmd.Flags().StringVar(&opts.format, "format", "markdown", "Output format: json, markdown or html")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "Write the report to this file instead of stdout")
	cmd.Flags().StringVar(&opts.xlsx, "xlsx", "", "Also write an Excel workbook to this path")

	return cmd
}

func (o analyzeOptions) filter() aggregation.Filter {
	return aggregation.Filter{
		Completion:      experiment.CompletionMode(o.completion),
		Conditions:      o.conditions,
		DataSources:     o.dataSources,
		Ordinal:         experiment.OrdinalMode(o.ordinal),
		SessionWeighted: o.sessionWeighted,
	}.Normalize()
}

func (o analyzeOptions) apply(cfg *config.Config) {
	if o.fromDB {
		cfg.Source.Kind = "postgres"
	} else {
		cfg.Source.Kind = "snapshot"
		cfg.Source.SnapshotPath = o.file
	}
	if o.archivePath != "" {
		cfg.Storage.Backend = "badger"
		cfg.Storage.ArchivePath = o.archivePath
	}
	if o.seed != 0 {
		cfg.Analysis.Seed = o.seed
	}
}

func runAnalyze(cmd *cobra.Command, opts analyzeOptions) error {
	ctx := cmd.Context()
	return withContainer(ctx, opts.apply, func(c *container.Container) error {
		rep, err := c.Service.Analyze(ctx, opts.filter())
		if err != nil {
			return err
		}

		var out io.Writer = cmd.OutOrStdout()
		if opts.out != "" {
			f, err := os.Create(opts.out)
			if err != nil {
				return err
			}
			defer f.Close()
			out = f
		}
		if err := writeReport(out, rep, opts.format); err != nil {
			return err
		}

		if opts.xlsx != "" {
			if err := excel.SaveReport(opts.xlsx, rep); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Workbook saved to: %s\n", opts.xlsx)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Report %s (fingerprint %s)\n", rep.ID, rep.Fingerprint.Short())
		return nil
	})
}

func writeReport(w io.Writer, rep *report.Report, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(rep, "", "  ")
		if err != nil {
			return err
		}
		_, err = w.Write(append(data, '\n'))
		return err
	case "markdown":
		_, err := io.WriteString(w, report.RenderMarkdown(rep))
		return err
	case "html":
		_, err := w.Write(report.RenderHTML(rep))
		return err
	default:
		return fmt.Errorf("unknown format %q (use json, markdown or html)", format)
	}
}
