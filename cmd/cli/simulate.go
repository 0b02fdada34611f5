package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"qrnglab/adapters/snapshot"
	"qrnglab/internal/testkit"
)

func newSimulateCmd() *cobra.Command {
	cfg := testkit.DefaultSessionConfig()
	var out string
	var bias float64
	var biasCondition string

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Write a synthetic session snapshot",
		Long: `Generate deterministic synthetic sessions and write them as a JSON snapshot
that the analyze command and the API accept.

Example: qrnglab simulate --out sessions.json --sessions 30 --bias 0.52 --bias-condition human`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				return fmt.Errorf("--out is required")
			}
			if bias > 0 {
				if bias >= 1 {
					return fmt.Errorf("--bias must be below 1")
				}
				cfg.HitProbability = map[string]float64{biasCondition: bias}
			}

			sessions := testkit.NewSessionGenerator(cfg).Generate()
			if err := snapshot.Write(out, sessions); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d sessions to %s\n", len(sessions), out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "Snapshot file to write")
	cmd.Flags().StringSliceVar(&cfg.Conditions, "conditions", cfg.Conditions, "Conditions to generate")
	cmd.Flags().IntVar(&cfg.SessionsPerCondition, "sessions", cfg.SessionsPerCondition, "Sessions per condition")
	cmd.Flags().IntVar(&cfg.BlocksPerSession, "blocks", cfg.BlocksPerSession, "Blocks per session")
	cmd.Flags().IntVar(&cfg.TrialsPerBlock, "trials", cfg.TrialsPerBlock, "Trials per block")
	cmd.Flags().IntVar(&cfg.SessionsPerPerson, "sessions-per-person", cfg.SessionsPerPerson, "Sessions per participant (>1 adds repeat sessions)")
	cmd.Flags().Float64Var(&cfg.CompletionRate, "completion-rate", cfg.CompletionRate, "Fraction of sessions marked completed")
	cmd.Flags().Float64Var(&cfg.HoldDurationRate, "hold-rate", cfg.HoldDurationRate, "Fraction of trials carrying a hold time")
	cmd.Flags().BoolVar(&cfg.WithBits, "bits", cfg.WithBits, "Record per-trial bit sequences")
	cmd.Flags().StringVar(&cfg.DataSource, "data-source", cfg.DataSource, "Data source label")
	cmd.Flags().Int64Var(&cfg.Seed, "seed", cfg.Seed, "Generator seed")
	cmd.Flags().Float64Var(&bias, "bias", 0, "Hit probability for --bias-condition (0 keeps a fair coin)")
	cmd.Flags().StringVar(&biasCondition, "bias-condition", "human", "Condition receiving --bias")

	return cmd
}
