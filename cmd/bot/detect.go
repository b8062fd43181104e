package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"WickSentinel/internal/model"
	"WickSentinel/internal/notifier"
	"WickSentinel/internal/strategy"
)

var detectJSON bool

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Run one detection pass and print the setups",
	Long: `Fetch the configured symbols once, run the full pipeline and print
every setup that clears the alert threshold, highest score first.

Examples:
  wicksentinel detect
  wicksentinel detect --json > setups.json`,
	RunE: runDetect,
}

func init() {
	rootCmd.AddCommand(detectCmd)
	detectCmd.Flags().BoolVar(&detectJSON, "json", false, "Print setups as JSON")
}

func runDetect(cmd *cobra.Command, args []string) error {
	p, err := newPipeline(nil)
	if err != nil {
		return err
	}

	setups := []model.Setup{}
	var total strategy.Stats
	for _, symbol := range p.cfg.Data.Symbols {
		snap, err := p.collector.Collect(cmd.Context(), symbol)
		if err != nil {
			log.Warn().Err(err).Str("symbol", symbol).Msg("skipping symbol")
			continue
		}
		res := p.engine.Detect(snap)
		total.Add(res.Stats)
		setups = append(setups, res.Setups...)
	}

	out := cmd.OutOrStdout()
	if detectJSON {
		return writeJSON(out, setups)
	}
	for _, s := range setups {
		fmt.Fprintln(out, notifier.FormatLogLine(s, p.location()))
	}
	fmt.Fprintf(out, "%d setup(s) from %d rejection block(s)\n", len(setups), total.RejectionBlocks)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
