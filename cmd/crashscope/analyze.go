package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newthinker/crashscope/internal/app"
	"github.com/spf13/cobra"
	"github.com/tidwall/pretty"
	"go.uber.org/zap"
)

var (
	analyzeSymbols []string
	analyzeSimple  bool
	analyzeFrom    string
	analyzeJSON    bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyse drawdowns and recoveries of one or more symbols",
	Long: `Fetch each symbol's daily closes, rank its drawdowns and recoveries, save
the drawdown table to the cache and render the charts.

With --simple only the long-run price history chart of chart.simple_symbol is drawn.`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringSliceVarP(&analyzeSymbols, "symbol", "s", []string{"^GSPC"}, "symbol to analyse (repeatable)")
	analyzeCmd.Flags().BoolVar(&analyzeSimple, "simple", false, "only draw the price history chart")
	analyzeCmd.Flags().StringVar(&analyzeFrom, "from", "", "start date YYYY-MM-DD, overrides configured start dates")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "print reports as JSON")

	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	var opts []app.Option
	if analyzeFrom != "" {
		from, err := time.Parse("2006-01-02", analyzeFrom)
		if err != nil {
			return fmt.Errorf("invalid from date: %w", err)
		}
		opts = append(opts, app.WithStart(from))
	}

	runner, err := app.New(cfg, log, nil, opts...)
	if err != nil {
		return err
	}
	defer runner.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if analyzeSimple {
		loc, err := runner.Simple(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Chart saved: %s\n", loc)
		return nil
	}

	reports, err := runner.AnalyzeAll(ctx, analyzeSymbols)
	if analyzeJSON {
		if jerr := printJSON(cmd.OutOrStdout(), reports); jerr != nil {
			log.Error("failed to encode reports", zap.Error(jerr))
		}
	} else {
		for _, rep := range reports {
			printSummary(cmd.OutOrStdout(), rep)
		}
	}
	return err
}

func printJSON(w io.Writer, reports []*app.Report) error {
	data, err := json.Marshal(reports)
	if err != nil {
		return err
	}
	_, err = w.Write(pretty.Pretty(data))
	return err
}

func printSummary(w io.Writer, rep *app.Report) {
	fmt.Fprintf(w, "%s: %d observations, %s to %s\n", rep.Symbol, rep.Observations,
		rep.First.Format("2006-01-02"), rep.Last.Format("2006-01-02"))

	if cur, ok := rep.Current(); ok {
		fmt.Fprintf(w, "  current drawdown from %d peak: %.1f%% (deepest %.1f%%, %d days)\n",
			cur.PeakYear, cur.LastDecline*100, cur.Severity*100, cur.Duration)
	} else {
		fmt.Fprintln(w, "  at an all-time high")
	}

	shown := 0
	for _, d := range rep.Drawdowns {
		if d.Current {
			continue
		}
		fmt.Fprintf(w, "  #%-3d %-8s %s  %.1f%%\n", d.Rank, d.Tag, d.PeakDate.Format("2006-01-02"), d.Severity*100)
		if shown++; shown == 5 {
			break
		}
	}
	for _, loc := range rep.Charts {
		fmt.Fprintf(w, "  chart: %s\n", loc)
	}
}
