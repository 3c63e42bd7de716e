package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/schollz/progressbar/v3"

	"github.com/pairstats/analytics-backend/internal/metrics"
	"github.com/pairstats/analytics-backend/internal/models"
	"github.com/pairstats/analytics-backend/internal/simulate"
)

// dailyRecord is one line of the input sheet: a calendar day and its
// net PnL, as exported by the performance endpoint or a spreadsheet.
type dailyRecord struct {
	Day    string  `csv:"day"`
	NetPnl float64 `csv:"net_pnl"`
}

func main() {
	fs := flag.NewFlagSet("simulate", flag.ExitOnError)

	input := fs.String("input", "", "CSV of daily net PnL (columns: day, net_pnl)")
	baseline := fs.Float64("baseline", 0, "account balance at the start of the sheet")
	paths := fs.Int("paths", 2000, "number of simulated paths per question")
	persistence := fs.Float64("persistence", 0.2, "block jump probability in (0,1]; 1 = i.i.d.")
	horizon := fs.Int("horizon", 365, "days per simulated path")
	startDD := fs.Float64("start-drawdown", 0, "recovery question start drawdown in percent (e.g. -10)")
	thresholds := fs.String("thresholds", "5,10,20", "drawdown magnitudes in percent, comma separated")
	runs := fs.String("runs", "3,5,8", "losing-run lengths in days, comma separated")
	seed := fs.Int64("seed", 0, "RNG seed (0 = derive from clock)")
	workers := fs.Int("workers", 4, "path fan-out")
	asJSON := fs.Bool("json", false, "emit the raw report as JSON instead of text")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: simulate [options]\n\nResamples a daily PnL history and reports drawdown, losing-run\nand recovery-time probabilities over the horizon.\n\nOptions:\n")
		fs.PrintDefaults()
	}
	fs.Parse(os.Args[1:])

	if *input == "" {
		fmt.Fprintln(os.Stderr, "simulate: -input is required")
		fs.Usage()
		os.Exit(1)
	}
	if *baseline <= 0 {
		fmt.Fprintln(os.Stderr, "simulate: -baseline must be a positive balance")
		os.Exit(1)
	}

	rows, err := loadSheet(*input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "simulate: %v\n", err)
		os.Exit(1)
	}
	if len(rows) == 0 {
		fmt.Fprintln(os.Stderr, "simulate: input sheet has no rows")
		os.Exit(1)
	}

	points := metrics.Curve(rows, *baseline, 0)
	returns := metrics.Returns(points, *baseline)

	cfg := simulate.DefaultConfig()
	cfg.Paths = *paths
	cfg.Persistence = *persistence
	cfg.Horizon = *horizon
	cfg.StartDrawdownPct = *startDD
	cfg.Workers = *workers
	cfg.Seed = *seed
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	if cfg.Thresholds, err = parseFloats(*thresholds); err != nil {
		fmt.Fprintf(os.Stderr, "simulate: -thresholds: %v\n", err)
		os.Exit(1)
	}
	if cfg.Runs, err = parseInts(*runs); err != nil {
		fmt.Fprintf(os.Stderr, "simulate: -runs: %v\n", err)
		os.Exit(1)
	}

	// Three sweeps per run: resampled paths, the i.i.d. baseline, and
	// the recovery question.
	bar := initProgressBar(cfg.Paths * 3)
	cfg.OnPath = func(n int) { bar.Add(n) }

	report, err := simulate.Run(returns, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "simulate: %v\n", err)
		os.Exit(1)
	}
	fmt.Println()

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			fmt.Fprintf(os.Stderr, "simulate: %v\n", err)
			os.Exit(1)
		}
		return
	}
	printReport(report, cfg.Seed)
}

func loadSheet(path string) ([]models.DailyRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var recs []dailyRecord
	if err := gocsv.UnmarshalFile(f, &recs); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	rows := make([]models.DailyRow, 0, len(recs))
	for _, r := range recs {
		if r.Day == "" {
			continue
		}
		rows = append(rows, models.DailyRow{Day: r.Day, NetPnl: r.NetPnl})
	}
	return rows, nil
}

func parseFloats(s string) ([]float64, error) {
	var out []float64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, fmt.Errorf("bad value %q", part)
		}
		out = append(out, v)
	}
	return out, nil
}

func parseInts(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("bad value %q", part)
		}
		out = append(out, v)
	}
	return out, nil
}

func initProgressBar(maxTicks int) *progressbar.ProgressBar {
	return progressbar.NewOptions(maxTicks,
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetDescription("Resampling paths..."),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
}

func printReport(r simulate.Report, seed int64) {
	fmt.Println("===== Risk Report =====")
	fmt.Printf("Sample Days:        %d\n", r.SampleDays)
	fmt.Printf("Paths:              %d\n", r.Paths)
	fmt.Printf("Horizon:            %d days\n", r.HorizonDays)
	fmt.Printf("Persistence:        %.2f\n", r.Persistence)
	fmt.Printf("Seed:               %d\n", seed)

	fmt.Println("\n-- Drawdown Exceedance --")
	for _, t := range r.DrawdownExceedance {
		fmt.Printf("P(drawdown > %.0f%%):  %.4f\n", t.ThresholdPct, t.Probability)
	}

	fmt.Println("\n-- Losing Runs --")
	for _, lr := range r.LossRuns {
		fmt.Printf("P(run >= %d days):   %.4f  (i.i.d. %.4f)\n", lr.RunLength, lr.Probability, lr.IIDBaseline)
	}

	fmt.Println("\n-- Recovery --")
	rec := r.Recovery
	fmt.Printf("Start Drawdown:     %.2f%%\n", rec.StartDrawdownPct)
	fmt.Printf("Median Days:        %d\n", rec.MedianDays)
	fmt.Printf("P90 Days:           %d\n", rec.P90Days)
	fmt.Printf("Recovered Share:    %.4f\n", rec.RecoveredShare)

	fmt.Println("=======================")
}
