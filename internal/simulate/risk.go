package simulate

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"
)

// Config drives one simulation run. Thresholds are drawdown magnitudes in
// percent (5 means "a 5% drawdown"); Runs are losing-run lengths in days.
// Seed makes the run reproducible; Workers bounds the path fan-out.
type Config struct {
	Paths            int
	Persistence      float64
	Thresholds       []float64
	Runs             []int
	Horizon          int
	StartDrawdownPct float64
	Seed             int64
	Workers          int

	// OnPath, when set, is called with the number of newly completed
	// paths. It may be called from multiple goroutines.
	OnPath func(n int)
}

// DefaultConfig mirrors the query defaults of the risk endpoint.
func DefaultConfig() Config {
	return Config{
		Paths:       2000,
		Persistence: 0.2,
		Thresholds:  []float64{5, 10, 20},
		Runs:        []int{3, 5, 8},
		Horizon:     365,
		Workers:     4,
	}
}

// ThresholdProb is the fraction of paths whose worst drawdown magnitude
// exceeded the threshold within the horizon.
type ThresholdProb struct {
	ThresholdPct float64 `json:"threshold_pct"`
	Probability  float64 `json:"probability"`
}

// RunProb is the fraction of paths containing a losing run of at least
// RunLength days, alongside the same fraction under i.i.d. resampling.
type RunProb struct {
	RunLength   int     `json:"run_length"`
	Probability float64 `json:"probability"`
	IIDBaseline float64 `json:"iid_baseline"`
}

// Recovery reports simulated days to regain the prior peak from the
// configured starting drawdown, capped at the horizon.
type Recovery struct {
	StartDrawdownPct float64 `json:"start_drawdown_pct"`
	MedianDays       int     `json:"median_days"`
	P90Days          int     `json:"p90_days"`
	RecoveredShare   float64 `json:"recovered_share"`
	HorizonDays      int     `json:"horizon_days"`
}

type Report struct {
	Paths              int             `json:"paths"`
	Persistence        float64         `json:"persistence"`
	HorizonDays        int             `json:"horizon_days"`
	SampleDays         int             `json:"sample_days"`
	DrawdownExceedance []ThresholdProb `json:"drawdown_exceedance"`
	LossRuns           []RunProb       `json:"loss_runs"`
	Recovery           Recovery        `json:"recovery"`
}

// Run simulates cfg.Paths bootstrap paths over the historical daily-return
// series and derives drawdown-exceedance probabilities, losing-run
// probabilities (with an i.i.d. baseline) and the time-to-recovery
// distribution. The same resampling primitive feeds all three.
func Run(returns []float64, cfg Config) (Report, error) {
	if len(returns) == 0 {
		return Report{}, fmt.Errorf("simulate: empty return series")
	}
	if cfg.Paths <= 0 {
		return Report{}, fmt.Errorf("simulate: paths must be positive, got %d", cfg.Paths)
	}
	if cfg.Persistence <= 0 || cfg.Persistence > 1 {
		return Report{}, fmt.Errorf("simulate: persistence must be in (0, 1], got %g", cfg.Persistence)
	}
	if cfg.Horizon <= 0 {
		return Report{}, fmt.Errorf("simulate: horizon must be positive, got %d", cfg.Horizon)
	}
	if cfg.StartDrawdownPct > 0 {
		return Report{}, fmt.Errorf("simulate: start drawdown must be <= 0, got %g", cfg.StartDrawdownPct)
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	if workers > cfg.Paths {
		workers = cfg.Paths
	}

	report := Report{
		Paths:       cfg.Paths,
		Persistence: cfg.Persistence,
		HorizonDays: cfg.Horizon,
		SampleDays:  len(returns),
	}

	ddHits, runHits := pathStats(returns, cfg, cfg.Persistence, workers, cfg.Seed)
	_, iidHits := pathStats(returns, cfg, 1.0, workers, cfg.Seed+1_000_000)

	total := float64(cfg.Paths)
	for i, th := range cfg.Thresholds {
		report.DrawdownExceedance = append(report.DrawdownExceedance, ThresholdProb{
			ThresholdPct: th,
			Probability:  float64(ddHits[i]) / total,
		})
	}
	for i, k := range cfg.Runs {
		report.LossRuns = append(report.LossRuns, RunProb{
			RunLength:   k,
			Probability: float64(runHits[i]) / total,
			IIDBaseline: float64(iidHits[i]) / total,
		})
	}

	report.Recovery = recoveryStats(returns, cfg, workers)
	return report, nil
}

// pathStats walks cfg.Paths simulated paths of cfg.Horizon days and tallies
// how many exceeded each drawdown threshold and how many contained a losing
// run of each configured length. Workers split the path count; each worker
// owns a derived seed so the run is reproducible regardless of scheduling.
func pathStats(returns []float64, cfg Config, p float64, workers int, seed int64) (dd, runs []int) {
	dd = make([]int, len(cfg.Thresholds))
	runs = make([]int, len(cfg.Runs))

	var mu sync.Mutex
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			localDD := make([]int, len(cfg.Thresholds))
			localRuns := make([]int, len(cfg.Runs))
			s := newSampler(returns, p, rand.New(rand.NewSource(seed+int64(w))))

			for n := 0; n < pathShare(cfg.Paths, workers, w); n++ {
				maxDD, maxRun := walkPath(s, cfg.Horizon)
				for i, th := range cfg.Thresholds {
					if maxDD*100 > th {
						localDD[i]++
					}
				}
				for i, k := range cfg.Runs {
					if maxRun >= k {
						localRuns[i]++
					}
				}
				if cfg.OnPath != nil {
					cfg.OnPath(1)
				}
			}

			mu.Lock()
			for i := range localDD {
				dd[i] += localDD[i]
			}
			for i := range localRuns {
				runs[i] += localRuns[i]
			}
			mu.Unlock()
		}(w)
	}
	wg.Wait()
	return dd, runs
}

// walkPath simulates one path and returns its worst drawdown magnitude
// (as a fraction, 0.05 = 5%) and its longest losing run.
func walkPath(s *sampler, horizon int) (maxDD float64, maxRun int) {
	s.reset()
	equity := 1.0
	peak := 1.0
	run := 0
	for d := 0; d < horizon; d++ {
		r := s.Next()
		equity *= 1 + r
		if equity > peak {
			peak = equity
		}
		if ddMag := (peak - equity) / peak; ddMag > maxDD {
			maxDD = ddMag
		}
		if r < 0 {
			run++
			if run > maxRun {
				maxRun = run
			}
		} else {
			run = 0
		}
	}
	return maxDD, maxRun
}

// recoveryStats simulates recovery from cfg.StartDrawdownPct toward the
// prior peak, day by day, recording days-to-recovery capped at the horizon.
func recoveryStats(returns []float64, cfg Config, workers int) Recovery {
	days := make([]int, 0, cfg.Paths)
	recovered := 0

	var mu sync.Mutex
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			local := make([]int, 0, cfg.Paths/workers+1)
			localRecovered := 0
			s := newSampler(returns, cfg.Persistence, rand.New(rand.NewSource(cfg.Seed+2_000_000+int64(w))))

			for n := 0; n < pathShare(cfg.Paths, workers, w); n++ {
				d, ok := walkRecovery(s, cfg.StartDrawdownPct/100, cfg.Horizon)
				local = append(local, d)
				if ok {
					localRecovered++
				}
				if cfg.OnPath != nil {
					cfg.OnPath(1)
				}
			}

			mu.Lock()
			days = append(days, local...)
			recovered += localRecovered
			mu.Unlock()
		}(w)
	}
	wg.Wait()

	sort.Ints(days)
	return Recovery{
		StartDrawdownPct: cfg.StartDrawdownPct,
		MedianDays:       percentile(days, 0.5),
		P90Days:          percentile(days, 0.9),
		RecoveredShare:   float64(recovered) / float64(cfg.Paths),
		HorizonDays:      cfg.Horizon,
	}
}

// walkRecovery runs one recovery path. startDD is a fraction <= 0; equity
// starts at peak*(1+startDD) and the path ends when equity regains the
// peak or the horizon runs out (days capped at the horizon in that case).
func walkRecovery(s *sampler, startDD float64, horizon int) (days int, recovered bool) {
	s.reset()
	peak := 1.0
	equity := 1 + startDD
	for d := 1; d <= horizon; d++ {
		equity *= 1 + s.Next()
		if equity >= peak {
			return d, true
		}
	}
	return horizon, false
}

// pathShare splits total paths across workers, giving the remainder to the
// low-index workers.
func pathShare(paths, workers, w int) int {
	share := paths / workers
	if w < paths%workers {
		share++
	}
	return share
}

func percentile(sorted []int, q float64) int {
	if len(sorted) == 0 {
		return 0
	}
	i := int(q * float64(len(sorted)-1))
	return sorted[i]
}
