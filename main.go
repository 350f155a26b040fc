package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"time"

	"go.uber.org/zap"

	"knapsack-optimizer/catalog"
	"knapsack-optimizer/knapsack"
	"knapsack-optimizer/scorer"
)

// RunOutput is the JSON-serializable result of a structured solve.
type RunOutput struct {
	Date      string  `json:"date"`
	Mode      string  `json:"mode"`
	Evaluator string  `json:"evaluator"`
	Items     int     `json:"items"`
	Selected  []int   `json:"selected"`
	Objective float64 `json:"objective"`
	Penalty   float64 `json:"penalty"`
	Total     float64 `json:"total"`
	Seed      uint32  `json:"seed"`
	TimeMs    int64   `json:"timeMs"`
}

// TripOutput is the JSON-serializable result of a trip plan.
type TripOutput struct {
	Trips      []knapsack.Trip `json:"trips"`
	TotalUnits int             `json:"totalUnits"`
	TotalCost  float64         `json:"totalCost"`
	Shortfall  int             `json:"shortfall"`
	TimeMs     int64           `json:"timeMs"`
}

func evaluator(accel bool) knapsack.Evaluator {
	if accel {
		return knapsack.DefaultEvaluator()
	}
	return knapsack.NewSoftware()
}

func runConfig(configPath, optionsPath, scorerPath string, accel, jsonOut bool) error {
	configText, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	var optionsText []byte
	if optionsPath != "" {
		if optionsText, err = os.ReadFile(optionsPath); err != nil {
			return fmt.Errorf("read options: %w", err)
		}
	}

	eval := evaluator(accel)
	var run *knapsack.Run
	if scorerPath == "" {
		run, err = knapsack.SolveFromConfig(string(configText), string(optionsText), eval)
	} else {
		run, err = solveWithScorer(string(configText), string(optionsText), scorerPath, eval)
	}
	if err != nil {
		return fmt.Errorf("%w (code %d)", err, knapsack.CodeOf(err))
	}

	if jsonOut {
		sol := run.Solution
		out := RunOutput{
			Date:      time.Now().UTC().Format(time.RFC3339),
			Mode:      sol.Mode.String(),
			Evaluator: eval.Name(),
			Items:     sol.NumItems,
			Selected:  sol.Indices(),
			Objective: sol.Objective,
			Penalty:   sol.Penalty,
			Total:     sol.Total,
			Seed:      run.Options.Seed,
			TimeMs:    run.Elapsed.Milliseconds(),
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	fmt.Print(FormatSolution(run.Solution, run.Catalog))
	fmt.Fprintf(os.Stderr, "%s in %.1fs\n", eval.Name(), run.Elapsed.Seconds())
	return nil
}

// solveWithScorer runs the select-mode search with a learned bias attached.
func solveWithScorer(configText, optionsText, scorerPath string, eval knapsack.Evaluator) (*knapsack.Run, error) {
	scorerText, err := os.ReadFile(scorerPath)
	if err != nil {
		return nil, fmt.Errorf("read scorer config: %w", err)
	}
	sc, err := scorer.New(string(scorerText))
	if err != nil {
		return nil, err
	}
	defer sc.Close()
	return knapsack.SolveFromConfigBiased(configText, optionsText, eval, &knapsack.LearnedBias{Scorer: sc})
}

func runTrips(path string, target int, seed uint, accel, jsonOut bool) error {
	if seed > math.MaxUint32 {
		return fmt.Errorf("seed %d not in [0, %d]", seed, uint64(math.MaxUint32))
	}
	entities, err := catalog.Load(path)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Loaded %d entities\n", len(entities))

	start := time.Now()
	sol, err := knapsack.SolveTrips(entities, target, knapsack.DefaultTripParams(), evaluator(accel), uint32(seed))
	if err != nil {
		return err
	}
	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(TripOutput{
			Trips:      sol.Trips,
			TotalUnits: sol.TotalUnits,
			TotalCost:  sol.TotalCost,
			Shortfall:  sol.Shortfall,
			TimeMs:     time.Since(start).Milliseconds(),
		})
	}
	fmt.Println(sol.String())
	return nil
}

const usage = `Usage: knapsack-optimizer [flags] <config.json> [options.json]
       knapsack-optimizer [flags] -trips <entities.csv|.xlsx> -target N

Positional arguments:
  config.json     Problem config (mode, items, capacities, objective, penalty)
  options.json    Solver options (beam_width, iters, seed, dom_* ...)

Flags:
`

func main() {
	jsonOut := flag.Bool("json", false, "Output results as JSON")
	verbose := flag.Bool("verbose", false, "Print detailed search progress to stderr")
	trips := flag.String("trips", "", "Plan trips over an entity table instead of solving a config")
	target := flag.Int("target", 0, "Units to collect with -trips")
	seed := flag.Uint("seed", uint(knapsack.DefaultSeed), "PRNG seed for -trips")
	scorerPath := flag.String("scorer", "", "Learned scorer config; biases the beam ranking")
	accel := flag.Bool("accel", true, "Use the accelerated evaluator when available")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if *verbose {
		l, err := zap.NewDevelopment()
		if err == nil {
			defer l.Sync()
			knapsack.SetLogger(l)
			zap.ReplaceGlobals(l)
		}
	}

	var err error
	switch args := flag.Args(); {
	case *trips != "":
		err = runTrips(*trips, *target, *seed, *accel, *jsonOut)
	case len(args) >= 1:
		optionsPath := ""
		if len(args) >= 2 {
			optionsPath = args[1]
		}
		err = runConfig(args[0], optionsPath, *scorerPath, *accel, *jsonOut)
	default:
		flag.Usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
