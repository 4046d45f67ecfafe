// Command pdrpebble decides whether a DAG can be pebbled within a bound on
// simultaneously placed pebbles, and prints the strategy or the inductive
// invariant that settles it.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdrpebble/pdrpebble/pkg/config"
	"github.com/pdrpebble/pdrpebble/pkg/dag"
	"github.com/pdrpebble/pdrpebble/pkg/frame"
	"github.com/pdrpebble/pdrpebble/pkg/incremental"
	"github.com/pdrpebble/pdrpebble/pkg/pdrlog"
	"github.com/pdrpebble/pdrpebble/pkg/registry"
	"github.com/pdrpebble/pdrpebble/pkg/result"
	"github.com/pdrpebble/pdrpebble/pkg/solver"
	"github.com/pdrpebble/pdrpebble/pkg/transys"
)

type options struct {
	dagPath    string
	pebbles    int
	delta      bool
	micRetries int
	seed       uint64
	backend    string
	verbose    bool
	dump       bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "pdrpebble",
		Short:         "IC3/PDR model checker for the pebble game on a DAG",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&opts.dagPath, "dag", "", "path to the DAG description file")
	pf.IntVar(&opts.pebbles, "pebbles", 0, "maximum number of simultaneously placed pebbles")
	pf.BoolVar(&opts.delta, "delta", false, "use the single-solver delta frame encoding")
	pf.IntVar(&opts.micRetries, "mic-retries", config.DefaultMICRetries, "generalization drop-attempt budget")
	pf.Uint64Var(&opts.seed, "seed", 0, "seed for obligation tie-breaking (omit for insertion order)")
	pf.StringVar(&opts.backend, "solver", "gini", "solver backend: gini or prolog")
	pf.BoolVar(&opts.verbose, "verbose", false, "log per-event engine activity")
	pf.BoolVar(&opts.dump, "dump", false, "dump frames and solver assertions after the run")

	root.AddCommand(
		newTacticCmd(opts, config.TacticBasic, "solve", "Run PDR once at the configured bound"),
		newTacticCmd(opts, config.TacticDecrement, "decrement", "Find a strategy, then tighten the bound reusing learned frames"),
		newTacticCmd(opts, config.TacticIncrement, "increment", "Find the smallest bound any strategy exists at"),
	)
	return root
}

func newTacticCmd(opts *options, tactic config.Tactic, use, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Config{
				DeltaEncoding: opts.delta,
				MICRetries:    opts.micRetries,
				MaxPebbles:    opts.pebbles,
				Tactic:        tactic,
			}
			if cmd.Flags().Changed("seed") {
				seed := opts.seed
				cfg.RNGSeed = &seed
			}
			// The increment tactic derives its own start bound from the
			// DAG, so --pebbles is optional there.
			if tactic == config.TacticIncrement && cfg.MaxPebbles == 0 {
				cfg.MaxPebbles = 1
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd, opts, cfg)
		},
	}
}

func run(cmd *cobra.Command, opts *options, cfg config.Config) error {
	if opts.dagPath == "" {
		return fmt.Errorf("--dag is required")
	}
	f, err := os.Open(opts.dagPath)
	if err != nil {
		return err
	}
	g, err := dag.Parse(f)
	f.Close()
	if err != nil {
		return err
	}

	reg := registry.New()
	for _, n := range g.Nodes() {
		reg.Add(n)
	}
	reg.Finish()
	sys := transys.New(reg, g, cfg.MaxPebbles)

	log := pdrlog.Nop()
	if opts.verbose {
		z, err := zap.NewDevelopment()
		if err != nil {
			return err
		}
		defer z.Sync()
		log = pdrlog.New(z)
	}

	newSolver, err := solverFactory(opts.backend)
	if err != nil {
		return err
	}
	encoding := frame.PerFrame
	if cfg.DeltaEncoding {
		encoding = frame.Delta
	}

	ctrl, err := incremental.NewController(sys, encoding, newSolver, cfg.MICRetries, len(g.Nodes()), log)
	if err != nil {
		return err
	}
	ctrl.Seed = cfg.RNGSeed

	start := time.Now()
	var res result.Result
	switch cfg.Tactic {
	case config.TacticBasic:
		res, err = runBasic(cmd, ctrl, sys)
	case config.TacticDecrement:
		res, err = runDecrement(cmd, ctrl, sys)
	case config.TacticIncrement:
		res, err = runIncrement(cmd, ctrl, sys)
	}
	if err != nil {
		return err
	}
	log.Finished(res.String(), time.Since(start))

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, res)
	switch res.Kind {
	case result.Refuted:
		fmt.Fprint(out, res.FormatTrace(reg))
	case result.Proven:
		fmt.Fprint(out, res.FormatInvariant())
	}
	if opts.dump {
		fmt.Fprint(out, ctrl.Store.BlockedString())
		fmt.Fprint(out, ctrl.Store.SolversString())
	}
	return nil
}

func solverFactory(name string) (func() solver.Handle, error) {
	switch name {
	case "gini":
		return solver.NewGini, nil
	case "prolog":
		return solver.NewProlog, nil
	}
	return nil, fmt.Errorf("unknown solver backend %q (want gini or prolog)", name)
}

func runBasic(cmd *cobra.Command, ctrl *incremental.Controller, sys *transys.System) (result.Result, error) {
	if sys.MaxPebbles() < sys.FinalPebbles() {
		return result.NewInfeasible(sys.MaxPebbles()), nil
	}
	ok, err := ctrl.Driver.Run(cmd.Context())
	if err != nil {
		return result.Result{}, err
	}
	if ok {
		inv := ctrl.Store.CubesAtOrAbove(ctrl.Driver.InvariantLevel)
		return result.NewInvariant(sys.MaxPebbles(), ctrl.Driver.InvariantLevel, inv), nil
	}
	return result.NewTrace(sys, ctrl.Driver.Bad), nil
}

// runDecrement finds a strategy at the configured bound, then repeatedly
// lowers the bound to one pebble below the cheapest strategy seen, reusing
// the learned frames, until the tighter bound is proven or infeasible. The
// last strategy found is the cheapest one.
func runDecrement(cmd *cobra.Command, ctrl *incremental.Controller, sys *transys.System) (result.Result, error) {
	first, err := runBasic(cmd, ctrl, sys)
	if err != nil || first.Kind != result.Refuted {
		return first, err
	}

	best := first
	ctrl.ShortestStrategy = best.PebblePeak()
	for {
		outcome, err := ctrl.Decrement(cmd.Context(), true)
		if err != nil {
			// No smaller bound left to try.
			return best, nil
		}
		if outcome != incremental.OutcomeContinue {
			return best, nil
		}
		ok, err := ctrl.Driver.Resume(cmd.Context())
		if err != nil {
			return result.Result{}, err
		}
		if ok {
			return best, nil
		}
		best = result.NewTrace(sys, ctrl.Driver.Bad)
		ctrl.ShortestStrategy = best.PebblePeak()
	}
}

// runIncrement starts at the smallest sensible bound (the output count)
// and raises it until a strategy first exists.
func runIncrement(cmd *cobra.Command, ctrl *incremental.Controller, sys *transys.System) (result.Result, error) {
	start := sys.FinalPebbles()
	if start < 1 {
		start = 1
	}
	sys.SetMaxPebbles(start)
	if err := ctrl.Reset(); err != nil {
		return result.Result{}, err
	}

	found, err := ctrl.IncrementStrategy(cmd.Context())
	if err != nil {
		return result.Result{}, err
	}
	if !found {
		inv := ctrl.Store.CubesAtOrAbove(ctrl.Driver.InvariantLevel)
		return result.NewInvariant(sys.MaxPebbles(), ctrl.Driver.InvariantLevel, inv), nil
	}
	return result.NewTrace(sys, ctrl.Driver.Bad), nil
}
