// stackpool rewrites a tree of Fortran routines so that local temporary
// arrays are carved from one pre-sized scratch buffer instead of being
// allocated per kernel.
//
// The input is a JSON manifest produced by a frontend:
//
//	{
//	  "drivers": ["driver"],
//	  "routines": [ { "name": "driver", "params": [...], "body": [...] }, ... ]
//	}
//
// Routines named in "drivers" provision the buffer; all others are
// treated as kernels. The call graph is recovered from the CALL
// statements in the routine bodies. Transformed routines are written as
// free-form Fortran, one file per routine, or to stdout.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fortlab/stackpool/dim"
	"github.com/fortlab/stackpool/ir"
	"github.com/fortlab/stackpool/pool"
	"github.com/fortlab/stackpool/sched"
)

type manifest struct {
	Drivers  []string          `json:"drivers"`
	Routines []json.RawMessage `json:"routines"`
}

type options struct {
	blockSize   string
	blockIndex  string
	horizSize   string
	horizAlias  []string
	checkBounds bool
	crayPtrLoc  bool
	directive   string
	realKind    string
	outDir      string
	verbose     bool
}

func main() {
	var opts options

	root := &cobra.Command{
		Use:   "stackpool <manifest.json>",
		Short: "relocate kernel temporaries into a driver-owned stack buffer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return run(args[0], opts)
		},
	}

	flags := root.Flags()
	flags.StringVar(&opts.blockSize, "block-size", "nb", "variable holding the block count")
	flags.StringVar(&opts.blockIndex, "block-index", "b", "loop counter of the driver's block loops")
	flags.StringVar(&opts.horizSize, "horizontal-size", "", "variable holding the horizontal extent")
	flags.StringSliceVar(&opts.horizAlias, "horizontal-alias", nil, "additional names of the horizontal extent")
	flags.BoolVar(&opts.checkBounds, "check-bounds", true, "guard every carve against overflow")
	flags.BoolVar(&opts.crayPtrLoc, "cray-ptr-loc", false, "carve in element counts and thread the buffer itself")
	flags.StringVar(&opts.directive, "directive", "none", "pragma dialect to synchronize: none, openmp or openacc")
	flags.StringVar(&opts.realKind, "real-kind", "JPRB", "kind parameter of the scratch buffer")
	flags.StringVarP(&opts.outDir, "output", "o", "", "directory for transformed routines (default stdout)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(path string, opts options) error {
	directive, err := parseDirective(opts.directive)
	if err != nil {
		return err
	}
	log, err := buildLogger(opts.verbose)
	if err != nil {
		return err
	}
	defer log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if len(m.Drivers) == 0 {
		return fmt.Errorf("%s: no drivers named", path)
	}

	routines := make([]*ir.Subroutine, 0, len(m.Routines))
	for i, raw := range m.Routines {
		r, err := ir.UnmarshalRoutine(raw)
		if err != nil {
			return fmt.Errorf("%s: routine %d: %w", path, i, err)
		}
		routines = append(routines, r)
	}

	graph, err := buildGraph(log, routines, m.Drivers)
	if err != nil {
		return err
	}

	trafo := pool.New(pool.Config{
		BlockDim:    dim.Dimension{Name: "block", Size: opts.blockSize, Index: opts.blockIndex},
		Horizontal:  horizontal(opts),
		CheckBounds: opts.checkBounds,
		CrayPtrLoc:  opts.crayPtrLoc,
		Directive:   directive,
		RealKind:    opts.realKind,
		Logger:      log,
	})
	if err := graph.Process(trafo); err != nil {
		return err
	}

	return writeOutput(routines, opts.outDir)
}

func horizontal(opts options) dim.Dimension {
	if opts.horizSize == "" && len(opts.horizAlias) == 0 {
		return dim.Dimension{}
	}
	return dim.Dimension{Name: "horizontal", Size: opts.horizSize, Aliases: opts.horizAlias}
}

func parseDirective(s string) (pool.Directive, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return pool.DirectiveNone, nil
	case "openmp":
		return pool.DirectiveOpenMP, nil
	case "openacc":
		return pool.DirectiveOpenACC, nil
	default:
		return pool.DirectiveNone, fmt.Errorf("unknown directive %q", s)
	}
}

func buildLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}

// buildGraph registers the routines and recovers the call edges from
// the CALL statements and inline calls in their bodies.
func buildGraph(log *zap.Logger, routines []*ir.Subroutine, drivers []string) (*sched.Graph, error) {
	isDriver := make(map[string]bool, len(drivers))
	for _, d := range drivers {
		isDriver[strings.ToUpper(d)] = true
	}

	graph := sched.NewGraph(log)
	for _, r := range routines {
		role := sched.RoleKernel
		if isDriver[strings.ToUpper(r.Name)] {
			role = sched.RoleDriver
		}
		graph.Add(r, role)
	}
	for _, r := range routines {
		for _, callee := range calledNames(r) {
			if graph.Item(callee) == nil {
				continue
			}
			if err := graph.AddCall(r.Name, callee); err != nil {
				return nil, err
			}
		}
	}
	return graph, nil
}

func calledNames(r *ir.Subroutine) []string {
	seen := make(map[string]bool)
	var names []string
	ir.Inspect(r, func(n ir.Node) bool {
		var name string
		switch c := n.(type) {
		case *ir.CallStmt:
			name = strings.ToUpper(c.Name)
		case *ir.InlineCall:
			name = strings.ToUpper(c.Name)
		default:
			return true
		}
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
		return true
	})
	return names
}

func writeOutput(routines []*ir.Subroutine, outDir string) error {
	if outDir == "" {
		for _, r := range routines {
			fmt.Print(r.Render())
			fmt.Println()
		}
		return nil
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	for _, r := range routines {
		name := strings.ToLower(r.Name) + ".f90"
		if err := os.WriteFile(filepath.Join(outDir, name), []byte(r.Render()), 0o644); err != nil {
			return err
		}
	}
	return nil
}
