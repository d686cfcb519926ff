// Command gentestcase is a thin demonstration CLI over the testgen
// pipeline: load a YAML spec, take a test string on the command line, and
// print the resulting concrete test case.
//
// Usage:
//
//	gentestcase -spec service.yaml op1 op2 op3
//
// It's a thin entry point only — a -solver flag for the solver binary and
// a -debug flag, but no config file layered over it. It exists to exercise the pipeline package end to
// end, not to be a production test runner.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/funvibe/testgen/internal/config"
	"github.com/funvibe/testgen/internal/factory"
	"github.com/funvibe/testgen/internal/ir"
	"github.com/funvibe/testgen/internal/pipeline"
	"github.com/funvibe/testgen/internal/spec"
)

// colorize gates ANSI output on stdout being a real terminal.
func colorize() bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

const (
	ansiGreen = "\x1b[32m"
	ansiRed   = "\x1b[31m"
	ansiReset = "\x1b[0m"
)

func paint(color, s string) string {
	if !colorize() {
		return s
	}
	return color + s + ansiReset
}

func main() {
	specPath := flag.String("spec", "", "path to a YAML service specification")
	solverPath := flag.String("solver", "z3", "SMT solver binary to invoke")
	debug := flag.Bool("debug", false, "set Config.Debug (stage tracing to stderr is always on)")
	flag.Parse()

	testString := flag.Args()
	if *specPath == "" || len(testString) == 0 {
		fmt.Fprintln(os.Stderr, "usage: gentestcase -spec <file.yaml> op1 op2 ...")
		os.Exit(2)
	}

	data, err := os.ReadFile(*specPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "reading spec: %s\n", err)
		os.Exit(1)
	}

	s, err := spec.LoadYAML(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parsing spec: %s\n", err)
		os.Exit(1)
	}

	cfg := config.Default()
	cfg.SolverPath = *solverPath
	cfg.Debug = *debug

	report, err := pipeline.GenerateConcreteTestCase(s, testString, pipeline.Options{
		Config:  cfg,
		Factory: factory.Noop{},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}

	printReport(report)
	if !report.Satisfiable {
		os.Exit(1)
	}
}

func printReport(r *pipeline.Report) {
	if r.Satisfiable {
		fmt.Println(paint(ansiGreen, "satisfiable"))
	} else {
		fmt.Println(paint(ansiRed, "unsatisfiable"))
		if r.ErrorMessage != "" {
			fmt.Println(r.ErrorMessage)
		}
		return
	}

	fmt.Println("concrete values:")
	for name, val := range r.ConcreteValues {
		fmt.Printf("  %s = %q\n", name, val)
	}

	if r.TestAPIATC != nil {
		fmt.Println("\ntest-API program:")
		fmt.Print(ir.PrintProgram(r.TestAPIATC))
	}
}
