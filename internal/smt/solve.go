package smt

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/funvibe/testgen/internal/txerr"
)

// Outcome classifies the solver's verdict on one query.
type Outcome string

const (
	Sat     Outcome = "sat"
	Unsat   Outcome = "unsat"
	Unknown Outcome = "unknown"
)

// Solver spawns an external SMT-LIB solver process per query: write the
// query to a file, invoke the binary, capture its stdout.
type Solver struct {
	Path    string
	Dir     string
	Timeout time.Duration
}

func NewSolver(path, dir string, timeout time.Duration) *Solver {
	return &Solver{Path: path, Dir: dir, Timeout: timeout}
}

// Response is one solver invocation's raw outcome: the classified verdict
// plus the full stdout (the model, when Sat) for the caller to parse.
type Response struct {
	Outcome Outcome
	Raw     string
}

// Solve writes query to a uniquely named .smt2 file under s.Dir and runs
// the solver against it.
func (s *Solver) Solve(query string, queryName string) (*Response, error) {
	dir := s.Dir
	if dir == "" {
		dir = os.TempDir()
	}
	path := filepath.Join(dir, queryName+".smt2")
	if err := os.WriteFile(path, []byte(query), 0o644); err != nil {
		return nil, txerr.NewSolverUnavailableError(fmt.Sprintf("write query: %v", err))
	}

	timeout := s.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, s.Path, path)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, txerr.NewSolverUnavailableError(fmt.Sprintf("%s timed out after %s", s.Path, timeout))
		}
		if _, isExit := err.(*exec.ExitError); !isExit {
			return nil, txerr.NewSolverUnavailableError(fmt.Sprintf("spawn %s: %v", s.Path, err))
		}
		// A non-zero exit with readable stdout is still a verdict worth
		// classifying (z3 can exit non-zero on malformed but parseable
		// output); only a spawn failure is fatal.
	}

	return &Response{Outcome: classify(out.String()), Raw: out.String()}, nil
}

func classify(output string) Outcome {
	lines := strings.Split(output, "\n")
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch trimmed {
		case "unsat":
			return Unsat
		case "sat":
			return Sat
		case "unknown":
			return Unknown
		}
	}
	if strings.Contains(output, "unsat") {
		return Unsat
	}
	if strings.Contains(output, "sat") {
		return Sat
	}
	return Unknown
}
