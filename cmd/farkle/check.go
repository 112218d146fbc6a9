package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/nihei9/farkle/driver"
	verr "github.com/nihei9/farkle/error"
	"github.com/nihei9/farkle/format"
	spec "github.com/nihei9/farkle/spec/grammar"
	"github.com/nihei9/farkle/tester"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "check <grammar file path>...",
		Short: "Check grammar files",
		Long: `check loads every grammar file, validates it, saves it again, and verifies that the saved copy
loads back to the same grammar. It also builds the lookup tables a parser would use.`,
		Example: `  farkle check grammar.egtn`,
		Args:    cobra.MinimumNArgs(1),
		RunE:    runCheck,
	}
	rootCmd.AddCommand(cmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	save := func(g *spec.Grammar) ([]byte, error) {
		return format.Save(g)
	}
	load := func(b []byte) (*spec.Grammar, error) {
		return format.Load(b)
	}

	failed := false
	for _, path := range args {
		r := checkFile(path, save, load)
		fmt.Fprintln(os.Stdout, r)
		if r.Error != nil || len(r.Diffs) > 0 {
			failed = true
		}
	}
	if failed {
		return errors.New("Check failed")
	}
	return nil
}

func checkFile(path string, save tester.SaveFunc, load tester.LoadFunc) *tester.TestResult {
	g, err := format.LoadFile(path)
	if err != nil {
		return &tester.TestResult{
			Path:  path,
			Error: err,
		}
	}
	if _, err := driver.NewOptimizedGrammar(g); err != nil && !verr.Is(err, verr.ErrUnusableGrammar) {
		return &tester.TestResult{
			Path:  path,
			Error: fmt.Errorf("Cannot build lookup tables: %w", err),
		}
	}
	return tester.CheckRoundTrip(path, g, save, load)
}
