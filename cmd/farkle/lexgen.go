package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/nihei9/farkle/format"
	"github.com/nihei9/farkle/grammar/lexical"
	spec "github.com/nihei9/farkle/spec/grammar"
	"github.com/spf13/cobra"
)

var lexgenFlags = struct {
	debug  *bool
	name   *string
	output *string
}{}

func init() {
	cmd := &cobra.Command{
		Use:   "lexgen",
		Short: "Generate a tokenizer-only grammar file from regular expressions",
		Long: `lexgen reads a JSON array of token definitions and writes a grammar file containing only a DFA.
Each definition has a name, a pattern, and optionally "literal": true to match the pattern as it is
and "noise": true to mark the token as noise.`,
		Example: `  Read from/Write to the specified file:
    farkle lexgen tokens.json -o tokens.egtn
  Read from stdin and write to stdout:
    cat tokens.json | farkle lexgen`,
		Args: cobra.MaximumNArgs(1),
		RunE: runLexgen,
	}
	lexgenFlags.debug = cmd.Flags().BoolP("debug", "d", false, "enable logging")
	lexgenFlags.name = cmd.Flags().StringP("name", "n", "lexgen", "grammar name")
	lexgenFlags.output = cmd.Flags().StringP("output", "o", "", "output file path (default stdout)")
	rootCmd.AddCommand(cmd)
}

func runLexgen(cmd *cobra.Command, args []string) (retErr error) {
	var path string
	if len(args) > 0 {
		path = args[0]
	}

	compOpts := []lexical.CompileOption{
		lexical.Name(*lexgenFlags.name),
	}
	var saveOpts []format.SaveOption
	if *lexgenFlags.debug {
		w, done, err := openLog("lexgen")
		if err != nil {
			return err
		}
		defer func() {
			done(retErr)
		}()
		compOpts = append(compOpts, lexical.EnableLogging(w))
		saveOpts = append(saveOpts, format.EnableLogging(w))
	}

	g, err := genGrammar(path, compOpts...)
	if err != nil {
		return err
	}

	if *lexgenFlags.output != "" {
		err = format.SaveFile(*lexgenFlags.output, g, saveOpts...)
	} else {
		err = format.Write(os.Stdout, g, saveOpts...)
	}
	if err != nil {
		return fmt.Errorf("Cannot write a grammar file: %w", err)
	}

	return nil
}

// genGrammar compiles the token definitions read from path, or from stdin when path is empty.
func genGrammar(path string, opts ...lexical.CompileOption) (*spec.Grammar, error) {
	entries, err := readEntries(path)
	if err != nil {
		return nil, fmt.Errorf("Cannot read token definitions: %w", err)
	}
	return lexical.Compile(entries, opts...)
}

func readEntries(path string) ([]*lexical.Entry, error) {
	r := os.Stdin
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("Cannot open the token definition file %s: %w", path, err)
		}
		defer f.Close()
		r = f
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var entries []*lexical.Entry
	err = json.Unmarshal(data, &entries)
	if err != nil {
		return nil, err
	}
	return entries, nil
}
