package main

import (
	"fmt"
	"io"
	"os"

	"github.com/nihei9/farkle/format"
	"github.com/nihei9/farkle/grammar/lexical"
	spec "github.com/nihei9/farkle/spec/grammar"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "words <grammar file path>",
		Short: "Print a shortest input reaching every state of the tokenizer DFA",
		Long: `words walks the tokenizer DFA of a grammar breadth-first and prints, for every state,
a shortest input that leads there from the initial state, followed by the token symbols the state accepts.`,
		Example: `  farkle words grammar.egtn`,
		Args:    cobra.ExactArgs(1),
		RunE:    runWords,
	}
	rootCmd.AddCommand(cmd)
}

func runWords(cmd *cobra.Command, args []string) error {
	g, err := format.LoadFile(args[0])
	if err != nil {
		return err
	}
	return writeWords(os.Stdout, g)
}

func writeWords(w io.Writer, g *spec.Grammar) error {
	dfa, ok := g.DFA()
	if !ok {
		return fmt.Errorf("the grammar has no DFA")
	}
	defaults, _ := g.DefaultTransitions()

	words := lexical.ShortestWords(dfa, defaults)
	for s, word := range words {
		if s != spec.DFAStateIDInitial.Int() && word == "" {
			fmt.Fprintf(w, "%4v unreachable\n", s)
			continue
		}
		fmt.Fprintf(w, "%4v %q", s, word)
		for _, a := range dfa.States[s].Accept {
			if sym, ok := g.TokenSymbol(a); ok {
				fmt.Fprintf(w, " %v", sym.Name)
			}
		}
		fmt.Fprintf(w, "\n")
	}
	return nil
}
