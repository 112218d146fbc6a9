package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "farkle",
	Short: "Inspect and generate Farkle grammar files",
	Long: `farkle works with grammar files in the Farkle binary format (version 7):
- Prints a grammar file in readable format.
- Generates a shortest input reaching every state of the tokenizer DFA.
- Builds a tokenizer-only grammar file from regular expressions.
- Checks that a grammar file survives a load and save round trip.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return err
	}
	return nil
}

// openLog creates farkle-<command>.log. The returned function writes the outcome and closes the file; call it with
// the error the command returns.
func openLog(command string) (io.Writer, func(err error), error) {
	fileName := fmt.Sprintf("farkle-%v.log", command)
	f, err := os.OpenFile(fileName, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("Cannot open the log file %s: %w", fileName, err)
	}
	fmt.Fprintf(f, `farkle %v starts.
Date time: %v
---
`, command, time.Now().Format(time.RFC3339))
	return f, func(err error) {
		defer f.Close()
		fmt.Fprintf(f, "---\n")
		if err != nil {
			fmt.Fprintf(f, "farkle %v failed: %v\n", command, err)
		} else {
			fmt.Fprintf(f, "farkle %v succeeded.\n", command)
		}
	}, nil
}
