package main

import (
	"fmt"
	"io"
	"os"

	"chunkmap/internal/errors"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

// printError writes err and, for chunkmap errors, the suggested fixes.
func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)

	var ce *errors.ChunkmapError
	if !asChunkmapError(err, &ce) || len(ce.SuggestedFixes) == 0 {
		return
	}
	fmt.Fprintln(w, "\nSuggested fixes:")
	for _, fix := range ce.SuggestedFixes {
		switch {
		case fix.Command != "":
			fmt.Fprintf(w, "  - %s: %s\n", fix.Description, fix.Command)
		case fix.Key != "":
			fmt.Fprintf(w, "  - %s (%s)\n", fix.Description, fix.Key)
		default:
			fmt.Fprintf(w, "  - %s\n", fix.Description)
		}
	}
}
