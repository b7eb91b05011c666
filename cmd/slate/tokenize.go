package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"slate/internal/diag"
	"slate/internal/lexer"
	"slate/internal/source"
)

var tokenizeCmd = &cobra.Command{
	Use:   "tokenize <file>",
	Short: "Print the token stream of a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files := source.NewFileSet()
		id, err := files.Load(args[0])
		if err != nil {
			return err
		}
		bag := diag.NewBag()
		tokens, ok := lexer.Tokenize(id, files.Get(id).Content, diag.BagReporter{Bag: bag})
		renderer := &diag.Renderer{Out: os.Stderr, Files: files, Colored: useColor(cmd, os.Stderr)}
		for _, d := range bag.Items() {
			renderer.Render(d)
		}
		for _, tok := range tokens {
			pos := files.Position(tok.Span)
			fmt.Fprintf(cmd.OutOrStdout(), "%4d:%-3d %s\n", pos.Line, pos.Col, tok)
		}
		if !ok {
			return fmt.Errorf("%s: lexing failed", args[0])
		}
		return nil
	},
}
