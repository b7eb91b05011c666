package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"slate/internal/ast"
	"slate/internal/diag"
	"slate/internal/parser"
	"slate/internal/source"
)

var parseCmd = &cobra.Command{
	Use:   "parse <file>",
	Short: "Parse a file and print its syntax tree",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files := source.NewFileSet()
		id, err := files.Load(args[0])
		if err != nil {
			return err
		}
		bag := diag.NewBag()
		stmts, err := parser.ParseFile(id, files.Get(id).Path, files.Get(id).Content, diag.BagReporter{Bag: bag})
		renderer := &diag.Renderer{Out: os.Stderr, Files: files, Colored: useColor(cmd, os.Stderr)}
		for _, d := range bag.Items() {
			renderer.Render(d)
		}
		if err != nil {
			return fmt.Errorf("%s: parsing failed", args[0])
		}
		fmt.Fprint(cmd.OutOrStdout(), ast.Dump(stmts))
		return nil
	},
}
