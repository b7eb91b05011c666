package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"slate/internal/ir"
)

var irCmd = &cobra.Command{
	Use:   "ir <file>",
	Short: "Compile a root file and print its IR",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := resolveTarget(cmd)
		if err != nil {
			return err
		}
		statics, _, err := compileRoot(target, args[0], useColor(cmd, os.Stderr))
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), ir.Print(statics))
		return nil
	},
}
