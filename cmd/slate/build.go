package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"slate/internal/diag"
	"slate/internal/ir"
	"slate/internal/irgen"
	"slate/internal/layout"
	"slate/internal/project"
	"slate/internal/source"
)

var buildCmd = &cobra.Command{
	Use:   "build [files...]",
	Short: "Compile root files to backend IR artefacts",
	Long: `Compile each root file to a .mpir artefact next to it. With no
arguments the entry file from slate.toml is built.`,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringP("output", "o", "", "output path (single input only)")
}

func runBuild(cmd *cobra.Command, args []string) error {
	target, err := resolveTarget(cmd)
	if err != nil {
		return err
	}

	roots := args
	if len(roots) == 0 {
		manifestPath, ok, err := project.Find(".")
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no slate.toml found\nplease specify a root file, e.g.:\n  slate build src/main.sl")
		}
		manifest, err := project.Load(manifestPath)
		if err != nil {
			return err
		}
		entry, ok := manifest.Entry()
		if !ok {
			return fmt.Errorf("%s: missing build.entry", manifestPath)
		}
		roots = []string{entry}
	}

	output, _ := cmd.Flags().GetString("output")
	if output != "" && len(roots) > 1 {
		return fmt.Errorf("-o is only valid with a single root file")
	}

	colored := useColor(cmd, os.Stderr)

	// Each root compiles in its own core; cores share nothing.
	var group errgroup.Group
	for _, root := range roots {
		root := root
		group.Go(func() error {
			statics, _, err := compileRoot(target, root, colored)
			if err != nil {
				return err
			}
			out := output
			if out == "" {
				out = defaultOutputPath(root)
			}
			if err := ir.WriteFile(out, statics); err != nil {
				return fmt.Errorf("%s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d statics\n", out, len(statics))
			return nil
		})
	}
	return group.Wait()
}

// compileRoot runs the core on one root file, rendering any diagnostics to
// stderr.
func compileRoot(target layout.Target, root string, colored bool) ([]ir.Static, *source.FileSet, error) {
	files := source.NewFileSet()
	bag := diag.NewBag()
	gen := irgen.New(target, files, diag.BagReporter{Bag: bag})
	statics, err := gen.Generate(root)

	if bag.Len() > 0 {
		renderer := &diag.Renderer{Out: os.Stderr, Files: files, Colored: colored}
		for _, d := range bag.Items() {
			renderer.Render(d)
		}
	}
	if err != nil {
		return nil, files, fmt.Errorf("%s: compilation failed", root)
	}
	return statics, files, nil
}

func resolveTarget(cmd *cobra.Command) (layout.Target, error) {
	addressBits, _ := cmd.Flags().GetInt("address-size")
	defaultBits, _ := cmd.Flags().GetInt("default-int-size")

	target := layout.X86_64()
	if manifestPath, ok, err := project.Find("."); err == nil && ok {
		manifest, err := project.Load(manifestPath)
		if err != nil {
			return layout.Target{}, err
		}
		target, err = manifest.Target()
		if err != nil {
			return layout.Target{}, err
		}
	}

	if addressBits != 0 || defaultBits != 0 {
		if addressBits == 0 {
			addressBits = int(target.AddressSize)
		}
		if defaultBits == 0 {
			defaultBits = int(target.DefaultIntegerSize)
		}
		return layout.TargetFromBits(addressBits, defaultBits)
	}
	return target, nil
}

func defaultOutputPath(root string) string {
	base := strings.TrimSuffix(root, filepath.Ext(root))
	return base + ".mpir"
}
