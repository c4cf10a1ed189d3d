package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Abdallah-Tah/phpBuilder/pkg/archive"
	perrors "github.com/Abdallah-Tah/phpBuilder/pkg/errors"
	"github.com/Abdallah-Tah/phpBuilder/pkg/fsops"
	"github.com/Abdallah-Tah/phpBuilder/pkg/layout"
)

func (c *CLI) extractor(sevenZip string) *archive.Extractor {
	runner := c.runner()
	x := archive.NewExtractor(fsops.New(runner, c.Logger), c.Logger)
	x.SevenZip = sevenZip
	x.Runner = runner
	return x
}

// extractCommand creates the extract command.
func (c *CLI) extractCommand() *cobra.Command {
	var (
		lib      string
		sevenZip string
		nested   bool
	)

	cmd := &cobra.Command{
		Use:   "extract <archive> <target>",
		Short: "Extract an archive into a normalized source directory",
		Long: `Extract an archive into a normalized source directory.

The archive is unpacked into a scratch directory next to the target first.
Wrapper directories are stripped, so <target> ends up holding the sources
directly. The target is only replaced once extraction succeeded.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, target := args[0], args[1]
			if archive.Classify(src) == archive.Unknown {
				return perrors.New(perrors.ErrCodeUnsupported, "unsupported archive format: %s", filepath.Base(src))
			}
			if lib == "" {
				lib = libFromArchive(src)
			}

			x := c.extractor(sevenZip)
			spinner := newSpinnerWithContext(cmd.Context(), fmt.Sprintf("Extracting %s...", filepath.Base(src)))
			spinner.Start()
			out := x.Extract(cmd.Context(), src, target, lib)
			if !out.OK {
				spinner.StopWithError("Extraction failed")
				return out.Err
			}
			expanded := 0
			if nested {
				spinner.Update("Expanding nested archives...")
				n, err := x.ExpandNested(cmd.Context(), out.Dir)
				if err != nil {
					c.Logger.Warn("nested archives left in place", "err", err)
				}
				expanded = n
			}
			spinner.StopWithSuccess(fmt.Sprintf("Extracted %d files", out.Files))
			if expanded > 0 {
				printDetail("Expanded %d nested archives", expanded)
			}
			printFile(out.Dir)
			return nil
		},
	}

	cmd.Flags().StringVar(&lib, "lib", "", "library name used to pick the source directory (default: derived from the archive name)")
	cmd.Flags().StringVar(&sevenZip, "sevenzip", "", "7z executable used when built-in extraction fails")
	cmd.Flags().BoolVar(&nested, "nested", true, "expand archives found inside the extracted tree")

	return cmd
}

// expandCommand creates the expand command.
func (c *CLI) expandCommand() *cobra.Command {
	var sevenZip string

	cmd := &cobra.Command{
		Use:   "expand <dir>",
		Short: "Expand archives left inside a source directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := c.extractor(sevenZip).ExpandNested(cmd.Context(), args[0])
			if n > 0 {
				printSuccess("Expanded %d nested archives", n)
			}
			if err != nil {
				return err
			}
			if n == 0 {
				printInfo("No nested archives in %s", args[0])
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&sevenZip, "sevenzip", "", "7z executable used when built-in extraction fails")
	return cmd
}

// repairCommand creates the repair command.
func (c *CLI) repairCommand() *cobra.Command {
	var (
		dir      string
		sevenZip string
	)

	cmd := &cobra.Command{
		Use:   "repair",
		Short: "Re-extract library sources that are empty or still archived",
		Long: `Walk <dir>/static-php-cli/source and make sure every library directory
holds sources. Nested archives are expanded in place; directories left
empty are re-extracted from the matching archive in downloads/.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := perrors.ValidateRequired(map[string]string{"dir": dir}, "dir"); err != nil {
				return err
			}
			target, err := filepath.Abs(dir)
			if err != nil {
				return err
			}
			tree := layout.ForTarget(target)
			restored, err := c.extractor(sevenZip).Repair(cmd.Context(), tree.Source(), tree.Downloads())
			if err != nil {
				return perrors.Wrap(perrors.ErrCodeBuild, err, "repair %s", tree.Source())
			}
			if len(restored) == 0 {
				printSuccess("All library sources are in place")
				return nil
			}
			printSuccess("Re-extracted %d libraries", len(restored))
			printDetail("%s", strings.Join(restored, ", "))
			return nil
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", "", "target directory")
	cmd.Flags().StringVar(&sevenZip, "sevenzip", "", "7z executable used when built-in extraction fails")
	return cmd
}

// libFromArchive guesses the library name from an archive file name:
// "zlib-1.3.1.tar.gz" gives "zlib".
func libFromArchive(path string) string {
	name := archive.TrimSuffix(filepath.Base(path))
	for i := 0; i < len(name)-1; i++ {
		if name[i] == '-' && name[i+1] >= '0' && name[i+1] <= '9' {
			return name[:i]
		}
	}
	return name
}
