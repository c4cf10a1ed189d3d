package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Abdallah-Tah/phpBuilder/pkg/config"
	"github.com/Abdallah-Tah/phpBuilder/pkg/deps"
	perrors "github.com/Abdallah-Tah/phpBuilder/pkg/errors"
	"github.com/Abdallah-Tah/phpBuilder/pkg/layout"
	"github.com/Abdallah-Tah/phpBuilder/pkg/library"
)

// depsOpts holds the command-line flags for the deps command.
type depsOpts struct {
	dir       string
	suggested bool
	dot       string
	svg       string
	json      string
	flags     library.Flags
}

// depsCommand creates the deps command.
func (c *CLI) depsCommand() *cobra.Command {
	var opts depsOpts

	cmd := &cobra.Command{
		Use:   "deps [ext...]",
		Short: "Resolve the library and extension build order",
		Long: `Resolve the build order from static-php-cli's lib.json and ext.json.

The configuration is read from <dir>/static-php-cli/config. With no
arguments the default extension set plus any selected database support is
resolved. Libraries always come before whatever depends on them; extension
nodes are printed with the ext@ prefix.`,
		Example: `  phpbuilder deps --dir /opt/php
  phpbuilder deps --dir /opt/php --suggested curl zip
  phpbuilder deps --dir /opt/php --mysql --svg deps.svg --json deps.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := perrors.ValidateRequired(map[string]string{"dir": opts.dir}, "dir"); err != nil {
				return err
			}
			exts := args
			if len(exts) == 0 {
				exts = library.Extensions(opts.flags)
			}
			for _, ext := range exts {
				if err := perrors.ValidateExtensionName(ext); err != nil {
					return err
				}
			}
			return c.runDeps(cmd.Context(), exts, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.dir, "dir", "d", "", "target directory holding static-php-cli")
	cmd.Flags().BoolVar(&opts.suggested, "suggested", false, "include suggested (optional) dependencies")
	cmd.Flags().StringVar(&opts.dot, "dot", "", "write the graph in DOT format to this file")
	cmd.Flags().StringVar(&opts.svg, "svg", "", "render the graph as SVG to this file")
	cmd.Flags().StringVar(&opts.json, "json", "", "write the order and edges as JSON to this file")
	cmd.Flags().BoolVar(&opts.flags.MySQL, "mysql", false, "include MySQL extensions")
	cmd.Flags().BoolVar(&opts.flags.SQLServer, "sqlsrv", false, "include SQL Server extensions")
	cmd.Flags().BoolVar(&opts.flags.Postgres, "postgres", false, "include PostgreSQL extensions")

	return cmd
}

func (c *CLI) runDeps(ctx context.Context, exts []string, opts depsOpts) error {
	target, err := filepath.Abs(opts.dir)
	if err != nil {
		return err
	}
	tree := layout.ForTarget(target)
	cfg, err := config.Load(tree.Root)
	if err != nil {
		return err
	}
	if !cfg.Available() {
		printNextStep("Clone static-php-cli first", "phpbuilder build --dir "+opts.dir+" --php-version <version> --until materialize")
		return perrors.New(perrors.ErrCodeConfiguration, "no static-php-cli configuration in %s", tree.Config())
	}
	c.Logger.Debug("loaded configuration", "config", cfg.String())

	g := deps.New(cfg)
	roots := make([]string, 0, len(exts))
	for _, ext := range exts {
		if err := g.RegisterExtension(ext); err != nil {
			return err
		}
		roots = append(roots, deps.ExtPrefix+ext)
	}
	order, err := g.Resolve(roots, opts.suggested)
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(order))
	for i, key := range order {
		kind, name := "library", key
		if deps.IsExtension(key) {
			kind, name = "extension", strings.TrimPrefix(key, deps.ExtPrefix)
		}
		node, _ := g.Node(key)
		rows = append(rows, []string{fmt.Sprintf("%d", i+1), name, kind, strings.Join(node.Depends, ", ")})
	}
	fmt.Println(renderTable([]string{"#", "Name", "Kind", "Depends on"}, rows, nil))
	printSuccess("%d libraries, %d nodes", len(deps.Libraries(order)), len(order))

	if opts.json != "" {
		if err := g.ExportJSON(opts.json, order, opts.suggested); err != nil {
			return perrors.Wrap(perrors.ErrCodeFileSystem, err, "write %s", opts.json)
		}
		printFile(opts.json)
	}
	if opts.dot == "" && opts.svg == "" {
		return nil
	}
	dot := g.ToDOT(order, opts.suggested)
	if opts.dot != "" {
		if err := os.WriteFile(opts.dot, []byte(dot), 0o644); err != nil {
			return perrors.Wrap(perrors.ErrCodeFileSystem, err, "write %s", opts.dot)
		}
		printFile(opts.dot)
	}
	if opts.svg != "" {
		spinner := newSpinnerWithContext(ctx, "Rendering graph...")
		spinner.Start()
		svg, err := deps.RenderSVG(ctx, dot)
		if err != nil {
			spinner.StopWithError("Rendering failed")
			return err
		}
		spinner.Stop()
		if err := os.WriteFile(opts.svg, svg, 0o644); err != nil {
			return perrors.Wrap(perrors.ErrCodeFileSystem, err, "write %s", opts.svg)
		}
		printFile(opts.svg)
	}
	return nil
}
