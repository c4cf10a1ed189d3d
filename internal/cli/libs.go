package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/Abdallah-Tah/phpBuilder/pkg/library"
)

// libsCommand creates the libs command.
func (c *CLI) libsCommand() *cobra.Command {
	var phpVersion string

	cmd := &cobra.Command{
		Use:   "libs",
		Short: "List the pinned libraries and their download sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := library.NewResolver(phpVersion)
			if err != nil {
				return err
			}
			fmt.Println(libsTable(r))
			return nil
		},
	}

	cmd.Flags().StringVarP(&phpVersion, "php-version", "p", "", "PHP version shown for php-src (default: pinned)")
	return cmd
}

// libsTable renders one row per library in the table.
func libsTable(r *library.Resolver) string {
	names := r.Names()
	rows := make([][]string, 0, len(names))
	for _, name := range names {
		s := r.ResolveCandidates(name)
		version, kind, main := s.Version, "archive", "-"
		if version == "" {
			version = "-"
		}
		if s.Directory {
			kind = "directory"
		}
		if len(s.Candidates) > 0 {
			main = shortSource(s.Candidates[0].URL)
		}
		rows = append(rows, []string{name, version, kind, fmt.Sprintf("%d", len(s.Candidates)), main})
	}
	return renderTable([]string{"Library", "Version", "Kind", "Mirrors", "Main"}, rows, func(row, col int) lipgloss.Style {
		if col == 0 {
			return lipgloss.NewStyle().Foreground(colorCyan)
		}
		return lipgloss.NewStyle()
	})
}
