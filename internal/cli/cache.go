package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Abdallah-Tah/phpBuilder/pkg/cache"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the download mirror cache",
		Long: `Manage the cache of working download mirrors.

With --dir the cache of that build tree is used; otherwise the per-user
cache under $XDG_CACHE_HOME/phpbuilder (or ~/.cache/phpbuilder).`,
	}
	cmd.PersistentFlags().StringVarP(&dir, "dir", "d", "", "target directory holding static-php-cli")

	cmd.AddCommand(c.cacheClearCommand(&dir))
	cmd.AddCommand(c.cachePathCommand(&dir))

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand(target *string) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Forget every cached mirror",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := cacheDir(*target)
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}

			if _, err := os.Stat(dir); os.IsNotExist(err) {
				printInfo("Cache is empty")
				return nil
			}

			fc, err := cache.NewFileCache(dir)
			if err != nil {
				return err
			}
			count, err := fc.Clear()
			if err != nil {
				return err
			}

			printSuccess("Cleared %d cached entries", count)
			printDetail("Directory: %s", dir)
			return nil
		},
	}
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand(target *string) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := cacheDir(*target)
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}
			fmt.Println(dir)
			return nil
		},
	}
}
