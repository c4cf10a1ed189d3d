package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Abdallah-Tah/phpBuilder/pkg/config"
	"github.com/Abdallah-Tah/phpBuilder/pkg/library"
	"github.com/Abdallah-Tah/phpBuilder/pkg/pipeline"
)

// buildOpts holds the command-line flags for the build command.
type buildOpts struct {
	req         config.BuildRequest // Values given as flags
	configFile  string              // TOML or YAML request file
	envFile     string              // .env overrides
	interactive bool                // pick database features in a TUI
	until       string              // stop after this phase
	noCache     bool                // do not remember working mirrors
	report      string              // write the run report as JSON here
}

// request combines the request file, flags and .env file. Flags win over the
// file, and the file wins over .env.
func (o *buildOpts) request() (config.BuildRequest, error) {
	var req config.BuildRequest
	if o.configFile != "" {
		file, err := config.LoadRequest(o.configFile)
		if err != nil {
			return req, err
		}
		req = file
	}
	req = req.Merge(o.req)
	if o.envFile != "" {
		if err := config.ApplyEnvFile(&req, o.envFile); err != nil {
			return req, err
		}
	}
	return req.WithDefaults(), nil
}

// buildCommand creates the build command.
func (c *CLI) buildCommand() *cobra.Command {
	opts := buildOpts{envFile: ".env"}

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build a static PHP binary",
		Long: `Build a static PHP binary with static-php-cli.

The build clones static-php-cli into <dir>/static-php-cli, installs its
composer dependencies, fetches and extracts every native library and runs
spc build with the default extension set plus any selected database support.

Settings can come from flags, a request file (--config build.toml or
build.yaml) and a .env file providing PHPBUILDER_PERL, PHPBUILDER_JOBS and
PHPBUILDER_SEVENZIP. Flags take precedence.`,
		Example: `  phpbuilder build --dir /opt/php --php-version 8.4.7 --mysql
  phpbuilder build --config build.toml --interactive
  phpbuilder build --dir /opt/php --php-version 8.3.4 --until dependencies`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := pipeline.ValidatePhase(opts.until); err != nil {
				return err
			}
			req, err := opts.request()
			if err != nil {
				return err
			}
			if opts.interactive {
				flags, err := pickFeatures(cmd.Context(), req.Flags())
				if err != nil {
					return err
				}
				req.MySQL, req.SQLServer, req.Postgres = flags.MySQL, flags.SQLServer, flags.Postgres
			}
			return c.runBuild(cmd.Context(), req, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.req.TargetDirectory, "dir", "d", "", "target directory (static-php-cli is cloned into <dir>/static-php-cli)")
	cmd.Flags().StringVarP(&opts.req.PHPVersion, "php-version", "p", "", "PHP version to build, e.g. 8.4.7")
	cmd.Flags().BoolVar(&opts.req.MySQL, "mysql", false, "include MySQL support")
	cmd.Flags().BoolVar(&opts.req.SQLServer, "sqlsrv", false, "include SQL Server support")
	cmd.Flags().BoolVar(&opts.req.Postgres, "postgres", false, "include PostgreSQL support")
	cmd.Flags().IntVarP(&opts.req.Jobs, "jobs", "j", 0, fmt.Sprintf("parallel compile jobs (default %d)", config.DefaultJobs))
	cmd.Flags().StringVar(&opts.req.PerlPath, "perl", "", "perl executable to use")
	cmd.Flags().StringVar(&opts.req.SevenZip, "sevenzip", "", "7z executable used when built-in extraction fails")
	cmd.Flags().BoolVar(&opts.req.Debug, "debug", false, "pass --debug to spc build")
	cmd.Flags().BoolVar(&opts.req.PreferHTTP, "prefer-http", false, "download with the built-in HTTP client instead of curl")
	cmd.Flags().StringVarP(&opts.configFile, "config", "c", "", "request file (.toml, .yaml or .yml)")
	cmd.Flags().StringVar(&opts.envFile, "env-file", opts.envFile, "dotenv file with PHPBUILDER_* overrides")
	cmd.Flags().BoolVarP(&opts.interactive, "interactive", "i", false, "choose database support interactively")
	cmd.Flags().StringVar(&opts.until, "until", "", "stop after a phase: "+strings.Join(pipeline.Phases, ", "))
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "do not read or remember working mirrors")
	cmd.Flags().StringVar(&opts.report, "report", "", "write a JSON report of the run to this file")

	return cmd
}

// runBuild runs the pipeline and prints a summary.
func (c *CLI) runBuild(ctx context.Context, req config.BuildRequest, opts buildOpts) error {
	mirrors, err := newMirrorCache(req.TargetDirectory, opts.noCache)
	if err != nil {
		return fmt.Errorf("open mirror cache: %w", err)
	}
	defer mirrors.Close()

	r := pipeline.NewRunner(c.runner(), mirrors, c.Logger)
	r.StopAfter = opts.until

	printInfo("Building PHP %s with %s", StyleHighlight.Render(req.PHPVersion), library.ExtensionList(req.Flags()))
	report, err := r.Run(ctx, req)
	if len(report.Libraries) > 0 {
		fmt.Println(libraryTable(report.Libraries))
	}
	if opts.report != "" {
		if werr := report.ExportJSON(opts.report); werr != nil {
			c.Logger.Warn("report not written", "path", opts.report, "err", werr)
		} else {
			printFile(opts.report)
		}
	}
	if err != nil {
		return err
	}

	if opts.until != "" && report.Binary == "" {
		printSuccess("Stopped after %s", opts.until)
		printNextStep("Continue with", "phpbuilder build --dir "+req.TargetDirectory+" --php-version "+req.PHPVersion)
		return nil
	}
	printSuccess("Built PHP %s", req.PHPVersion)
	printKeyValue("Binary", report.Binary)
	printKeyValue("Modules", fmt.Sprintf("%d", len(report.Modules)))
	printKeyValue("Run", report.RunID)
	printKeyValue("Duration", report.Duration.Round(time.Millisecond).String())
	return nil
}
