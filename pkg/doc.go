// Package pkg holds the libraries behind phpbuilder.
//
// # Overview
//
// phpbuilder drives static-php-cli (spc) to produce a self-contained PHP
// binary. The packages fall into three groups:
//
//  1. Domain: [library] (pinned versions and mirrors), [deps] (build
//     order from spc's lib.json and ext.json), [archive] (extraction and
//     source-tree normalization), [download] (fetch strategies), [patch]
//     (host fixes applied to spc) and [spc] (the spc toolchain itself).
//  2. Orchestration: [pipeline] runs the phases of a build and tracks every
//     library through its state machine.
//  3. Infrastructure: [command] (external processes with explicit
//     environments), [fsops] (file system helpers), [httputil] (retrying
//     HTTP), [cache] (remembered mirrors), [config] (spc configuration and
//     build requests), [layout] (paths inside the spc tree), [errors] and
//     [observability].
//
// # Data flow
//
//	BuildRequest (flags, TOML/YAML file, .env)
//	         ↓
//	    [pipeline] validate → tools → materialize → patch → micro → composer
//	         ↓
//	    [deps] order  →  [download] Tool, then Manual  →  [archive] extract
//	         ↓
//	    [spc] build → verify (php -m)
//
// # Quick Start
//
//	logger := log.New(os.Stderr)
//	mirrors, _ := cache.NewFileCache(dir)
//	r := pipeline.NewRunner(command.NewExecRunner(logger), mirrors, logger)
//	report, err := r.Run(ctx, config.BuildRequest{
//	    TargetDirectory: "/opt/php",
//	    PHPVersion:      "8.4.7",
//	})
package pkg
