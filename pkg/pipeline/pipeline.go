// Package pipeline runs a complete static PHP build.
//
// A build is a fixed sequence of phases:
//
//  1. validate: check the request
//  2. tools: make sure php and composer are available
//  3. materialize: clone static-php-cli into <target>/static-php-cli
//  4. patch: perl shim and the f_passthru quoting fix
//  5. composer: install spc's PHP dependencies
//  6. dependencies: fetch and extract every native library
//  7. micro: copy the micro SAPI into the extracted php-src
//  8. build: spc build with the selected extensions
//  9. verify: run the binary with -m
//
// Each library moves through an explicit state machine during the
// dependencies phase (see [State]). Fetch strategies are tried in order; the
// first that produces an archive wins. Extraction failures abort the run.
//
// # Usage
//
//	r := pipeline.NewRunner(command.NewExecRunner(logger), mirrors, logger)
//	report, err := r.Run(ctx, config.BuildRequest{
//	    TargetDirectory: "/opt/php",
//	    PHPVersion:      "8.4.7",
//	    MySQL:           true,
//	})
//
// Every log line of a run carries the same run id.
package pipeline

import (
	"slices"
	"time"

	perrors "github.com/Abdallah-Tah/phpBuilder/pkg/errors"
)

// Phase names, in execution order.
const (
	PhaseValidate     = "validate"
	PhaseTools        = "tools"
	PhaseMaterialize  = "materialize"
	PhasePatch        = "patch"
	PhaseComposer     = "composer"
	PhaseDependencies = "dependencies"
	PhaseMicro        = "micro"
	PhaseBuild        = "build"
	PhaseVerify       = "verify"
)

// Phases lists every phase in execution order.
var Phases = []string{
	PhaseValidate, PhaseTools, PhaseMaterialize, PhasePatch, PhaseComposer,
	PhaseDependencies, PhaseMicro, PhaseBuild, PhaseVerify,
}

// ValidatePhase checks that name is a known phase. Empty is accepted.
func ValidatePhase(name string) error {
	if name == "" || slices.Contains(Phases, name) {
		return nil
	}
	return perrors.New(perrors.ErrCodeValidation, "unknown phase %q", name)
}

// Report describes one run. It is returned even when the run fails, with
// whatever was reached.
type Report struct {
	RunID     string
	Target    string // static-php-cli working directory
	Binary    string // Built php binary, set after verify
	Order     []string
	Libraries []Library
	Modules   []string // Output of php -m
	Phases    []PhaseTiming
	Duration  time.Duration
}

// PhaseTiming records how long one phase took.
type PhaseTiming struct {
	Name     string
	Duration time.Duration
	Err      error
}

// Library returns the outcome for name.
func (r *Report) Library(name string) (Library, bool) {
	for _, l := range r.Libraries {
		if l.Name == name {
			return l, true
		}
	}
	return Library{}, false
}

// Failed returns the libraries that did not reach READY or SKIPPED.
func (r *Report) Failed() []string {
	var out []string
	for _, l := range r.Libraries {
		if l.State != Ready && l.State != Skipped {
			out = append(out, l.Name)
		}
	}
	return out
}
