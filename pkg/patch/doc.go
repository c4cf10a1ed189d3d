// Package patch prepares a static-php-cli checkout for a Windows-style build.
//
// Three adjustments are made before spc runs:
//
//   - a perl.bat shim that forwards to a real perl, with SPC_PERL and PATH
//     set in the build's command environment (never the process's)
//   - a quoting fix in src/globals/functions.php so commands passed to
//     passthru survive paths with spaces
//   - a copy of downloads/micro into source/php-src/sapi/micro
//
// Every patch is idempotent; applying it twice leaves the tree as applying
// it once did.
package patch
