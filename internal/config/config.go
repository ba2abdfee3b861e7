// Package config reads the environment-variable knobs the extraction
// pipeline accepts, so limits and verbosity can be tuned without a flag
// for every option. The core packages (pe, x86, uir, classify, codegen)
// never read the environment themselves: the orchestrator calls FromEnv
// once and passes the resulting plain values down.
package config

import "github.com/xyproto/env/v2"

// Limits bounds how much of a driver binary's import and export tables the
// pipeline is willing to walk, guarding against pathological tables in
// malformed or hostile input.
type Limits struct {
	MaxImportDLLs  int
	MaxImportFuncs int
	MaxExports     int
}

// DefaultLimits are used whenever the corresponding environment variable
// is unset or unparsable.
var DefaultLimits = Limits{
	MaxImportDLLs:  1000,
	MaxImportFuncs: 10000,
	MaxExports:     10000,
}

// Config is the full set of environment-sourced knobs.
type Config struct {
	Limits  Limits
	Verbose bool
}

// FromEnv reads SYSEXTRACT_MAX_* and SYSEXTRACT_VERBOSE from the
// environment, falling back to DefaultLimits and false respectively.
func FromEnv() Config {
	return Config{
		Limits: Limits{
			MaxImportDLLs:  env.Int("SYSEXTRACT_MAX_IMPORT_DLLS", DefaultLimits.MaxImportDLLs),
			MaxImportFuncs: env.Int("SYSEXTRACT_MAX_IMPORT_FUNCS", DefaultLimits.MaxImportFuncs),
			MaxExports:     env.Int("SYSEXTRACT_MAX_EXPORTS", DefaultLimits.MaxExports),
		},
		Verbose: env.Bool("SYSEXTRACT_VERBOSE", false),
	}
}
