// Package config resolves the bootstrap's effective runtime configuration.
//
// Three layers are merged, lowest precedence first:
//   - Compiled defaults (settable at link time with -ldflags -X)
//   - The manifest embedded in the archive by the assembler
//   - Environment overrides
//
// Resolution never fails. A malformed manifest value or environment value
// is reported as a ConfigurationError and the next lower layer is used.
//
// Environment Variables:
//   - SATCHEL_ENTRY_POINT: entry point reference, literal (empty clears it)
//   - SATCHEL_INTERPRETER: any non-empty value opens an interactive session
//   - SATCHEL_ROOT: cache root directory, literal
//   - SATCHEL_FORCE_EXTRACT: any non-empty value forces re-extraction
//   - SATCHEL_COMPILE: any non-empty value pre-compiles script modules
//   - SATCHEL_COMPILE_WORKERS: compile parallelism (integer, 0 = CPU count)
//   - SATCHEL_LOG_LEVEL, SATCHEL_LOG_DEV: bootstrap logging
//   - SATCHEL_METRICS_FILE: write extraction metrics to this textfile
//
// Example Usage:
//
//	overrides, _ := config.LoadOverrides()
//	eff, problems := config.Resolve(config.CompiledDefaults(), manifest, overrides)
package config
