/*
Command satchel is the bootstrap of a self-contained executable archive.

An archive is this binary with a zip container appended. Its payload lives
under site-packages/ and its settings in an environment.json, .toml or
.yaml record. On start the bootstrap extracts the payload once into
$SATCHEL_ROOT (default ~/.satchel), puts it on the module search path and
calls the configured entry point, or opens a JavaScript REPL when there is
none.

Environment:

	SATCHEL_ENTRY_POINT      module.path:attribute to call; empty for a REPL
	SATCHEL_INTERPRETER      non-empty: ignore the entry point, start a REPL
	SATCHEL_ROOT             cache root directory
	SATCHEL_FORCE_EXTRACT    non-empty: extract even if a cache entry exists
	SATCHEL_COMPILE          non-empty: pre-compile scripts during extraction
	SATCHEL_COMPILE_WORKERS  compile parallelism, 0 for one per CPU
	SATCHEL_LOG_LEVEL        debug, info, warn (default) or error
	SATCHEL_LOG_DEV          non-empty: human readable debug logging
	SATCHEL_METRICS_FILE     write extraction metrics in Prometheus text format
	SATCHEL_PATH             extra search path entries

Run on its own, without an appended archive, satchel is a plain runtime
over SATCHEL_PATH.
*/
package main
