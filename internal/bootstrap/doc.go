/*
Package bootstrap wires the runtime together for one process run.

Run performs, in order: logger setup from the environment, self-detection
of the archive, configuration resolution, payload extraction, search path
injection and launch. It returns the exit status; the caller passes it to
os.Exit once deferred cleanup (ephemeral cache directories, the metrics
textfile) has run.

When the running executable is not an archive the extraction steps are
skipped and the bootstrap behaves as a plain runtime over SATCHEL_PATH.
*/
package bootstrap
