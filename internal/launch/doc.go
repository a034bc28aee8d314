/*
Package launch transfers control to the configured entry point.

A Launcher is in one of two dispatch states. DispatchCallable resolves the
entry point reference through a modules.Importer and calls it.
DispatchInteractive runs a script named by the first argument or, without
one, reads statements from stdin in a JavaScript REPL. The interpreter
override always selects DispatchInteractive.

Exit statuses follow sysexits(3) where the bootstrap itself fails:

	0   success
	n   the entry point's own status
	70  the entry point could not be resolved or called (EX_SOFTWARE)
	74  the payload could not be extracted (EX_IOERR)
*/
package launch
