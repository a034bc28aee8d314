// Package compile pre-compiles script units in an extracted payload.
//
// Tree walks a directory with fastwalk, selects units with doublestar
// patterns and compiles them through an errgroup with a bounded number of
// workers. A unit that fails to compile is recorded, not fatal: the unit may
// never be loaded.
//
// ScriptCompiler is the default Compiler. It checks each unit with goja and
// writes the wrapped module source to a sidecar (app.js -> app.jsc) that the
// module loader uses when its source digest still matches.
package compile
