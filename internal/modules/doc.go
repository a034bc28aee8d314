/*
Package modules imports modules from the search path and resolves entry
point references against them.

Three kinds of module exist:

  - native modules are Go values registered in a Registry under a dotted name
  - script modules are CommonJS style JavaScript files (a/b.js or
    a/b/index.js) executed by an embedded goja runtime
  - command modules are executables (a/b) run as child processes

An Importer looks names up in that order, after first consulting its table
of already loaded modules, so a module body runs at most once per process.

References take the form module.path:attr.chain or module.path.attr. The
dotted form imports the longest prefix that names a module and walks the
rest as attributes.

	imp := modules.NewImporter(modules.Options{Path: sitepath.Default()})
	target, err := imp.Resolve("app.cli:main")
	code, err := imp.Call(ctx, target, os.Args[1:])
*/
package modules
