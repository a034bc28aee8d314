// Package paths defines archive record names and cache directory layout.
//
// # Archive Layout
//
//	<bootstrap executable bytes>
//	zip container:
//	  environment.json      (manifest, or environment.toml / environment.yaml)
//	  site-packages/        (dependency payload, extracted verbatim)
//
// # Cache Layout
//
//	<root>/
//	  app_<build id>/              (complete entry, contains .complete)
//	  app_<build id>.tmp-XXXX/     (staging, never visible under the final name)
//	  app_<build id>.run-XXXX/     (run-scoped extraction, removed on exit)
//
// # Usage
//
//	dir := paths.CacheDir(root, "/usr/local/bin/app", "7c1e...")
//	// <root>/app_7c1e...
package paths
