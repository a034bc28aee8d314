// Package pack writes archives the bootstrap can open.
//
// It is the assembler-side half of the archive contract: the manifest key
// set (see package config) and the payload prefix (see package paths). It
// does not install dependencies; PayloadDir must already hold the tree that
// should appear under site-packages/ at run time.
//
// Example Usage:
//
//	res, err := pack.Build(ctx, pack.Options{
//	    Output:     "dist/app",
//	    HeaderPath: "bin/satchel",
//	    PayloadDir: "build/site-packages",
//	    Manifest:   config.Manifest{EntryPoint: &ep},
//	    Exclude:    []string{"**/*.map"},
//	})
package pack
