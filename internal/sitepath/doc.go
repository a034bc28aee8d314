/*
Package sitepath maintains the ordered module search path.

The search path is a list of directories consulted in order when a module is
imported. Directories whose base name is site-packages or dist-packages are
site directories; an extracted archive payload is placed immediately before
the first of them so that bundled dependencies shadow anything installed
system-wide while the entries ahead of the site directories keep priority.

The process-wide path is seeded from SATCHEL_PATH and can be exported back
to it so child processes see the same view.
*/
package sitepath
