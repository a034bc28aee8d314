/*
Package cache extracts archive payloads into a shared cache root.

Each build identity owns one directory, root/{archive}_{build}, that is
valid only once it contains a .complete marker. Extraction happens in a
staging sibling ({name}.tmp-*) that is renamed into place, so concurrent
processes never observe a partial directory. Whoever renames last loses
the race and discards its copy.

Leftover staging siblings older than StaleAfter are swept by later runs.
Retired ({name}.old-*) siblings are swept only once a complete entry is back
at the final path. Run-scoped ({name}.run-*) directories are removed by their
owner and never swept.
*/
package cache
