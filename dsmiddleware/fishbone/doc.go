/*
Package fishbone rewrites every query to KeysOnly before it reaches the backing store.

A dscache.Iterator only reports keys, so reading whole entities in a query is
paid for and thrown away. Load the entities through the cache instead,
package hybrid does that in chunks.

Why fishbone?

The query keeps its bones (the keys) and leaves the meat to the cache.
*/
package fishbone // import "go.mercari.io/dscache/dsmiddleware/fishbone"
