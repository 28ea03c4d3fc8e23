/*
Package hybrid turns the result of a keys-only query into a stream of loaded entities.

Keys are taken from the query in chunks. Each chunk is loaded as one batch, and
the next chunk is not pulled before the batch has completed. Keys whose entity
is gone by the time it is loaded are dropped from the stream.

CursorAfter always points just behind the last key that was consumed, dropped
keys included, so a query resumed from it neither repeats nor skips anything.
*/
package hybrid // import "go.mercari.io/dscache/hybrid"
