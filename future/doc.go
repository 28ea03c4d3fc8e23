/*
Package future provides a small asynchronous result handle and the two
combinators the cache is built on: TriggerOnSuccess, which runs a side effect
exactly when a fetch succeeds, and Merge, which joins already known values
with a pending batch.
*/
package future // import "go.mercari.io/dscache/future"
