/*
Package chaosrpc provides a Store decorator that makes random calls fail.

It is meant for tests: putting it between a cache and its backing store shows
whether the cache stays consistent when the store is flaky.
*/
package chaosrpc // import "go.mercari.io/dscache/dsmiddleware/chaosrpc"
