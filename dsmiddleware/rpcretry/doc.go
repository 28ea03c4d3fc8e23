/*
Package rpcretry provides a Store decorator that retries transient failures of the backing store.

Errors carrying a gRPC status are retried when the code is one of
Unavailable, DeadlineExceeded, Internal, ResourceExhausted, Aborted or Unknown.
MultiError, context errors and the dscache sentinel errors are returned at once.
Transaction commits and query iteration are never retried.
*/
package rpcretry // import "go.mercari.io/dscache/dsmiddleware/rpcretry"
