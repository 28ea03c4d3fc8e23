/*
Package aedatastore provides a dscache.Store backed by the App Engine datastore API.

Every call must be made with a context derived from an App Engine request.
Transactions are cross group and are tried exactly once; retrying is up to the caller.
*/
package aedatastore // import "go.mercari.io/dscache/aedatastore"
