/*
Package dslog wraps a dscache.Store and logs every call made to it.
Every call gets a sequence number, so that a transcript can be compared as a whole.
*/
package dslog // import "go.mercari.io/dscache/dsmiddleware/dslog"
