/*
Package splitop provides a Store decorator that keeps batches under the backing store's per call limits.
*/
package splitop // import "go.mercari.io/dscache/dsmiddleware/splitop"
