/*
Package aememcache is a cache tier backed by App Engine memcache.
It works only with an App Engine context.

Related document.

https://godoc.org/google.golang.org/appengine/memcache
*/
package aememcache // import "go.mercari.io/dscache/cache/aememcache"
