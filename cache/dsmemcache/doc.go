/*
Package dsmemcache is a cache tier backed by memcached.
Replacement tokens are memcached CAS ids.

Related document.

https://godoc.org/github.com/bradfitz/gomemcache/memcache
https://godoc.org/go.mercari.io/dscache/cache/entitymemcache
*/
package dsmemcache // import "go.mercari.io/dscache/cache/dsmemcache"
