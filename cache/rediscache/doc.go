/*
Package rediscache is a cache tier backed by Redis.
Conditional writes run as Lua scripts, so the server needs EVAL support.

Related document.

https://godoc.org/github.com/gomodule/redigo/redis
*/
package rediscache // import "go.mercari.io/dscache/cache/rediscache"
