/*
Package entitymemcache keeps the cached state of entities in a cache tier.

Each key maps to a Bucket that is unknown, present or negative (known not to exist).
Negative results are cached as well as positive ones.

Writes to the tier are optimistic.
GetAll reads every bucket together with a replacement token, adding an unknown placeholder for keys the tier has never seen.
PutAll then writes each bucket back with compare-and-swap against that token.
Empty evicts unconditionally, so a write-back that read its token before the eviction always loses, and no lock is ever taken.

The cache tier is pluggable through Storage.
See go.mercari.io/dscache/cache/localcache, dsmemcache, aememcache and rediscache.
*/
package entitymemcache // import "go.mercari.io/dscache/cache/entitymemcache"
