/*
Package dscache has the data model shared by a consistency-aware entity cache and its query hydration layer.

repository https://github.com/mercari/dscache


Overview

The cache sits in front of a remote key-value entity store (see Store).
Reads are served from a cache tier when possible; misses are fetched in a single batch from the store and written back to the cache.
Writes never put values in the cache, they only evict.
Transactional reads bypass the cache, and a successful commit evicts every key the transaction touched.

The packages are layered as follows.

	cache/entitymemcache  Bucket and the Entity Cache Store (optimistic, token based replace)
	cache/localcache      in-process cache tier
	cache/dsmemcache      memcached cache tier
	cache/aememcache      App Engine memcache cache tier
	cache/rediscache      Redis cache tier
	cache/dslog           cache tier call logging
	cache/promstats       Prometheus hit and miss counters
	future                asynchronous result handles and their composition
	cachestore            caching reader/writer, async store, transaction and load engine
	hybrid                turns a keys-only query into a stream of loaded entities
	clouddatastore        Store implementation backed by Cloud Datastore
	aedatastore           Store implementation backed by the App Engine datastore
	dsmiddleware/...      Store decorators (logging, retry, split, keys-only rewrite, chaos)


Consistency

The cache has near-transactional integrity.
Every cache entry carries a replacement token, and a write-back only succeeds when the token it was read with is still current.
An eviction always wins against a slower read that started before it.
The cache can only go out of sync if an eviction is lost because the cache tier was unreachable, and then only until the entry expires.


Hydration

A query run as keys-only is cheap.
Package hybrid loads the keys of such a query in chunks through the cache, drops keys whose entity disappeared in the meantime,
and keeps a cursor that is always safe to resume from.
*/
package dscache // import "go.mercari.io/dscache"
