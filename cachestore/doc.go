/*
Package cachestore puts an entitymemcache.Memcache in front of a dscache.Store.

Reads

Get looks up every key in the cache first. Cached entities are served, cached
absences are omitted, and the remaining keys are fetched from the backing store
in one GetMulti. The fetched values are written back to the cache before the
returned future completes, so a caller that sees the value also sees a cache
that has it (or lost a race to a newer write, which is fine).

Writes

PutMulti and DeleteMulti write to the backing store and then evict the touched
keys. The cache is never written with a value that did not come from a read.

Transactions

Reads inside a transaction bypass the cache. A successful commit evicts every
key the transaction wrote or deleted, then runs the afterCommit hook. A failed
commit or a rollback evicts nothing.

Load engine

LoadEngine queues keys and loads all of them with a single Get. A key is never
fetched twice by the same engine. It is the Loader used for query hydration.
*/
package cachestore // import "go.mercari.io/dscache/cachestore"
