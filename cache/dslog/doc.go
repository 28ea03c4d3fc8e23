/*
Package dslog provides a cache tier decorator that logs every call to the tier.

It sits between entitymemcache.Memcache and a Storage, so the log shows the
placeholder adds and the token checked replaces as they happen.
*/
package dslog // import "go.mercari.io/dscache/cache/dslog"
