package cachestore_test

import (
	"context"
	"fmt"

	"github.com/bradfitz/gomemcache/memcache"
	"go.mercari.io/dscache"
	"go.mercari.io/dscache/cache/dsmemcache"
	"go.mercari.io/dscache/cache/entitymemcache"
	"go.mercari.io/dscache/cachestore"
	"go.mercari.io/dscache/clouddatastore"
	"go.mercari.io/dscache/dsmiddleware/rpcretry"
	"go.mercari.io/dscache/hybrid"
)

func Example_howToUse() {
	ctx := context.Background()
	client, err := clouddatastore.FromContext(ctx)
	if err != nil {
		panic(err)
	}
	defer client.Close()

	mc := entitymemcache.New(
		dsmemcache.New(memcache.New("localhost:11211")),
		entitymemcache.WithExcludeKinds("Session"),
	)
	s := cachestore.New(rpcretry.New(client), mc)

	key := dscache.NameKey("Data", "a", nil)
	_, err = s.PutMulti(ctx, []*dscache.Entity{{
		Key:        key,
		Properties: dscache.PropertyList{{Name: "Name", Value: "Data"}},
	}})
	if err != nil {
		panic(err)
	}

	// the first read fills the cache, the second one is served from it
	for i := 0; i < 2; i++ {
		entities, err := s.Get(ctx, key).Get(ctx)
		if err != nil {
			panic(err)
		}
		fmt.Println(entities.Get(key).Properties)
	}
}

func Example_hydration() {
	ctx := context.Background()
	client, err := clouddatastore.FromContext(ctx)
	if err != nil {
		panic(err)
	}
	defer client.Close()

	s := cachestore.New(client, entitymemcache.New(dsmemcache.New(memcache.New("localhost:11211"))))

	q := dscache.NewQuery("Data").WithLimit(100)
	res, err := hybrid.Run(ctx, s, s.NewLoadEngine().Loader(), q, 20)
	if err != nil {
		panic(err)
	}
	for {
		ok, err := res.HasNext()
		if err != nil {
			panic(err)
		} else if !ok {
			break
		}
		v, err := res.Next()
		if err != nil {
			panic(err)
		}
		fmt.Println(v.(*dscache.Entity).Key)
	}

	// resume later from here
	fmt.Println(res.CursorAfter())
}
