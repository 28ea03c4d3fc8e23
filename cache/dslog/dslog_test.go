package dslog

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/MakeNowJust/heredoc/v2"
	"go.mercari.io/dscache"
	"go.mercari.io/dscache/cache/entitymemcache"
	"go.mercari.io/dscache/cache/localcache"
)

func TestDsLog_Basic(t *testing.T) {
	ctx := context.Background()

	var logs []string
	logf := func(ctx context.Context, format string, args ...interface{}) {
		t.Logf(format, args...)
		logs = append(logs, fmt.Sprintf(format, args...))
	}

	mc := entitymemcache.New(
		NewLogger("log: ", logf, localcache.New()),
		entitymemcache.WithCacheKey(func(key dscache.Key) string {
			return "test:" + key.String()
		}),
	)

	key := dscache.IDKey("Data", 111, nil)
	b := mc.GetAll(ctx, []dscache.Key{key})[key.Encode()]
	b.SetNext(&dscache.Entity{Key: key, Properties: dscache.PropertyList{{Name: "Name", Value: "Data"}}})
	mc.PutAll(ctx, []*entitymemcache.Bucket{b})

	b = mc.GetAll(ctx, []dscache.Key{key})[key.Encode()]
	if b.Entity() == nil {
		t.Fatalf("unexpected: %v", b.Entity())
	}

	mc.Empty(ctx, []dscache.Key{key})

	expected := heredoc.Doc(`
		log: GetMulti #1, len(keys)=1, keys=[test:/Data,111]
		log: GetMulti #1, len(items)=0, keys=[]
		log: AddMulti #2, len(items)=1, keys=[test:/Data,111]
		log: GetMulti #3, len(keys)=1, keys=[test:/Data,111]
		log: GetMulti #3, len(items)=1, keys=[test:/Data,111]
		log: CompareAndSwapMulti #4, len(items)=1, keys=[test:/Data,111]
		log: GetMulti #5, len(keys)=1, keys=[test:/Data,111]
		log: GetMulti #5, len(items)=1, keys=[test:/Data,111]
		log: DeleteMulti #6, len(keys)=1, keys=[test:/Data,111]
	`)

	if v := strings.Join(logs, "\n") + "\n"; v != expected {
		t.Errorf("unexpected: %v", v)
	}
}

func TestDsLog_LostRace(t *testing.T) {
	ctx := context.Background()

	var logs []string
	logf := func(ctx context.Context, format string, args ...interface{}) {
		logs = append(logs, fmt.Sprintf(format, args...))
	}

	lc := localcache.New()
	mc := entitymemcache.New(
		NewLogger("log: ", logf, lc),
		entitymemcache.WithCacheKey(func(key dscache.Key) string {
			return "test:" + key.String()
		}),
	)

	key := dscache.IDKey("Data", 111, nil)
	b := mc.GetAll(ctx, []dscache.Key{key})[key.Encode()]
	// an eviction between the read and the write back
	mc.Empty(ctx, []dscache.Key{key})
	mc.PutAll(ctx, []*entitymemcache.Bucket{b})

	if lc.HasCache("test:/Data,111") {
		t.Errorf("unexpected: %v", lc.CacheKeys())
	}
	if v := logs[len(logs)-1]; !strings.HasPrefix(v, "log: CompareAndSwapMulti #5, err=") {
		t.Errorf("unexpected: %v", v)
	}
}
