package aedatastore

import (
	"testing"

	_ "github.com/favclip/testerator/datastore"
	"go.mercari.io/dscache"
	"go.mercari.io/dscache/internal/testutils"
	"google.golang.org/api/iterator"
)

func TestAEDatastore_PutGetDelete(t *testing.T) {
	ctx, cleanUp := testutils.SetupAppEngine(t)
	defer cleanUp()

	s := New()
	if !IsAEDatastore(s) {
		t.Fatal("unexpected")
	}

	keys, err := s.PutMulti(ctx, []*dscache.Entity{
		{Key: dscache.IncompleteKey("Data", nil), Properties: dscache.PropertyList{{Name: "Name", Value: "a"}}},
		{Key: dscache.NameKey("Data", "b", nil), Properties: dscache.PropertyList{
			{Name: "Name", Value: "b"},
			{Name: "Tags", Value: []interface{}{"x", "y"}},
		}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 2 || keys[0].Incomplete() {
		t.Fatalf("unexpected: %v", keys)
	}

	m, err := s.GetMulti(ctx, append(keys, dscache.NameKey("Data", "missing", nil)))
	if err != nil {
		t.Fatal(err)
	}
	if len(m) != 2 {
		t.Errorf("unexpected: %v", len(m))
	}
	if v, _ := m.Get(keys[1]).Properties.Get("Tags"); len(v.([]interface{})) != 2 {
		t.Errorf("unexpected: %v", v)
	}

	if err := s.DeleteMulti(ctx, keys); err != nil {
		t.Fatal(err)
	}
	m, err = s.GetMulti(ctx, keys)
	if err != nil {
		t.Fatal(err)
	}
	if len(m) != 0 {
		t.Errorf("unexpected: %v", len(m))
	}
}

func TestAEDatastore_Transaction(t *testing.T) {
	ctx, cleanUp := testutils.SetupAppEngine(t)
	defer cleanUp()

	s := New()

	{ // commit
		tx, err := s.NewTransaction(ctx)
		if err != nil {
			t.Fatal(err)
		}
		pKeys, err := tx.PutMulti([]*dscache.Entity{{Key: dscache.IncompleteKey("Data", nil)}})
		if err != nil {
			t.Fatal(err)
		}
		commit, err := tx.Commit()
		if err != nil {
			t.Fatal(err)
		}
		key := commit.Key(pKeys[0])
		if key == nil || key.Incomplete() {
			t.Fatalf("unexpected: %v", key)
		}
		m, err := s.GetMulti(ctx, []dscache.Key{key})
		if err != nil {
			t.Fatal(err)
		}
		if len(m) != 1 {
			t.Errorf("unexpected: %v", len(m))
		}
	}
	{ // rollback
		tx, err := s.NewTransaction(ctx)
		if err != nil {
			t.Fatal(err)
		}
		key := dscache.NameKey("Data", "rollback", nil)
		if _, err := tx.PutMulti([]*dscache.Entity{{Key: key}}); err != nil {
			t.Fatal(err)
		}
		if err := tx.Rollback(); err != nil {
			t.Fatal(err)
		}
		if _, err := tx.Commit(); err == nil {
			t.Fatal("unexpected: commit after rollback")
		}
		m, err := s.GetMulti(ctx, []dscache.Key{key})
		if err != nil {
			t.Fatal(err)
		}
		if len(m) != 0 {
			t.Errorf("unexpected: %v", len(m))
		}
	}
}

func TestAEDatastore_Run(t *testing.T) {
	ctx, cleanUp := testutils.SetupAppEngine(t)
	defer cleanUp()

	s := New()

	parent := dscache.NameKey("Parent", "p", nil)
	var entities []*dscache.Entity
	for i := 1; i <= 3; i++ {
		entities = append(entities, &dscache.Entity{Key: dscache.IDKey("Data", int64(i), parent)})
	}
	if _, err := s.PutMulti(ctx, entities); err != nil {
		t.Fatal(err)
	}

	q := dscache.NewQuery("Data").WithAncestor(parent).WithKeysOnly().WithLimit(2)
	it := s.Run(ctx, q)
	var keys []dscache.Key
	for {
		key, err := it.Next()
		if err == iterator.Done {
			break
		} else if err != nil {
			t.Fatal(err)
		}
		keys = append(keys, key)
	}
	if v := dscache.KeysToString(keys); v != "/Parent,p/Data,1, /Parent,p/Data,2" {
		t.Errorf("unexpected: %v", v)
	}

	cur, err := it.Cursor()
	if err != nil {
		t.Fatal(err)
	}
	cur, err = s.DecodeCursor(cur.String())
	if err != nil {
		t.Fatal(err)
	}
	key, err := s.Run(ctx, q.WithStart(cur)).Next()
	if err != nil {
		t.Fatal(err)
	}
	if v := key.String(); v != "/Parent,p/Data,3" {
		t.Errorf("unexpected: %v", v)
	}
}
