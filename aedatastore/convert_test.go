package aedatastore

import (
	"errors"
	"testing"

	"go.mercari.io/dscache"
	"google.golang.org/api/iterator"
	"google.golang.org/appengine"
	"google.golang.org/appengine/datastore"
)

func TestConvert_MultipleProperties(t *testing.T) {
	ps := toWrapperPropertyList(datastore.PropertyList{
		{Name: "Tags", Value: "a", Multiple: true},
		{Name: "Name", Value: "foo"},
		{Name: "Tags", Value: "b", Multiple: true},
		{Name: "Point", Value: appengine.GeoPoint{Lat: 1, Lng: 2}},
	})

	if v := len(ps); v != 3 {
		t.Fatalf("unexpected: %v", v)
	}
	if v, _ := ps.Get("Tags"); len(v.([]interface{})) != 2 || v.([]interface{})[1] != "b" {
		t.Errorf("unexpected: %v", v)
	}
	if v, _ := ps.Get("Name"); v != "foo" {
		t.Errorf("unexpected: %v", v)
	}
	if v, _ := ps.Get("Point"); v != (dscache.GeoPoint{Lat: 1, Lng: 2}) {
		t.Errorf("unexpected: %v", v)
	}
}

func TestConvert_Error(t *testing.T) {
	if v := toWrapperError(datastore.Done); v != iterator.Done {
		t.Errorf("unexpected: %v", v)
	}
	if v := toWrapperError(datastore.ErrConcurrentTransaction); v != dscache.ErrConcurrentTransaction {
		t.Errorf("unexpected: %v", v)
	}

	boom := errors.New("boom")
	merr, ok := toWrapperError(appengine.MultiError{nil, datastore.ErrNoSuchEntity, boom}).(dscache.MultiError)
	if !ok {
		t.Fatalf("unexpected: %v", merr)
	}
	if merr[0] != nil || merr[1] != dscache.ErrNoSuchEntity || merr[2] != boom {
		t.Errorf("unexpected: %v", merr)
	}
}

func TestConvert_EntityMap(t *testing.T) {
	keys := []dscache.Key{
		dscache.IDKey("Data", 1, nil),
		dscache.IDKey("Data", 2, nil),
	}
	pss := []datastore.PropertyList{{{Name: "Name", Value: "a"}}, nil}

	m, err := toEntityMap(keys, pss, appengine.MultiError{nil, datastore.ErrNoSuchEntity})
	if err != nil {
		t.Fatal(err)
	}
	if len(m) != 1 || m.Get(keys[0]) == nil {
		t.Errorf("unexpected: %v", m)
	}

	_, err = toEntityMap(keys, pss, appengine.MultiError{nil, errors.New("boom")})
	if _, ok := err.(dscache.MultiError); !ok {
		t.Errorf("unexpected: %v", err)
	}
}
