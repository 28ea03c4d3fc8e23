package dscache

import (
	"bytes"
	"fmt"
)

// Query describes a query against the backing store.
// The cache never interprets it; it is handed through to Store.Run.
type Query struct {
	Kind      string
	Ancestor  Key
	Namespace string
	Filter    []*QueryFilterCondition
	Order     []string
	KeysOnly  bool
	Limit     int
	Offset    int
	Start     Cursor
	End       Cursor

	EventualConsistency bool
}

type QueryFilterCondition struct {
	Filter string
	Value  interface{}
}

func NewQuery(kind string) *Query {
	return &Query{Kind: kind}
}

func (q *Query) clone() *Query {
	x := *q
	x.Filter = append([]*QueryFilterCondition(nil), q.Filter...)
	x.Order = append([]string(nil), q.Order...)
	return &x
}

func (q *Query) WithFilter(filterStr string, value interface{}) *Query {
	q = q.clone()
	q.Filter = append(q.Filter, &QueryFilterCondition{Filter: filterStr, Value: value})
	return q
}

func (q *Query) WithOrder(fieldName string) *Query {
	q = q.clone()
	q.Order = append(q.Order, fieldName)
	return q
}

func (q *Query) WithAncestor(ancestor Key) *Query {
	q = q.clone()
	q.Ancestor = ancestor
	return q
}

func (q *Query) WithKeysOnly() *Query {
	q = q.clone()
	q.KeysOnly = true
	return q
}

func (q *Query) WithLimit(limit int) *Query {
	q = q.clone()
	q.Limit = limit
	return q
}

func (q *Query) WithStart(c Cursor) *Query {
	q = q.clone()
	q.Start = c
	return q
}

func (q *Query) WithEnd(c Cursor) *Query {
	q = q.clone()
	q.End = c
	return q
}

// String returns a compact description of q, e.g. v1:Data&or=-Name&k=t .
func (q *Query) String() string {
	b := bytes.NewBufferString("v1:")
	b.WriteString(q.Kind)
	if q.Namespace != "" {
		b.WriteString("&n=")
		b.WriteString(q.Namespace)
	}
	if q.Ancestor != nil {
		b.WriteString("&a=")
		b.WriteString(q.Ancestor.String())
	}
	for _, f := range q.Filter {
		b.WriteString("&f=")
		b.WriteString(f.Filter)
		fmt.Fprintf(b, "%v", f.Value)
	}
	for _, o := range q.Order {
		b.WriteString("&or=")
		b.WriteString(o)
	}
	if q.KeysOnly {
		b.WriteString("&k=t")
	}
	if q.Limit != 0 {
		fmt.Fprintf(b, "&l=%d", q.Limit)
	}
	if q.Offset != 0 {
		fmt.Fprintf(b, "&o=%d", q.Offset)
	}
	if q.Start != nil {
		b.WriteString("&s=")
		b.WriteString(q.Start.String())
	}
	if q.End != nil {
		b.WriteString("&e=")
		b.WriteString(q.End.String())
	}
	if q.EventualConsistency {
		b.WriteString("&ec=t")
	}

	return b.String()
}
