package dscache

import (
	"encoding/base64"
	"encoding/json"
	"strconv"
	"strings"
)

var _ Key = (*keyImpl)(nil)

type keyImpl struct {
	kind      string
	id        int64
	name      string
	parent    *keyImpl
	namespace string
}

// IDKey creates a new key with a numeric ID.
func IDKey(kind string, id int64, parent Key) Key {
	return &keyImpl{kind: kind, id: id, parent: toKeyImpl(parent), namespace: namespaceOf(parent)}
}

// NameKey creates a new key with a string name.
func NameKey(kind, name string, parent Key) Key {
	return &keyImpl{kind: kind, name: name, parent: toKeyImpl(parent), namespace: namespaceOf(parent)}
}

// IncompleteKey creates a new key whose ID is allocated by the store on put.
func IncompleteKey(kind string, parent Key) Key {
	return &keyImpl{kind: kind, parent: toKeyImpl(parent), namespace: namespaceOf(parent)}
}

// WithNamespace returns a copy of key (and its ancestors) placed in namespace.
func WithNamespace(key Key, namespace string) Key {
	k := toKeyImpl(key)
	if k == nil {
		return nil
	}
	return k.withNamespace(namespace)
}

func (k *keyImpl) withNamespace(namespace string) *keyImpl {
	if k == nil {
		return nil
	}
	x := *k
	x.namespace = namespace
	x.parent = k.parent.withNamespace(namespace)
	return &x
}

func toKeyImpl(key Key) *keyImpl {
	if key == nil {
		return nil
	}
	if k, ok := key.(*keyImpl); ok {
		return k
	}

	return &keyImpl{
		kind:      key.Kind(),
		id:        key.ID(),
		name:      key.Name(),
		parent:    toKeyImpl(key.ParentKey()),
		namespace: key.Namespace(),
	}
}

func namespaceOf(key Key) string {
	if key == nil {
		return ""
	}
	return key.Namespace()
}

func (k *keyImpl) Kind() string {
	if k == nil {
		panic("k is nil")
	}
	return k.kind
}

func (k *keyImpl) ID() int64 {
	return k.id
}

func (k *keyImpl) Name() string {
	return k.name
}

func (k *keyImpl) ParentKey() Key {
	if k.parent == nil {
		return nil
	}
	return k.parent
}

func (k *keyImpl) Namespace() string {
	return k.namespace
}

func (k *keyImpl) Incomplete() bool {
	return k.name == "" && k.id == 0
}

func (k *keyImpl) Equal(o Key) bool {
	if o == nil {
		return false
	}
	var ok Key = k
	for ok != nil && o != nil {
		if ok.Kind() != o.Kind() || ok.Name() != o.Name() || ok.ID() != o.ID() || ok.Namespace() != o.Namespace() {
			return false
		}
		ok = ok.ParentKey()
		o = o.ParentKey()
	}

	return ok == nil && o == nil
}

// String returns the path form, e.g. /Parent,1/Child,name .
func (k *keyImpl) String() string {
	if k == nil {
		return ""
	}
	var b strings.Builder
	k.marshal(&b)
	return b.String()
}

func (k *keyImpl) marshal(b *strings.Builder) {
	if k.parent != nil {
		k.parent.marshal(b)
	}
	b.WriteByte('/')
	b.WriteString(k.kind)
	b.WriteByte(',')
	if k.name != "" {
		b.WriteString(k.name)
	} else {
		b.WriteString(strconv.FormatInt(k.id, 10))
	}
}

// Strings are held as bytes so that names which are not valid UTF-8 survive encoding unchanged.
type encodedKey struct {
	Namespace []byte        `json:"ns,omitempty"`
	Path      []encodedElem `json:"p"`
}

type encodedElem struct {
	Kind []byte `json:"k"`
	ID   int64  `json:"i,omitempty"`
	Name []byte `json:"n,omitempty"`
}

// Encode returns an opaque, URL safe representation of the key.
// Equal keys always have the same encoding.
func (k *keyImpl) Encode() string {
	ek := encodedKey{Namespace: []byte(k.namespace)}
	var path []encodedElem
	for c := k; c != nil; c = c.parent {
		path = append(path, encodedElem{Kind: []byte(c.kind), ID: c.id, Name: []byte(c.name)})
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	ek.Path = path

	b, err := json.Marshal(ek)
	if err != nil {
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

func (k *keyImpl) GobEncode() ([]byte, error) {
	return []byte(k.Encode()), nil
}

func (k *keyImpl) GobDecode(buf []byte) error {
	key, err := decodeKey(string(buf))
	if err != nil {
		return err
	}
	*k = *key
	return nil
}

// DecodeKey decodes a key from the opaque representation returned by Encode.
func DecodeKey(encoded string) (Key, error) {
	return decodeKey(encoded)
}

func decodeKey(encoded string) (*keyImpl, error) {
	b, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrInvalidKey
	}
	var ek encodedKey
	if err := json.Unmarshal(b, &ek); err != nil {
		return nil, ErrInvalidKey
	}
	if len(ek.Path) == 0 {
		return nil, ErrInvalidKey
	}

	var k *keyImpl
	for _, e := range ek.Path {
		if len(e.Kind) == 0 {
			return nil, ErrInvalidKey
		}
		k = &keyImpl{kind: string(e.Kind), id: e.ID, name: string(e.Name), parent: k, namespace: string(ek.Namespace)}
	}

	return k, nil
}
