package store

import (
	"bytes"
	"crypto/rand"
	"sort"
	"testing"

	"github.com/iov-one/quickhold/weavetest/assert"
)

// TestSuite runs the same set of checks against any CacheableKVStore
// implementation. btree_test.go and iavl/adapter_test.go share it.
type TestSuite struct {
	makeBase TestStoreConstructor
}

// TestStoreConstructor returns a fresh store and a function that releases
// its resources.
type TestStoreConstructor func() (base CacheableKVStore, cleanup func())

// NewTestSuite returns a suite testing stores built by given constructor.
func NewTestSuite(constructor TestStoreConstructor) *TestSuite {
	return &TestSuite{makeBase: constructor}
}

// GetSet checks that cache layers read through to their parent, hide their
// own writes until written and can be discarded.
func (s *TestSuite) GetSet(t *testing.T) {
	base, cleanup := s.makeBase()
	defer cleanup()

	k, v := []byte("french"), []byte("fry")
	s.AssertGetHas(t, base, k, nil, false)
	assert.Nil(t, base.Set(k, v))
	s.AssertGetHas(t, base, k, v, true)

	cache := base.CacheWrap()
	s.AssertGetHas(t, cache, k, v, true)

	k2, v2 := []byte("LA"), []byte("Dodgers")
	assert.Nil(t, cache.Set(k2, v2))
	s.AssertGetHas(t, cache, k2, v2, true)
	s.AssertGetHas(t, base, k2, nil, false)

	assert.Nil(t, cache.Write())
	s.AssertGetHas(t, base, k, v, true)
	s.AssertGetHas(t, base, k2, v2, true)

	k3, v3 := []byte("Bayern"), []byte("Munich")
	discarded := base.CacheWrap()
	assert.Nil(t, discarded.Set(k3, v3))
	discarded.Discard()
	s.AssertGetHas(t, base, k3, nil, false)

	deleting := base.CacheWrap()
	assert.Nil(t, deleting.Delete(k))
	s.AssertGetHas(t, deleting, k, nil, false)
	s.AssertGetHas(t, base, k, v, true)
	assert.Nil(t, deleting.Write())
	s.AssertGetHas(t, base, k, nil, false)
	s.AssertGetHas(t, base, k2, v2, true)
}

// IteratorRanges checks that iterating a cache layer combines its writes and
// deletes with the data of the parent, in both directions.
func (s *TestSuite) IteratorRanges(t *testing.T) {
	ms := randModels(6, 20, 40)
	a, a2, b, b2, c, d := ms[0], ms[1], ms[2], ms[3], ms[4], ms[5]
	a2.Key = a.Key
	b2.Key = b.Key

	abc := sortModels([]Model{a, b, c})
	overwritten := sortModels([]Model{a2, b2, c, d})

	cases := map[string]struct {
		parent  []Op
		child   []Op
		start   []byte
		end     []byte
		reverse bool
		want    []Model
	}{
		"child only": {
			child: makeSetOps(a, b, c),
			want:  abc,
		},
		"parent only": {
			parent: makeSetOps(a, b, c),
			want:   abc,
		},
		"parent and child combined": {
			parent: makeSetOps(a, b),
			child:  makeSetOps(c),
			want:   abc,
		},
		"parent and child combined reversed": {
			parent:  makeSetOps(a, b),
			child:   makeSetOps(c),
			reverse: true,
			want:    reversed(abc),
		},
		"bounded range": {
			parent: makeSetOps(a, b),
			child:  makeSetOps(c),
			start:  abc[1].Key,
			end:    abc[2].Key,
			want:   abc[1:2],
		},
		"open start": {
			parent: makeSetOps(a, b, c),
			end:    abc[2].Key,
			want:   abc[:2],
		},
		"open end reversed": {
			child:   makeSetOps(a, b, c),
			start:   abc[1].Key,
			reverse: true,
			want:    reversed(abc[1:]),
		},
		"child overwrites parent": {
			parent: makeSetOps(a, b, c),
			child:  makeSetOps(a2, b2, d),
			want:   overwritten,
		},
		"child deletes hide parent": {
			parent: makeSetOps(a, c, d),
			child:  makeDelOps(a, b, d),
			want:   []Model{c},
		},
		"range cut before the only value": {
			parent: makeSetOps(a, c, d),
			child:  makeDelOps(a, b, d),
			end:    c.Key,
			want:   nil,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			base, cleanup := s.makeBase()
			defer cleanup()

			for _, op := range tc.parent {
				assert.Nil(t, op.Apply(base))
			}
			child := base.CacheWrap()
			for _, op := range tc.child {
				assert.Nil(t, op.Apply(child))
			}

			var it Iterator
			var err error
			if tc.reverse {
				it, err = child.ReverseIterator(tc.start, tc.end)
			} else {
				it, err = child.Iterator(tc.start, tc.end)
			}
			assert.Nil(t, err)
			got, err := ReadAll(it)
			assert.Nil(t, err)
			if len(got) != len(tc.want) {
				t.Fatalf("want %d items, got %d", len(tc.want), len(got))
			}
			for i := range got {
				if !bytes.Equal(tc.want[i].Key, got[i].Key) {
					t.Fatalf("item %d: want key %X, got %X", i, tc.want[i].Key, got[i].Key)
				}
				assert.Equal(t, tc.want[i].Value, got[i].Value)
			}
		})
	}
}

// AssertGetHas checks the value stored under key and its presence.
func (s *TestSuite) AssertGetHas(t testing.TB, kv ReadOnlyKVStore, key, val []byte, has bool) {
	t.Helper()
	got, err := kv.Get(key)
	assert.Nil(t, err)
	if !bytes.Equal(val, got) {
		t.Fatalf("key %q: want value %q, got %q", key, val, got)
	}
	exists, err := kv.Has(key)
	assert.Nil(t, err)
	assert.Equal(t, has, exists)
}

func randBytes(length int) []byte {
	res := make([]byte, length)
	if _, err := rand.Read(res); err != nil {
		panic(err)
	}
	return res
}

func randModels(count, keySize, valueSize int) []Model {
	models := make([]Model, count)
	for i := range models {
		models[i] = Pair(randBytes(keySize), randBytes(valueSize))
	}
	return models
}

func reversed(models []Model) []Model {
	res := make([]Model, len(models))
	for i, m := range models {
		res[len(models)-1-i] = m
	}
	return res
}

func sortModels(models []Model) []Model {
	res := make([]Model, len(models))
	copy(res, models)
	sort.Slice(res, func(i, j int) bool {
		return bytes.Compare(res[i].Key, res[j].Key) < 0
	})
	return res
}

func makeSetOps(ms ...Model) []Op {
	res := make([]Op, len(ms))
	for i, m := range ms {
		res[i] = SetOp(m.Key, m.Value)
	}
	return res
}

func makeDelOps(ms ...Model) []Op {
	res := make([]Op, len(ms))
	for i, m := range ms {
		res[i] = DelOp(m.Key)
	}
	return res
}
