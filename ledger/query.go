package ledger

import (
	"fmt"
	"strings"

	"github.com/gogo/protobuf/proto"
	"github.com/iov-one/quickhold/errors"
	"github.com/iov-one/quickhold/store"
)

const (
	// KeyQueryMod queries a single key.
	KeyQueryMod = ""
	// PrefixQueryMod queries all keys starting with the data.
	PrefixQueryMod = "prefix"

	// Query paths.
	AccountsPath = "/accounts"
	HoldsPath    = "/holds"
	ParamsPath   = "/params"
)

// QueryHandler is anything that can process ABCI queries
type QueryHandler interface {
	Query(db store.ReadOnlyKVStore, mod string, data []byte) ([]store.Model, error)
}

// QueryRouter allows us to register many query handlers to different paths
// and then direct each query to the proper handler.
//
// Minimal interface modeled after net/http.ServeMux
type QueryRouter struct {
	routes map[string]QueryHandler
}

// NewQueryRouter returns a router serving accounts, holds and parameters.
func NewQueryRouter() QueryRouter {
	r := QueryRouter{routes: make(map[string]QueryHandler)}
	r.Register(AccountsPath, prefixQuery{prefix: accountPrefix})
	r.Register(HoldsPath, prefixQuery{prefix: holdPrefix})
	r.Register(ParamsPath, paramsQuery{})
	return r
}

// Register adds a new Handler for the given path.
// panics if another Handler was already registered
func (r QueryRouter) Register(path string, h QueryHandler) {
	if _, ok := r.routes[path]; ok {
		panic(fmt.Sprintf("Re-registering route: %s", path))
	}
	r.routes[path] = h
}

// Handler returns the registered Handler for this path or nil.
func (r QueryRouter) Handler(path string) QueryHandler {
	return r.routes[path]
}

// splitPath splits out the real path along with the query modifier
// (everything after the ?)
func splitPath(path string) (string, string) {
	var mod string
	chunks := strings.SplitN(path, "?", 2)
	if len(chunks) == 2 {
		path = chunks[0]
		mod = chunks[1]
	}
	return path, mod
}

// prefixQuery serves a bucket of models stored under a common prefix. The
// returned keys do not contain the prefix.
type prefixQuery struct {
	prefix string
}

func (q prefixQuery) Query(db store.ReadOnlyKVStore, mod string, data []byte) ([]store.Model, error) {
	key := append([]byte(q.prefix), data...)
	switch mod {
	case KeyQueryMod:
		value, err := db.Get(key)
		if err != nil {
			return nil, err
		}
		if value == nil {
			return nil, nil
		}
		return []store.Model{store.Pair(data, value)}, nil
	case PrefixQueryMod:
		it, err := db.Iterator(key, prefixEnd(key))
		if err != nil {
			return nil, err
		}
		models, err := store.ReadAll(it)
		if err != nil {
			return nil, err
		}
		for i := range models {
			models[i].Key = models[i].Key[len(q.prefix):]
		}
		return models, nil
	default:
		return nil, errors.Wrapf(errors.ErrInput, "unknown mod: %s", mod)
	}
}

type paramsQuery struct{}

func (paramsQuery) Query(db store.ReadOnlyKVStore, mod string, data []byte) ([]store.Model, error) {
	value, err := db.Get([]byte(paramsKey))
	if err != nil || value == nil {
		return nil, err
	}
	return []store.Model{store.Pair([]byte(paramsKey), value)}, nil
}

// prefixEnd returns the first key that does not start with given prefix.
func prefixEnd(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}

// ResultsFromKeys returns a ResultSet of all keys given a set of models
func ResultsFromKeys(models []store.Model) *ResultSet {
	res := make([][]byte, len(models))
	for i, m := range models {
		res[i] = m.Key
	}
	return &ResultSet{Results: res}
}

// ResultsFromValues returns a ResultSet of all values given a set of models
func ResultsFromValues(models []store.Model) *ResultSet {
	res := make([][]byte, len(models))
	for i, m := range models {
		res[i] = m.Value
	}
	return &ResultSet{Results: res}
}

// JoinResults inverts ResultsFromKeys and ResultsFromValues and makes then a
// consistent whole again
func JoinResults(keys, values []byte) ([]store.Model, error) {
	var k, v ResultSet
	if err := proto.Unmarshal(keys, &k); err != nil {
		return nil, errors.Wrap(errors.ErrType, err.Error())
	}
	if err := proto.Unmarshal(values, &v); err != nil {
		return nil, errors.Wrap(errors.ErrType, err.Error())
	}
	if len(k.Results) != len(v.Results) {
		return nil, errors.Wrap(errors.ErrState, "mismatched result set size")
	}
	mods := make([]store.Model, len(k.Results))
	for i := range mods {
		mods[i] = store.Pair(k.Results[i], v.Results[i])
	}
	return mods, nil
}
