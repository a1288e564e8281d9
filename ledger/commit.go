package ledger

import (
	"github.com/iov-one/quickhold/store"
)

// CommitStore handles loading from a CommitKVStore, maintaining different
// CacheWraps for Deliver and Check, and returning useful state info.
type CommitStore struct {
	committed store.CommitKVStore
	deliver   store.KVCacheWrap
	check     store.KVCacheWrap
}

// NewCommitStore loads the CommitKVStore from disk. It sets up the deliver
// and check caches.
func NewCommitStore(kv store.CommitKVStore) (*CommitStore, error) {
	if err := kv.LoadLatestVersion(); err != nil {
		return nil, err
	}
	return &CommitStore{
		committed: kv,
		deliver:   kv.CacheWrap(),
		check:     kv.CacheWrap(),
	}, nil
}

// CommitInfo returns the current height and hash
func (cs *CommitStore) CommitInfo() store.CommitID {
	return cs.committed.LatestVersion()
}

// Commit will flush deliver to the underlying store and commit it
// to disk. It then regenerates new deliver/check caches
func (cs *CommitStore) Commit() (store.CommitID, error) {
	// flush deliver to store and discard check
	if err := cs.deliver.Write(); err != nil {
		return store.CommitID{}, err
	}
	cs.check.Discard()

	// write the store to disk
	res, err := cs.committed.Commit()
	if err != nil {
		return res, err
	}

	// set up new caches
	cs.deliver = cs.committed.CacheWrap()
	cs.check = cs.committed.CacheWrap()
	return res, nil
}

// CheckStore returns a store implementation that must be used during the
// checking phase.
func (cs *CommitStore) CheckStore() store.CacheableKVStore {
	return cs.check
}

// DeliverStore returns a store implementation that must be used during the
// delivery phase.
func (cs *CommitStore) DeliverStore() store.CacheableKVStore {
	return cs.deliver
}

// QueryStore returns a read only view of the last committed state.
func (cs *CommitStore) QueryStore() store.ReadOnlyKVStore {
	return cs.committed.CacheWrap()
}
