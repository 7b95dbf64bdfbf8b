// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package recon

import (
	"github.com/btcsuite/btcd/btcjson"
	"github.com/lightninglabs/neutrino/cache/lru"
)

// TxSource fetches and decodes transactions by id.  Implementations
// typically query a full node; the Reconciler wraps the source in a
// memoizing layer so a transaction referenced by several inputs is fetched
// from the source only once per reconciliation.
type TxSource interface {
	// FetchTx returns the decoded form of the transaction with the
	// given hex id.
	FetchTx(txid string) (*btcjson.TxRawResult, error)
}

// BlockSource resolves block hashes to their heights in the best chain.
type BlockSource interface {
	// FetchBlockHeight returns the height of the block with the given
	// hex hash.
	FetchBlockHeight(hash string) (int64, error)
}

// cachedTx wraps a decoded transaction for storage in the lru cache.
type cachedTx struct {
	tx *btcjson.TxRawResult
}

// Size implements cache.Value.  Every entry counts as a single unit, making
// the cache capacity a transaction count rather than a byte total.
func (*cachedTx) Size() (uint64, error) {
	return 1, nil
}

// memoizedSource is a TxSource that caches fetched transactions by id,
// evicting the least recently used entry once the capacity is reached.
type memoizedSource struct {
	src   TxSource
	cache *lru.Cache[string, *cachedTx]
}

func newMemoizedSource(src TxSource, capacity uint64) *memoizedSource {
	return &memoizedSource{
		src:   src,
		cache: lru.NewCache[string, *cachedTx](capacity),
	}
}

// FetchTx returns the cached transaction when one is present and otherwise
// consults the wrapped source, retaining the result.
func (m *memoizedSource) FetchTx(txid string) (*btcjson.TxRawResult, error) {
	if entry, err := m.cache.Get(txid); err == nil {
		log.Tracef("Transaction %v served from cache", txid)
		return entry.tx, nil
	}

	tx, err := m.src.FetchTx(txid)
	if err != nil {
		return nil, err
	}
	if _, err := m.cache.Put(txid, &cachedTx{tx: tx}); err != nil {
		log.Debugf("Unable to cache transaction %v: %v", txid, err)
	}
	return tx, nil
}
