// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package recon reconciles confirmed bitcoin transactions.  Given a
// transaction id and the address it was meant to pay, it resolves every
// input against the ancestor transaction it spends from, computes the
// network fee from the input and output sums, classifies the outputs into
// recipient payment and change, and assembles a fixed-format report locating
// the transaction in the chain.
package recon

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/davecgh/go-spew/spew"
)

var (
	// ErrUnconfirmed describes a transaction that has not been mined
	// into a block and therefore cannot be located in the chain.
	ErrUnconfirmed = errors.New("transaction is not confirmed")

	// ErrNoInputs describes a decoded transaction with an empty input
	// list.
	ErrNoInputs = errors.New("transaction has no inputs")

	// ErrCoinbaseInput describes an input that creates new coin rather
	// than spending an existing output, leaving nothing to resolve.
	ErrCoinbaseInput = errors.New("coinbase input spends no output")

	// ErrInputResolution describes a failure to dereference an input
	// against its ancestor transaction.
	ErrInputResolution = errors.New("input resolution failed")

	// ErrNoAddress describes a referenced output whose script pays no
	// recoverable address.
	ErrNoAddress = errors.New("no address on referenced output")

	// ErrNegativeFee describes input and output sums whose difference
	// is negative, which no valid transaction can produce.
	ErrNegativeFee = errors.New("negative fee")

	// ErrRecipientNotFound describes a transaction none of whose
	// outputs pay the expected recipient address.
	ErrRecipientNotFound = errors.New("no output pays the recipient")
)

// defaultCacheSize bounds the ancestor cache when the caller does not.
const defaultCacheSize = 128

// Config parameterizes a Reconciler.
type Config struct {
	// Tx fetches and decodes transactions.  It is consulted once for
	// the reconciled transaction and once per distinct ancestor.
	Tx TxSource

	// Blocks resolves the confirming block's hash to its height.
	Blocks BlockSource

	// ChainParams describe the network whose address encodings appear
	// in reports.
	ChainParams *chaincfg.Params

	// CacheSize bounds the number of distinct ancestor transactions
	// kept in memory during a single reconciliation.  Zero selects a
	// default.
	CacheSize uint64
}

// Reconciler derives reports for confirmed transactions.
type Reconciler struct {
	cfg Config
}

// New creates a Reconciler from the passed configuration.
func New(cfg *Config) (*Reconciler, error) {
	if cfg.Tx == nil {
		return nil, errors.New("recon: transaction source is required")
	}
	if cfg.Blocks == nil {
		return nil, errors.New("recon: block source is required")
	}
	if cfg.ChainParams == nil {
		return nil, errors.New("recon: chain parameters are required")
	}

	c := *cfg
	if c.CacheSize == 0 {
		c.CacheSize = defaultCacheSize
	}
	return &Reconciler{cfg: c}, nil
}

// Reconcile produces the report for the confirmed transaction txid, which
// is expected to pay the given recipient address.  Every input is resolved
// against its ancestor transaction, with ancestor fetches memoized for the
// duration of the call, and the first input's source address and value
// represent the funding side of the report.
func (r *Reconciler) Reconcile(txid, recipient string) (*Report, error) {
	src := newMemoizedSource(r.cfg.Tx, r.cfg.CacheSize)

	tx, err := src.FetchTx(txid)
	if err != nil {
		return nil, fmt.Errorf("fetch %v: %w", txid, err)
	}
	if tx.BlockHash == "" {
		return nil, fmt.Errorf("%w: %v", ErrUnconfirmed, txid)
	}
	if len(tx.Vin) == 0 {
		return nil, fmt.Errorf("%w: %v", ErrNoInputs, txid)
	}

	res := &resolver{src: src, params: r.cfg.ChainParams}
	resolved := make([]ResolvedInput, 0, len(tx.Vin))
	for i := range tx.Vin {
		in, err := res.resolveInput(&tx.Vin[i])
		if err != nil {
			return nil, fmt.Errorf("input %d of %v: %w", i,
				txid, err)
		}
		resolved = append(resolved, in)
	}

	log.Tracef("Resolved inputs of %v: %v", txid, newLogClosure(func() string {
		return spew.Sdump(resolved)
	}))

	class, err := classifyOutputs(tx.Vout, recipient, r.cfg.ChainParams)
	if err != nil {
		return nil, fmt.Errorf("classify outputs of %v: %w", txid, err)
	}

	fee, err := Fee(resolved, tx.Vout)
	if err != nil {
		return nil, fmt.Errorf("fee of %v: %w", txid, err)
	}

	height, err := r.cfg.Blocks.FetchBlockHeight(tx.BlockHash)
	if err != nil {
		return nil, fmt.Errorf("block %v: %w", tx.BlockHash, err)
	}

	log.Debugf("Reconciled %v: %d inputs, fee %v, confirmed at height %d",
		txid, len(resolved), fee, height)

	return &Report{
		TxID:             txid,
		InputAddress:     resolved[0].Address,
		InputAmount:      resolved[0].Amount,
		RecipientAddress: recipient,
		RecipientAmount:  class.RecipientAmount,
		ChangeAddress:    class.ChangeAddress,
		ChangeAmount:     class.ChangeAmount,
		Fee:              fee,
		BlockHeight:      height,
		BlockHash:        tx.BlockHash,
	}, nil
}
