// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package recon

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
)

// ResolvedInput describes the output consumed by a transaction input: the
// address the value was previously paid to and the value itself.
type ResolvedInput struct {
	// Address is the encoded address of the spent output.
	Address string

	// Amount is the value of the spent output.
	Amount btcutil.Amount
}

// resolver dereferences transaction inputs against the ancestor
// transactions they spend from.
type resolver struct {
	src    TxSource
	params *chaincfg.Params
}

// resolveInput fetches the ancestor transaction referenced by vin and
// extracts the address and value of the output it spends.
func (r *resolver) resolveInput(vin *btcjson.Vin) (ResolvedInput, error) {
	if vin.IsCoinBase() {
		return ResolvedInput{}, ErrCoinbaseInput
	}

	prev, err := r.src.FetchTx(vin.Txid)
	if err != nil {
		return ResolvedInput{}, fmt.Errorf("%w: ancestor %v: %v",
			ErrInputResolution, vin.Txid, err)
	}
	if vin.Vout >= uint32(len(prev.Vout)) {
		return ResolvedInput{}, fmt.Errorf("%w: %v has no output %d",
			ErrInputResolution, vin.Txid, vin.Vout)
	}

	out := &prev.Vout[vin.Vout]
	amount, err := btcutil.NewAmount(out.Value)
	if err != nil || !saneOutputValue(amount) {
		return ResolvedInput{}, fmt.Errorf("insane output value %v "+
			"on %v:%d", out.Value, vin.Txid, vin.Vout)
	}

	addrs := outputAddresses(out, r.params)
	if len(addrs) == 0 {
		return ResolvedInput{}, fmt.Errorf("%w: %v:%d",
			ErrNoAddress, vin.Txid, vin.Vout)
	}

	return ResolvedInput{Address: addrs[0], Amount: amount}, nil
}

// outputAddresses recovers the encoded addresses of a decoded transaction
// output.  Nodes since bitcoind v23 omit the addresses array from their
// decoded output, leaving only the script hex, so when the array is absent
// the addresses are extracted from the script itself.  Outputs whose script
// pays no address (data carriers, nonstandard scripts) yield an empty
// slice.
func outputAddresses(out *btcjson.Vout, params *chaincfg.Params) []string {
	if len(out.ScriptPubKey.Addresses) > 0 {
		return out.ScriptPubKey.Addresses
	}

	script, err := hex.DecodeString(out.ScriptPubKey.Hex)
	if err != nil {
		log.Debugf("Undecodable script hex on output %d: %v", out.N, err)
		return nil
	}
	_, addrs, _, err := txscript.ExtractPkScriptAddrs(script, params)
	if err != nil || len(addrs) == 0 {
		return nil
	}

	encoded := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		encoded = append(encoded, addr.EncodeAddress())
	}
	return encoded
}

// saneOutputValue reports whether a decoded output value is within the
// range a consensus-following node would relay.
func saneOutputValue(amount btcutil.Amount) bool {
	return amount >= 0 && amount <= btcutil.MaxSatoshi
}
