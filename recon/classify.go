// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package recon

import (
	"fmt"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
)

// Classification partitions a transaction's outputs relative to a known
// recipient address.
type Classification struct {
	// RecipientAmount is the value paid to the recipient address.
	RecipientAmount btcutil.Amount

	// ChangeAddress is the address of the change output, or empty when
	// the transaction has none.
	ChangeAddress string

	// ChangeAmount is the value returned as change.
	ChangeAmount btcutil.Amount
}

// classifyOutputs matches a transaction's outputs against the recipient
// address.  Outputs whose script pays no address are skipped.  Every
// non-recipient output with an address is treated as change; when more than
// one exists, the last one in output order wins and a warning is logged,
// since wallet-built payments carry at most a single change output.
func classifyOutputs(outs []btcjson.Vout, recipient string,
	params *chaincfg.Params) (Classification, error) {

	var (
		c          Classification
		matched    bool
		changeSeen bool
	)
	for i := range outs {
		out := &outs[i]

		addrs := outputAddresses(out, params)
		if len(addrs) == 0 {
			log.Debugf("Skipping addressless output %d (type %v)",
				out.N, out.ScriptPubKey.Type)
			continue
		}

		amount, err := btcutil.NewAmount(out.Value)
		if err != nil || !saneOutputValue(amount) {
			return Classification{}, fmt.Errorf("insane output "+
				"value %v on output %d", out.Value, out.N)
		}

		if containsAddress(addrs, recipient) {
			c.RecipientAmount = amount
			matched = true
			continue
		}

		if changeSeen {
			log.Warnf("Multiple change outputs; output %d (%v) "+
				"replaces %v in the report", out.N, addrs[0],
				c.ChangeAddress)
		}
		c.ChangeAddress = addrs[0]
		c.ChangeAmount = amount
		changeSeen = true
	}

	if !matched {
		return Classification{}, fmt.Errorf("%w: %v",
			ErrRecipientNotFound, recipient)
	}
	return c, nil
}

func containsAddress(addrs []string, addr string) bool {
	for _, a := range addrs {
		if a == addr {
			return true
		}
	}
	return false
}
