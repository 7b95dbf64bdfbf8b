// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package recon

import (
	"fmt"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/btcutil"
)

// Fee returns the network fee paid by a transaction: the sum of its
// resolved input values minus the sum of its declared output values.  The
// summation happens in whole satoshis, so the result is exact regardless of
// input ordering.  A negative difference indicates the inputs were resolved
// against the wrong ancestors and is returned as ErrNegativeFee.
func Fee(inputs []ResolvedInput, outputs []btcjson.Vout) (btcutil.Amount, error) {
	var inputSum btcutil.Amount
	for _, in := range inputs {
		inputSum += in.Amount
	}

	var outputSum btcutil.Amount
	for i := range outputs {
		amount, err := btcutil.NewAmount(outputs[i].Value)
		if err != nil || !saneOutputValue(amount) {
			return 0, fmt.Errorf("insane output value %v on "+
				"output %d", outputs[i].Value, outputs[i].N)
		}
		outputSum += amount
	}

	fee := inputSum - outputSum
	if fee < 0 {
		return 0, fmt.Errorf("%w: inputs %v < outputs %v",
			ErrNegativeFee, inputSum, outputSum)
	}
	return fee, nil
}
