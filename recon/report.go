// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package recon

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
)

// Report holds the reconciled view of a single confirmed transaction.
type Report struct {
	// TxID is the hex id of the reconciled transaction.
	TxID string

	// InputAddress and InputAmount describe the output consumed by the
	// transaction's first input.
	InputAddress string
	InputAmount  btcutil.Amount

	// RecipientAddress and RecipientAmount describe the output paying
	// the recipient.
	RecipientAddress string
	RecipientAmount  btcutil.Amount

	// ChangeAddress and ChangeAmount describe the change output, if any.
	ChangeAddress string
	ChangeAmount  btcutil.Amount

	// Fee is the difference between the transaction's input and output
	// values.
	Fee btcutil.Amount

	// BlockHeight and BlockHash locate the confirming block.
	BlockHeight int64
	BlockHash   string
}

// Encode writes the report's fixed ten-line serialization: txid, input
// address, input amount, recipient address, recipient amount, change
// address, change amount, fee, block height, and block hash, one field per
// line.  Amounts use FormatAmount and the fee uses FormatFee.
func (r *Report) Encode(w io.Writer) error {
	lines := []string{
		r.TxID,
		r.InputAddress,
		FormatAmount(r.InputAmount),
		r.RecipientAddress,
		FormatAmount(r.RecipientAmount),
		r.ChangeAddress,
		FormatAmount(r.ChangeAmount),
		FormatFee(r.Fee),
		strconv.FormatInt(r.BlockHeight, 10),
		r.BlockHash,
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// WriteFile serializes the report to the named file, replacing any report
// left behind by a previous run.
func (r *Report) WriteFile(path string) error {
	fi, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := r.Encode(fi); err != nil {
		fi.Close()
		return err
	}
	return fi.Close()
}

// FormatAmount renders a monetary value for the report.  Whole-coin values
// collapse to a bare integer ("50") while fractional values keep their
// natural decimal form with trailing zeros removed ("79.99878").
func FormatAmount(amount btcutil.Amount) string {
	coins := int64(amount) / btcutil.SatoshiPerBitcoin
	frac := int64(amount) % btcutil.SatoshiPerBitcoin
	if frac == 0 {
		return strconv.FormatInt(coins, 10)
	}
	return strings.TrimRight(fmt.Sprintf("%d.%08d", coins, frac), "0")
}

// FormatFee renders a fee value for the report.  Fees always carry all
// eight decimal places ("0.00002820") and never collapse to an integer.
func FormatFee(fee btcutil.Amount) string {
	return fmt.Sprintf("%d.%08d",
		int64(fee)/btcutil.SatoshiPerBitcoin,
		int64(fee)%btcutil.SatoshiPerBitcoin)
}
