// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package recon

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/stretchr/testify/require"
)

// TestFormatAmount checks that whole-coin values collapse to integers while
// fractional values print without trailing zeros.
func TestFormatAmount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		amount btcutil.Amount
		want   string
	}{
		{
			name:   "whole coins",
			amount: 50 * btcutil.SatoshiPerBitcoin,
			want:   "50",
		},
		{
			name:   "zero",
			amount: 0,
			want:   "0",
		},
		{
			name:   "fraction keeps natural form",
			amount: 7999878000,
			want:   "79.99878",
		},
		{
			name:   "single satoshi",
			amount: 1,
			want:   "0.00000001",
		},
		{
			name:   "tenth of a coin",
			amount: 10000000,
			want:   "0.1",
		},
		{
			name:   "change from a twenty coin send",
			amount: 2999997180,
			want:   "29.9999718",
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			require.Equal(t, test.want, FormatAmount(test.amount))
		})
	}
}

// TestFormatFee checks that fees always render with eight decimal places.
func TestFormatFee(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		fee  btcutil.Amount
		want string
	}{
		{
			name: "typical fee",
			fee:  2820,
			want: "0.00002820",
		},
		{
			name: "zero fee",
			fee:  0,
			want: "0.00000000",
		},
		{
			name: "whole coin fee",
			fee:  btcutil.SatoshiPerBitcoin,
			want: "1.00000000",
		},
		{
			name: "single satoshi",
			fee:  1,
			want: "0.00000001",
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			require.Equal(t, test.want, FormatFee(test.fee))
		})
	}
}

// TestReportEncode checks the fixed field order and line layout of the
// serialized report.
func TestReportEncode(t *testing.T) {
	t.Parallel()

	report := &Report{
		TxID:             "4d21632eca2f41e5bcb54b3d9dc3caadd1e80ddec09d72b79b1cd902ea0919ba",
		InputAddress:     "bcrt1qmlw6rdc8k8s3wrxscpd3yy5zdqvf3h5nho3r2q",
		InputAmount:      50 * btcutil.SatoshiPerBitcoin,
		RecipientAddress: "bcrt1q7vqt0dm2sqgyqyxzvyehs0d4dd4nerg9jzrz9m",
		RecipientAmount:  20 * btcutil.SatoshiPerBitcoin,
		ChangeAddress:    "bcrt1q62dgtvxkxrlcwlrrcnsfxke3c5xham2d6h9qe5",
		ChangeAmount:     2999997180,
		Fee:              2820,
		BlockHeight:      102,
		BlockHash:        "44d61a45d24bbbd2cd1dd15feffd33c089a4b2a4f0b4fd616b09a4e859e00289",
	}

	var buf bytes.Buffer
	require.NoError(t, report.Encode(&buf))

	want := "4d21632eca2f41e5bcb54b3d9dc3caadd1e80ddec09d72b79b1cd902ea0919ba\n" +
		"bcrt1qmlw6rdc8k8s3wrxscpd3yy5zdqvf3h5nho3r2q\n" +
		"50\n" +
		"bcrt1q7vqt0dm2sqgyqyxzvyehs0d4dd4nerg9jzrz9m\n" +
		"20\n" +
		"bcrt1q62dgtvxkxrlcwlrrcnsfxke3c5xham2d6h9qe5\n" +
		"29.9999718\n" +
		"0.00002820\n" +
		"102\n" +
		"44d61a45d24bbbd2cd1dd15feffd33c089a4b2a4f0b4fd616b09a4e859e00289\n"
	require.Equal(t, want, buf.String())
}

// TestReportWriteFile checks that writing a report replaces the previous
// contents of the target file.
func TestReportWriteFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out.txt")
	require.NoError(t, os.WriteFile(path, []byte("stale report\n"), 0644))

	report := &Report{
		TxID:             "aa",
		InputAddress:     "in",
		RecipientAddress: "to",
		ChangeAddress:    "back",
		BlockHash:        "bb",
	}
	require.NoError(t, report.WriteFile(path))

	got, err := os.ReadFile(path)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, report.Encode(&buf))
	require.Equal(t, buf.String(), string(got))
}
