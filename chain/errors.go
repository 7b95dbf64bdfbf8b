// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chain

import (
	"errors"
	"strings"

	"github.com/btcsuite/btcd/btcjson"
)

const (
	// errStillLoadingCode is the error code returned when an RPC request
	// is made but bitcoind is still in the process of loading or
	// verifying blocks.
	errStillLoadingCode = "-28"

	// walletNotFoundCode is returned by loadwallet when no wallet with
	// the requested name exists in the node's wallet directory.
	walletNotFoundCode btcjson.RPCErrorCode = -18

	// walletAlreadyLoadedCode is returned by loadwallet when the
	// requested wallet is already serving requests.
	walletAlreadyLoadedCode btcjson.RPCErrorCode = -35
)

// ErrBitcoindStartTimeout is returned when the bitcoind daemon fails to
// load and verify blocks before the start timeout expires.
var ErrBitcoindStartTimeout = errors.New("bitcoind start timeout")

// rpcErrCode extracts the JSON-RPC error code carried by err, reporting
// whether one was present.
func rpcErrCode(err error) (btcjson.RPCErrorCode, bool) {
	var rpcErr *btcjson.RPCError
	if errors.As(err, &rpcErr) {
		return rpcErr.Code, true
	}
	return 0, false
}

// isWarmupErr determines if the error was returned by a node that is still
// loading or verifying blocks.
func isWarmupErr(err error) bool {
	if code, ok := rpcErrCode(err); ok {
		return code == btcjson.ErrRPCInWarmup
	}
	return strings.Contains(err.Error(), errStillLoadingCode)
}

// isWalletNotFoundErr determines if the error was returned by loadwallet
// for a wallet that does not exist on the node.
func isWalletNotFoundErr(err error) bool {
	code, ok := rpcErrCode(err)
	return ok && code == walletNotFoundCode
}

// isWalletAlreadyLoadedErr determines if the error was returned by
// loadwallet for a wallet that is already serving requests.
func isWalletAlreadyLoadedErr(err error) bool {
	code, ok := rpcErrCode(err)
	return ok && code == walletAlreadyLoadedCode
}
