// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package netparams

import "github.com/btcsuite/btcd/chaincfg"

// Params is used to group parameters for various networks such as the main
// network and test networks.  RPCClientPort is the conventional port a
// bitcoind-family node answers JSON-RPC on for that network.
type Params struct {
	*chaincfg.Params
	RPCClientPort string
}

// MainNetParams contains parameters specific to running against a node on
// the main network (wire.MainNet).
var MainNetParams = Params{
	Params:        &chaincfg.MainNetParams,
	RPCClientPort: "8332",
}

// TestNet3Params contains parameters specific to running against a node on
// the test network (version 3) (wire.TestNet3).
var TestNet3Params = Params{
	Params:        &chaincfg.TestNet3Params,
	RPCClientPort: "18332",
}

// RegressionNetParams contains parameters specific to running against a node
// on the regression test network (wire.TestNet).  This is the network the
// tool targets by default.
var RegressionNetParams = Params{
	Params:        &chaincfg.RegressionNetParams,
	RPCClientPort: "18443",
}

// SigNetParams contains parameters specific to running against a node on the
// default signet (wire.SigNet).
var SigNetParams = Params{
	Params:        &chaincfg.SigNetParams,
	RPCClientPort: "38332",
}

// SimNetParams contains parameters specific to running against a btcd node
// on the simulation test network (wire.SimNet).  bitcoind has no simnet, but
// btcd answers the same RPC surface consumed here.
var SimNetParams = Params{
	Params:        &chaincfg.SimNetParams,
	RPCClientPort: "18556",
}
