// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import "github.com/btcsuite/txrecon/netparams"

// activeNet is the currently active bitcoin network for the entire
// application.  It defaults to the regression test network and is switched
// with the network selection config options.
var activeNet = &netparams.RegressionNetParams
