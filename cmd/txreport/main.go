// Copyright (c) 2015-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/txrecon/chain"
	"github.com/btcsuite/txrecon/internal/cfgutil"
	"github.com/btcsuite/txrecon/netparams"
	"github.com/btcsuite/txrecon/recon"
	flags "github.com/jessevdk/go-flags"
	"golang.org/x/term"
)

var newlineBytes = []byte{'\n'}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format, args...)
	os.Stderr.Write(newlineBytes)
	os.Exit(1)
}

func errContext(err error, context string) error {
	return fmt.Errorf("%s: %v", context, err)
}

// Flags.
var opts = struct {
	MainNet     bool                    `long:"mainnet" description:"Use the main bitcoin network"`
	TestNet3    bool                    `long:"testnet" description:"Use the test bitcoin network (version 3)"`
	SimNet      bool                    `long:"simnet" description:"Use the simulation bitcoin network"`
	SigNet      bool                    `long:"signet" description:"Use the signet bitcoin network"`
	RPCConnect  string                  `short:"c" long:"connect" description:"Hostname[:port] of bitcoind RPC server"`
	RPCUsername string                  `short:"u" long:"rpcuser" description:"bitcoind RPC username"`
	RPCPassword *cfgutil.ExplicitString `short:"P" long:"rpcpass" default-mask:"-" description:"bitcoind RPC password"`
	Wallet      string                  `long:"wallet" description:"Scope requests to the named wallet"`
	TxID        string                  `long:"txid" description:"Id of the confirmed transaction to reconcile"`
	Recipient   string                  `long:"recipient" description:"Address the transaction pays; every other addressed output counts as change"`
	Output      string                  `short:"o" long:"output" description:"File to write the report to instead of standard output"`
}{
	RPCConnect:  "localhost",
	RPCPassword: cfgutil.NewExplicitString(""),
}

// activeNet is the network the report is reconciled against.
var activeNet = &netparams.RegressionNetParams

// Parse and validate flags.
func init() {
	_, err := flags.Parse(&opts)
	if err != nil {
		os.Exit(1)
	}

	numNets := 0
	if opts.MainNet {
		activeNet = &netparams.MainNetParams
		numNets++
	}
	if opts.TestNet3 {
		activeNet = &netparams.TestNet3Params
		numNets++
	}
	if opts.SimNet {
		activeNet = &netparams.SimNetParams
		numNets++
	}
	if opts.SigNet {
		activeNet = &netparams.SigNetParams
		numNets++
	}
	if numNets > 1 {
		fatalf("Multiple bitcoin networks may not be used simultaneously")
	}

	rpcConnect, err := cfgutil.NormalizeAddress(opts.RPCConnect,
		activeNet.RPCClientPort)
	if err != nil {
		fatalf("Invalid RPC network address `%v`: %v", opts.RPCConnect, err)
	}
	opts.RPCConnect = rpcConnect

	if opts.RPCUsername == "" {
		fatalf("RPC username is required")
	}

	if opts.TxID == "" {
		fatalf("A transaction id is required")
	}
	if _, err := chainhash.NewHashFromStr(opts.TxID); err != nil {
		fatalf("Invalid transaction id `%v`: %v", opts.TxID, err)
	}

	if opts.Recipient == "" {
		fatalf("A recipient address is required")
	}
}

func main() {
	err := report()
	if err != nil {
		fatalf("%v", err)
	}
}

func report() error {
	rpcPassword := opts.RPCPassword.Value
	if !opts.RPCPassword.ExplicitlySet() {
		var err error
		rpcPassword, err = promptSecret("bitcoind RPC password")
		if err != nil {
			return errContext(err, "failed to read RPC password")
		}
	}

	// Open RPC client.
	client, err := chain.New(&chain.Config{
		ChainParams: activeNet.Params,
		Host:        opts.RPCConnect,
		User:        opts.RPCUsername,
		Pass:        rpcPassword,
		Wallet:      opts.Wallet,
	})
	if err != nil {
		return errContext(err, "failed to create RPC client")
	}
	defer client.Shutdown()

	if err := client.WaitForNodeReady(); err != nil {
		return errContext(err, "failed to reach bitcoind")
	}
	currentNet, err := client.CurrentNet()
	if err != nil {
		return errContext(err, "failed to determine the node's network")
	}
	if currentNet != activeNet.Params.Net {
		return fmt.Errorf("node is on network %v, not %v", currentNet,
			activeNet.Params.Name)
	}

	reconciler, err := recon.New(&recon.Config{
		Tx:          client,
		Blocks:      client,
		ChainParams: activeNet.Params,
	})
	if err != nil {
		return err
	}
	rep, err := reconciler.Reconcile(opts.TxID, opts.Recipient)
	if err != nil {
		return errContext(err, "failed to reconcile the transaction")
	}

	if opts.Output == "" {
		return rep.Encode(os.Stdout)
	}
	err = rep.WriteFile(opts.Output)
	if err != nil {
		return err
	}
	fmt.Printf("Report for %v written to %s\n", opts.TxID, opts.Output)
	return nil
}

func promptSecret(what string) (string, error) {
	fmt.Printf("%s: ", what)
	fd := int(os.Stdin.Fd())
	input, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(input), nil
}
