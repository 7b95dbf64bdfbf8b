// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"net"
	"net/http"
	_ "net/http/pprof"
	"os"
	"runtime"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/txrecon/chain"
	"github.com/btcsuite/txrecon/pkg/unit"
	"github.com/btcsuite/txrecon/recon"
	"github.com/davecgh/go-spew/spew"
)

// cfg is the loaded application config.  It is set in reconMain and must
// not be used before then.
var cfg *config

// The chain client doubles as the reconciler's transaction and block
// sources.
var (
	_ recon.TxSource    = (*chain.Client)(nil)
	_ recon.BlockSource = (*chain.Client)(nil)
)

func main() {
	// Use all processor cores.
	runtime.GOMAXPROCS(runtime.NumCPU())

	// Work around defer not working after os.Exit.
	if err := reconMain(); err != nil {
		os.Exit(1)
	}
}

// reconMain is a work-around main function that is required since deferred
// functions (such as log flushing) are not called with calls to os.Exit.
// Instead, main runs this function and checks for a non-nil error, at which
// point any defers have already run, and if the error is non-nil, the
// program can be exited with an error exit status.
func reconMain() error {
	// Load configuration and parse command line.  This function also
	// initializes logging and configures it accordingly.
	tcfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	cfg = tcfg
	defer func() {
		if logRotator != nil {
			logRotator.Close()
		}
	}()
	addInterruptHandler(func() {
		if logRotator != nil {
			logRotator.Close()
		}
	})

	// Show version at startup.
	log.Infof("Version %s", version())

	if cfg.Profile != "" {
		go func() {
			listenAddr := net.JoinHostPort("", cfg.Profile)
			log.Infof("Profile server listening on %s", listenAddr)
			profileRedirect := http.RedirectHandler("/debug/pprof",
				http.StatusSeeOther)
			http.Handle("/", profileRedirect)
			log.Errorf("%v", http.ListenAndServe(listenAddr, nil))
		}()
	}

	node, err := chain.New(&chain.Config{
		ChainParams: activeNet.Params,
		Host:        cfg.RPCConnect,
		User:        cfg.RPCUser,
		Pass:        cfg.RPCPass.Value,
	})
	if err != nil {
		log.Errorf("Unable to create the bitcoind RPC client: %v", err)
		return err
	}
	defer node.Shutdown()
	addInterruptHandler(node.Shutdown)

	report, err := runWorkflow(node)
	if err != nil {
		log.Errorf("%v", err)
		return err
	}

	// The report is only written once every field has been derived.
	if err := report.WriteFile(cfg.ReportFile); err != nil {
		log.Errorf("Unable to write the report to %v: %v",
			cfg.ReportFile, err)
		return err
	}
	log.Infof("Report written to %v", cfg.ReportFile)

	return nil
}

// runWorkflow drives the demonstration payment against the configured node
// and reconciles the resulting transaction: the miner wallet mines itself a
// spendable coinbase, pays the trader wallet, a confirming block is mined,
// and the confirmed transaction is resolved into a report.
func runWorkflow(node *chain.Client) (*recon.Report, error) {
	// bitcoind answers RPC during startup with a transient error while
	// the block index loads, so wait until the node settles before the
	// network check.
	if err := node.WaitForNodeReady(); err != nil {
		return nil, fmt.Errorf("unable to reach bitcoind at %v: %w",
			cfg.RPCConnect, err)
	}
	currentNet, err := node.CurrentNet()
	if err != nil {
		return nil, fmt.Errorf("unable to determine the node's "+
			"network: %w", err)
	}
	if currentNet != activeNet.Params.Net {
		return nil, fmt.Errorf("node at %v is on network %v, not %v",
			cfg.RPCConnect, currentNet, activeNet.Params.Name)
	}

	info, err := node.ChainInfo()
	if err != nil {
		return nil, fmt.Errorf("unable to query chain info: %w", err)
	}
	log.Infof("Connected to bitcoind on %s at height %d (best block %v)",
		info.Chain, info.Blocks, info.BestBlockHash)
	log.Tracef("Chain info: %v", newLogClosure(func() string {
		return spew.Sdump(info)
	}))

	// Provision both wallets and derive clients scoped to each.
	if err := node.EnsureWalletLoaded(cfg.MinerWallet); err != nil {
		return nil, err
	}
	if err := node.EnsureWalletLoaded(cfg.TraderWallet); err != nil {
		return nil, err
	}
	miner, err := node.ForWallet(cfg.MinerWallet)
	if err != nil {
		return nil, err
	}
	defer miner.Shutdown()
	trader, err := node.ForWallet(cfg.TraderWallet)
	if err != nil {
		return nil, err
	}
	defer trader.Shutdown()

	// Mine the miner wallet a spendable balance.  A coinbase unlocks
	// only after the maturity period, so mining maturity+1 blocks
	// guarantees the first subsidy of this run is spendable.
	minerAddr, err := miner.NewAddress("Mining Reward")
	if err != nil {
		return nil, fmt.Errorf("unable to generate a mining address "+
			"for wallet %q: %w", cfg.MinerWallet, err)
	}
	log.Infof("Mining reward address: %v", minerAddr)

	matureBlocks := int64(activeNet.CoinbaseMaturity) + 1
	log.Infof("Mining %d blocks to %v", matureBlocks, minerAddr)
	if _, err := node.MineToAddress(matureBlocks, minerAddr); err != nil {
		return nil, fmt.Errorf("unable to mine %d blocks: %w",
			matureBlocks, err)
	}

	balance, err := miner.Balance()
	if err != nil {
		return nil, fmt.Errorf("unable to query the %q balance: %w",
			cfg.MinerWallet, err)
	}
	log.Infof("Wallet %q spendable balance: %v", cfg.MinerWallet, balance)
	if balance <= cfg.SendAmount.Amount {
		return nil, fmt.Errorf("wallet %q holds %v which cannot fund "+
			"a %v payment", cfg.MinerWallet, balance,
			cfg.SendAmount.Amount)
	}

	// Pay the trader.
	traderAddr, err := trader.NewAddress("Received")
	if err != nil {
		return nil, fmt.Errorf("unable to generate a receive address "+
			"for wallet %q: %w", cfg.TraderWallet, err)
	}
	log.Infof("Trader receive address: %v", traderAddr)

	txHash, err := miner.Send(traderAddr, cfg.SendAmount.Amount)
	if err != nil {
		return nil, fmt.Errorf("unable to send %v to %v: %w",
			cfg.SendAmount.Amount, traderAddr, err)
	}
	log.Infof("Sent %v from %q to %q in transaction %v",
		cfg.SendAmount.Amount, cfg.MinerWallet, cfg.TraderWallet,
		txHash)

	// Inspect the unconfirmed transaction while it sits in the mempool.
	entry, err := node.MempoolEntry(txHash.String())
	if err != nil {
		return nil, fmt.Errorf("transaction %v missing from the "+
			"mempool: %w", txHash, err)
	}
	baseFee, err := btcutil.NewAmount(entry.Fees.Base)
	if err != nil {
		return nil, fmt.Errorf("invalid mempool fee %v for %v: %w",
			entry.Fees.Base, txHash, err)
	}
	log.Infof("Mempool entry for %v: vsize %v, fee %v (%v)", txHash,
		entry.VSize, baseFee, unit.NewSatPerVByte(baseFee, entry.VSize))
	log.Tracef("Mempool entry: %v", newLogClosure(func() string {
		return spew.Sdump(entry)
	}))

	// Confirm the payment.
	hashes, err := node.MineToAddress(cfg.ConfirmBlocks, minerAddr)
	if err != nil {
		return nil, fmt.Errorf("unable to mine the confirming "+
			"%s: %w", pickNoun(int(cfg.ConfirmBlocks), "block",
			"blocks"), err)
	}
	if len(hashes) == 0 {
		return nil, fmt.Errorf("node connected no blocks for a %d "+
			"block generate request", cfg.ConfirmBlocks)
	}
	log.Infof("Mined %d confirming %s, tip %v", len(hashes),
		pickNoun(len(hashes), "block", "blocks"),
		hashes[len(hashes)-1])

	// Reconcile the confirmed transaction into the report.
	reconciler, err := recon.New(&recon.Config{
		Tx:          node,
		Blocks:      node,
		ChainParams: activeNet.Params,
	})
	if err != nil {
		return nil, err
	}
	report, err := reconciler.Reconcile(txHash.String(),
		traderAddr.EncodeAddress())
	if err != nil {
		return nil, fmt.Errorf("unable to reconcile transaction "+
			"%v: %w", txHash, err)
	}
	log.Infof("Transaction %v paid %v to %v with fee %v, change %v to %v",
		report.TxID, report.RecipientAmount, report.RecipientAddress,
		report.Fee, report.ChangeAmount, report.ChangeAddress)

	// The balances after confirmation close out the demonstration run.
	minerBalance, err := miner.Balance()
	if err != nil {
		return nil, fmt.Errorf("unable to query the %q balance: %w",
			cfg.MinerWallet, err)
	}
	traderBalance, err := trader.Balance()
	if err != nil {
		return nil, fmt.Errorf("unable to query the %q balance: %w",
			cfg.TraderWallet, err)
	}
	log.Infof("Wallet balances after confirmation: %q holds %v, %q "+
		"holds %v", cfg.MinerWallet, minerBalance, cfg.TraderWallet,
		traderBalance)

	return report, nil
}
