// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chain provides a thin bitcoind RPC client covering the node and
// wallet operations needed to provision regtest wallets, mine and send
// coin, and fetch the confirmed transactions and blocks that reconciliation
// works from.  The client speaks JSON-RPC over HTTP POST and can scope
// itself to one of the node's wallets through the per-wallet URL endpoint.
package chain

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/rpcclient"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/txrecon/pkg/unit"
)

const (
	// defaultStartTimeout is the time we wait for bitcoind to finish
	// loading and verifying blocks and become ready to serve RPC
	// requests.
	defaultStartTimeout = 30 * time.Second

	// defaultPollInterval separates retries while bitcoind is starting
	// up.
	defaultPollInterval = time.Second
)

// Config contains the parameters required to reach a bitcoind RPC server.
type Config struct {
	// ChainParams are the chain parameters the bitcoind server is
	// expected to be running on.
	ChainParams *chaincfg.Params

	// Host is the IP address and port of the bitcoind's RPC server.
	Host string

	// User is the username to use to authenticate to bitcoind's RPC
	// server.
	User string

	// Pass is the passphrase to use to authenticate to bitcoind's RPC
	// server.
	Pass string

	// Wallet optionally scopes requests to the named wallet through the
	// node's per-wallet endpoint.  Node-level requests work regardless.
	Wallet string
}

// Client is a bitcoind RPC client using JSON-RPC over HTTP POST.
type Client struct {
	cfg Config
	rpc *rpcclient.Client

	// startTimeout and pollInterval control the retry loop used while
	// the node is still loading or verifying blocks.
	startTimeout time.Duration
	pollInterval time.Duration
}

// New creates a client connection to the node described by the config.  No
// RPC request is made until the client is used.
func New(cfg *Config) (*Client, error) {
	if cfg.ChainParams == nil {
		return nil, errors.New("chain parameters are required")
	}
	if cfg.Host == "" {
		return nil, errors.New("rpc host is required")
	}

	rpc, err := rpcclient.New(&rpcclient.ConnConfig{
		Host:                 endpoint(cfg),
		User:                 cfg.User,
		Pass:                 cfg.Pass,
		Params:               cfg.ChainParams.Name,
		DisableAutoReconnect: false,
		DisableConnectOnNew:  true,
		DisableTLS:           true,
		HTTPPostMode:         true,
	}, nil)
	if err != nil {
		return nil, err
	}

	return &Client{
		cfg:          *cfg,
		rpc:          rpc,
		startTimeout: defaultStartTimeout,
		pollInterval: defaultPollInterval,
	}, nil
}

// endpoint derives the host string for the connection, appending the
// per-wallet URL path when the config names a wallet.
func endpoint(cfg *Config) string {
	if cfg.Wallet == "" {
		return cfg.Host
	}
	return cfg.Host + "/wallet/" + url.PathEscape(cfg.Wallet)
}

// ForWallet derives a client whose requests are scoped to the named wallet.
// The wallet must be loaded on the node before the derived client is used.
func (c *Client) ForWallet(wallet string) (*Client, error) {
	cfg := c.cfg
	cfg.Wallet = wallet

	derived, err := New(&cfg)
	if err != nil {
		return nil, err
	}
	derived.startTimeout = c.startTimeout
	derived.pollInterval = c.pollInterval
	return derived, nil
}

// Wallet returns the name of the wallet the client is scoped to, or the
// empty string for a node-level client.
func (c *Client) Wallet() string {
	return c.cfg.Wallet
}

// Shutdown tears down the client and its outstanding requests.
func (c *Client) Shutdown() {
	c.rpc.Shutdown()
}

// WaitForNodeReady blocks until the node answers RPC requests, retrying
// while it reports that it is still loading or verifying blocks.
func (c *Client) WaitForNodeReady() error {
	_, err := c.genesisHash()
	return err
}

// genesisHash fetches the hash of block zero.  It catches the case where
// bitcoind is still in the process of loading blocks, which returns the
// following error,
// - "-28: Loading block index..."
// - "-28: Verifying blocks..."
// In this case we retry every poll interval until the start timeout.
func (c *Client) genesisHash() (*chainhash.Hash, error) {
	hash, err := c.rpc.GetBlockHash(0)
	if err == nil {
		return hash, nil
	}
	if !isWarmupErr(err) {
		return nil, err
	}

	log.Infof("Node is starting up, retrying: %v", err)
	timeout := time.After(c.startTimeout)

	for {
		select {
		case <-timeout:
			return nil, ErrBitcoindStartTimeout

		case <-time.After(c.pollInterval):
			hash, err = c.rpc.GetBlockHash(0)
			if err == nil {
				return hash, nil
			}
			if !isWarmupErr(err) {
				return nil, err
			}
		}
	}
}

// CurrentNet returns the network the node is running on, identified by the
// hash of its genesis block.
func (c *Client) CurrentNet() (wire.BitcoinNet, error) {
	hash, err := c.genesisHash()
	if err != nil {
		return 0, err
	}

	switch *hash {
	case *chaincfg.TestNet3Params.GenesisHash:
		return chaincfg.TestNet3Params.Net, nil
	case *chaincfg.RegressionNetParams.GenesisHash:
		return chaincfg.RegressionNetParams.Net, nil
	case *chaincfg.SigNetParams.GenesisHash:
		return chaincfg.SigNetParams.Net, nil
	case *chaincfg.MainNetParams.GenesisHash:
		return chaincfg.MainNetParams.Net, nil
	default:
		return 0, fmt.Errorf("unknown network with genesis hash %v", hash)
	}
}

// ChainInfo returns the node's view of the chain it follows.
func (c *Client) ChainInfo() (*btcjson.GetBlockChainInfoResult, error) {
	return c.rpc.GetBlockChainInfo()
}

// MineToAddress generates numBlocks blocks paying each subsidy to addr and
// returns the hashes of the connected blocks.  Generation is only available
// on networks with trivial proof of work, such as regtest.
func (c *Client) MineToAddress(numBlocks int64,
	addr btcutil.Address) ([]*chainhash.Hash, error) {

	return c.rpc.GenerateToAddress(numBlocks, addr, nil)
}

// FetchTx returns the decoded transaction with the given hex id.  Lookups
// of transactions outside the node's wallets require the node to maintain a
// full transaction index.
func (c *Client) FetchTx(txid string) (*btcjson.TxRawResult, error) {
	hash, err := chainhash.NewHashFromStr(txid)
	if err != nil {
		return nil, fmt.Errorf("invalid transaction id %q: %w",
			txid, err)
	}
	return c.rpc.GetRawTransactionVerbose(hash)
}

// FetchBlockHeight returns the height of the block with the given hex hash.
func (c *Client) FetchBlockHeight(blockHash string) (int64, error) {
	hash, err := chainhash.NewHashFromStr(blockHash)
	if err != nil {
		return 0, fmt.Errorf("invalid block hash %q: %w",
			blockHash, err)
	}

	block, err := c.rpc.GetBlockVerbose(hash)
	if err != nil {
		return 0, err
	}
	return block.Height, nil
}

// MempoolEntry describes an unconfirmed transaction in the node's mempool.
type MempoolEntry struct {
	// VSize is the transaction's virtual size as counted for fee rates.
	VSize unit.VByte `json:"vsize"`

	// Time is the unix time the transaction entered the mempool.
	Time int64 `json:"time"`

	// Depends lists the ids of unconfirmed ancestor transactions.
	Depends []string `json:"depends"`

	// Fees itemizes the entry's fees, denominated in coins.
	Fees MempoolFees `json:"fees"`
}

// MempoolFees itemizes the fees of a mempool entry, denominated in coins.
type MempoolFees struct {
	Base       float64 `json:"base"`
	Modified   float64 `json:"modified"`
	Ancestor   float64 `json:"ancestor"`
	Descendant float64 `json:"descendant"`
}

// MempoolEntry returns the node's mempool data for an unconfirmed
// transaction.
func (c *Client) MempoolEntry(txid string) (*MempoolEntry, error) {
	param, err := json.Marshal(txid)
	if err != nil {
		return nil, err
	}

	resp, err := c.rpc.RawRequest("getmempoolentry",
		[]json.RawMessage{param})
	if err != nil {
		return nil, err
	}

	var entry MempoolEntry
	if err := json.Unmarshal(resp, &entry); err != nil {
		return nil, fmt.Errorf("invalid getmempoolentry reply: %w", err)
	}
	return &entry, nil
}
