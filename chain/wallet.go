// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chain

import (
	"encoding/json"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// walletInfo models the reply of the createwallet and loadwallet calls.
type walletInfo struct {
	Name    string `json:"name"`
	Warning string `json:"warning"`
}

// ListWallets returns the names of the wallets currently loaded on the
// node.
func (c *Client) ListWallets() ([]string, error) {
	resp, err := c.rpc.RawRequest("listwallets", nil)
	if err != nil {
		return nil, err
	}

	var wallets []string
	if err := json.Unmarshal(resp, &wallets); err != nil {
		return nil, fmt.Errorf("invalid listwallets reply: %w", err)
	}
	return wallets, nil
}

// CreateWallet creates a new wallet on the node and loads it.
func (c *Client) CreateWallet(name string) error {
	param, err := json.Marshal(name)
	if err != nil {
		return err
	}

	resp, err := c.rpc.RawRequest("createwallet",
		[]json.RawMessage{param})
	if err != nil {
		return err
	}

	var info walletInfo
	if err := json.Unmarshal(resp, &info); err != nil {
		return fmt.Errorf("invalid createwallet reply: %w", err)
	}
	if info.Warning != "" {
		log.Warnf("Wallet %q created with warning: %v",
			name, info.Warning)
	}
	return nil
}

// LoadWallet loads an existing wallet from the node's wallet directory.
// Loading a wallet that is already serving requests is not an error.
func (c *Client) LoadWallet(name string) error {
	param, err := json.Marshal(name)
	if err != nil {
		return err
	}

	resp, err := c.rpc.RawRequest("loadwallet", []json.RawMessage{param})
	if err != nil {
		if isWalletAlreadyLoadedErr(err) {
			log.Debugf("Wallet %q is already loaded", name)
			return nil
		}
		return err
	}

	var info walletInfo
	if err := json.Unmarshal(resp, &info); err != nil {
		return fmt.Errorf("invalid loadwallet reply: %w", err)
	}
	if info.Warning != "" {
		log.Warnf("Wallet %q loaded with warning: %v",
			name, info.Warning)
	}
	return nil
}

// EnsureWalletLoaded makes the named wallet available on the node, loading
// it from the wallet directory when it exists there and creating it
// otherwise.
func (c *Client) EnsureWalletLoaded(name string) error {
	wallets, err := c.ListWallets()
	if err != nil {
		return fmt.Errorf("unable to list wallets: %w", err)
	}
	for _, loaded := range wallets {
		if loaded == name {
			log.Debugf("Wallet %q is already loaded", name)
			return nil
		}
	}

	err = c.LoadWallet(name)
	switch {
	case err == nil:
		log.Infof("Loaded existing wallet %q", name)
		return nil

	case isWalletNotFoundErr(err):
		log.Infof("Wallet %q does not exist on the node, creating it",
			name)
		return c.CreateWallet(name)

	default:
		return fmt.Errorf("unable to load wallet %q: %w", name, err)
	}
}

// NewAddress derives a fresh receive address from the wallet the client is
// scoped to, tagging it with the given label.
func (c *Client) NewAddress(label string) (btcutil.Address, error) {
	return c.rpc.GetNewAddress(label)
}

// Balance returns the spendable balance of the wallet the client is scoped
// to.
func (c *Client) Balance() (btcutil.Amount, error) {
	return c.rpc.GetBalance("*")
}

// Send pays amount to addr from the wallet the client is scoped to.  The
// node selects the inputs, derives a change address, signs, and broadcasts
// the transaction.  The fee is deducted from the paying wallet on top of
// amount.
func (c *Client) Send(addr btcutil.Address,
	amount btcutil.Amount) (*chainhash.Hash, error) {

	return c.rpc.SendToAddress(addr, amount)
}
