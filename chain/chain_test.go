// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chain

import (
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/txrecon/pkg/unit"
	"github.com/stretchr/testify/require"
)

const (
	// regtestGenesisHash is the block zero hash a regtest node reports.
	regtestGenesisHash = "0f9188f13cb7b2c71f2a335e3a4fc328bf5beb436012afca590b1a11466e2206"

	// mainnetGenesisHash is the block zero hash a mainnet node reports.
	mainnetGenesisHash = "000000000019d6689c085ae165831e934ff763ae46a2a6c172b3f1b60a8ce26f"
)

// rpcHandler produces the reply for a single stubbed RPC method.
type rpcHandler func(params []json.RawMessage) (interface{}, *btcjson.RPCError)

// rpcCall records one request received by the stub node.
type rpcCall struct {
	method string
	path   string
	params []json.RawMessage
}

// stubNode is an in-process JSON-RPC server standing in for bitcoind.
type stubNode struct {
	mu       sync.Mutex
	handlers map[string]rpcHandler
	calls    []rpcCall
}

func newStubNode() *stubNode {
	return &stubNode{handlers: make(map[string]rpcHandler)}
}

// handle installs the reply producer for an RPC method.
func (s *stubNode) handle(method string, handler rpcHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.handlers[method] = handler
}

// result installs a fixed successful reply for an RPC method.
func (s *stubNode) result(method string, result interface{}) {
	s.handle(method, func([]json.RawMessage) (interface{},
		*btcjson.RPCError) {

		return result, nil
	})
}

// fail installs a fixed error reply for an RPC method.
func (s *stubNode) fail(method string, rpcErr *btcjson.RPCError) {
	s.handle(method, func([]json.RawMessage) (interface{},
		*btcjson.RPCError) {

		return nil, rpcErr
	})
}

// methodCalls returns the recorded requests for one method.
func (s *stubNode) methodCalls(method string) []rpcCall {
	s.mu.Lock()
	defer s.mu.Unlock()

	var calls []rpcCall
	for _, call := range s.calls {
		if call.method == method {
			calls = append(calls, call)
		}
	}
	return calls
}

func (s *stubNode) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req btcjson.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.calls = append(s.calls, rpcCall{
		method: req.Method,
		path:   r.URL.Path,
		params: req.Params,
	})
	handler := s.handlers[req.Method]
	s.mu.Unlock()

	var (
		result interface{}
		rpcErr *btcjson.RPCError
	)
	if handler != nil {
		result, rpcErr = handler(req.Params)
	} else {
		rpcErr = &btcjson.RPCError{
			Code:    -32601,
			Message: "Method not found",
		}
	}

	var rawResult json.RawMessage
	if rpcErr == nil {
		var err error
		rawResult, err = json.Marshal(result)
		if err != nil {
			http.Error(w, err.Error(),
				http.StatusInternalServerError)
			return
		}
	}

	resp := struct {
		Result json.RawMessage   `json:"result"`
		Error  *btcjson.RPCError `json:"error"`
		ID     interface{}       `json:"id"`
	}{Result: rawResult, Error: rpcErr, ID: req.ID}

	if err := json.NewEncoder(w).Encode(&resp); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// newTestClient starts an HTTP server around the stub node and connects a
// client to it, shortening the warmup retry loop to keep tests fast.
func newTestClient(t *testing.T, node *stubNode, wallet string) *Client {
	t.Helper()

	server := httptest.NewServer(node)
	t.Cleanup(server.Close)

	client, err := New(&Config{
		ChainParams: &chaincfg.RegressionNetParams,
		Host:        strings.TrimPrefix(server.URL, "http://"),
		User:        "user",
		Pass:        "pass",
		Wallet:      wallet,
	})
	require.NoError(t, err)
	t.Cleanup(client.Shutdown)

	client.pollInterval = time.Millisecond
	client.startTimeout = 500 * time.Millisecond
	return client
}

// testAddress derives a regtest address for use in test fixtures.
func testAddress(t *testing.T) btcutil.Address {
	t.Helper()

	pkHash := make([]byte, 20)
	for i := range pkHash {
		pkHash[i] = 0x2a
	}
	addr, err := btcutil.NewAddressWitnessPubKeyHash(
		pkHash, &chaincfg.RegressionNetParams,
	)
	require.NoError(t, err)
	return addr
}

// TestNewValidation checks the required configuration fields.
func TestNewValidation(t *testing.T) {
	t.Parallel()

	_, err := New(&Config{Host: "127.0.0.1:18443"})
	require.ErrorContains(t, err, "chain parameters")

	_, err = New(&Config{ChainParams: &chaincfg.RegressionNetParams})
	require.ErrorContains(t, err, "rpc host")
}

// TestWaitForNodeReadyRetries checks that startup errors are retried until
// the node answers.
func TestWaitForNodeReadyRetries(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int32
	node := newStubNode()
	node.handle("getblockhash", func([]json.RawMessage) (interface{},
		*btcjson.RPCError) {

		if attempts.Add(1) < 3 {
			return nil, &btcjson.RPCError{
				Code:    btcjson.ErrRPCInWarmup,
				Message: "Loading block index...",
			}
		}
		return regtestGenesisHash, nil
	})

	client := newTestClient(t, node, "")
	require.NoError(t, client.WaitForNodeReady())
	require.EqualValues(t, 3, attempts.Load())
}

// TestWaitForNodeReadyTimeout checks that a node stuck in warmup is given
// up on after the start timeout.
func TestWaitForNodeReadyTimeout(t *testing.T) {
	t.Parallel()

	node := newStubNode()
	node.fail("getblockhash", &btcjson.RPCError{
		Code:    btcjson.ErrRPCInWarmup,
		Message: "Verifying blocks...",
	})

	client := newTestClient(t, node, "")
	client.startTimeout = 25 * time.Millisecond
	client.pollInterval = 5 * time.Millisecond

	err := client.WaitForNodeReady()
	require.ErrorIs(t, err, ErrBitcoindStartTimeout)
}

// TestWaitForNodeReadyUnexpectedError checks that errors other than the
// warmup code abort the wait immediately.
func TestWaitForNodeReadyUnexpectedError(t *testing.T) {
	t.Parallel()

	node := newStubNode()
	node.fail("getblockhash", &btcjson.RPCError{
		Code:    btcjson.ErrRPCMisc,
		Message: "unexpected",
	})

	client := newTestClient(t, node, "")
	err := client.WaitForNodeReady()
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrBitcoindStartTimeout)
	require.Len(t, node.methodCalls("getblockhash"), 1)
}

// TestCurrentNet checks network identification through the genesis block
// hash.
func TestCurrentNet(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		genesis string
		want    *chaincfg.Params
		wantErr string
	}{
		{
			name:    "regtest",
			genesis: regtestGenesisHash,
			want:    &chaincfg.RegressionNetParams,
		},
		{
			name:    "mainnet",
			genesis: mainnetGenesisHash,
			want:    &chaincfg.MainNetParams,
		},
		{
			name:    "unknown chain",
			genesis: "7777777777777777777777777777777777777777777777777777777777777777",
			wantErr: "unknown network",
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			node := newStubNode()
			node.result("getblockhash", test.genesis)

			client := newTestClient(t, node, "")
			net, err := client.CurrentNet()
			if test.wantErr != "" {
				require.ErrorContains(t, err, test.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, test.want.Net, net)
		})
	}
}

// TestChainInfo checks the getblockchaininfo passthrough.
func TestChainInfo(t *testing.T) {
	t.Parallel()

	node := newStubNode()
	node.result("getblockchaininfo", &btcjson.GetBlockChainInfoResult{
		Chain:  "regtest",
		Blocks: 102,
	})

	client := newTestClient(t, node, "")
	info, err := client.ChainInfo()
	require.NoError(t, err)
	require.Equal(t, "regtest", info.Chain)
	require.EqualValues(t, 102, info.Blocks)
}

// TestMineToAddress checks block generation requests and the decoded block
// hashes.
func TestMineToAddress(t *testing.T) {
	t.Parallel()

	const minedHash = "44d61a45d24bbbd2cd1dd15feffd33c089a4b2a4f0b4fd616b09a4e859e00289"

	node := newStubNode()
	node.result("generatetoaddress", []string{minedHash})

	addr := testAddress(t)
	client := newTestClient(t, node, "Miner")

	hashes, err := client.MineToAddress(101, addr)
	require.NoError(t, err)
	require.Len(t, hashes, 1)
	require.Equal(t, minedHash, hashes[0].String())

	calls := node.methodCalls("generatetoaddress")
	require.Len(t, calls, 1)
	require.Len(t, calls[0].params, 2)

	var numBlocks int64
	require.NoError(t, json.Unmarshal(calls[0].params[0], &numBlocks))
	require.EqualValues(t, 101, numBlocks)

	var addrParam string
	require.NoError(t, json.Unmarshal(calls[0].params[1], &addrParam))
	require.Equal(t, addr.EncodeAddress(), addrParam)
}

// TestFetchTx checks verbose transaction fetching.
func TestFetchTx(t *testing.T) {
	t.Parallel()

	const txid = "d21632eca2f41e5bcb54b3d9dc3caadd1e80ddec09d72b79b1cd902ea0919ba6"

	script, err := txscript.PayToAddrScript(testAddress(t))
	require.NoError(t, err)

	node := newStubNode()
	node.result("getrawtransaction", &btcjson.TxRawResult{
		Txid: txid,
		Vout: []btcjson.Vout{{
			Value: 20,
			N:     0,
			ScriptPubKey: btcjson.ScriptPubKeyResult{
				Hex:  hex.EncodeToString(script),
				Type: "witness_v0_keyhash",
			},
		}},
		BlockHash: regtestGenesisHash,
	})

	client := newTestClient(t, node, "")
	tx, err := client.FetchTx(txid)
	require.NoError(t, err)
	require.Equal(t, txid, tx.Txid)
	require.Equal(t, regtestGenesisHash, tx.BlockHash)
	require.Len(t, tx.Vout, 1)

	calls := node.methodCalls("getrawtransaction")
	require.Len(t, calls, 1)

	var txidParam string
	require.NoError(t, json.Unmarshal(calls[0].params[0], &txidParam))
	require.Equal(t, txid, txidParam)
}

// TestFetchTxInvalidID checks that malformed ids are rejected before any
// request is made.
func TestFetchTxInvalidID(t *testing.T) {
	t.Parallel()

	node := newStubNode()
	client := newTestClient(t, node, "")

	_, err := client.FetchTx("not a transaction id")
	require.ErrorContains(t, err, "invalid transaction id")
	require.Empty(t, node.methodCalls("getrawtransaction"))
}

// TestFetchBlockHeight checks block height resolution from a block hash.
func TestFetchBlockHeight(t *testing.T) {
	t.Parallel()

	const blockHash = "44d61a45d24bbbd2cd1dd15feffd33c089a4b2a4f0b4fd616b09a4e859e00289"

	node := newStubNode()
	node.result("getblock", &btcjson.GetBlockVerboseResult{
		Hash:   blockHash,
		Height: 102,
	})

	client := newTestClient(t, node, "")
	height, err := client.FetchBlockHeight(blockHash)
	require.NoError(t, err)
	require.EqualValues(t, 102, height)

	calls := node.methodCalls("getblock")
	require.Len(t, calls, 1)

	var hashParam string
	require.NoError(t, json.Unmarshal(calls[0].params[0], &hashParam))
	require.Equal(t, blockHash, hashParam)
}

// TestMempoolEntry checks the getmempoolentry passthrough and reply
// decoding.
func TestMempoolEntry(t *testing.T) {
	t.Parallel()

	const txid = "d21632eca2f41e5bcb54b3d9dc3caadd1e80ddec09d72b79b1cd902ea0919ba6"

	node := newStubNode()
	node.result("getmempoolentry", map[string]interface{}{
		"vsize":   141,
		"time":    1756100000,
		"depends": []string{},
		"fees": map[string]float64{
			"base":       0.0000282,
			"modified":   0.0000282,
			"ancestor":   0.0000282,
			"descendant": 0.0000282,
		},
	})

	client := newTestClient(t, node, "")
	entry, err := client.MempoolEntry(txid)
	require.NoError(t, err)
	require.Equal(t, unit.VByte(141), entry.VSize)
	require.EqualValues(t, 1756100000, entry.Time)
	require.Empty(t, entry.Depends)
	require.Equal(t, 0.0000282, entry.Fees.Base)

	calls := node.methodCalls("getmempoolentry")
	require.Len(t, calls, 1)

	var txidParam string
	require.NoError(t, json.Unmarshal(calls[0].params[0], &txidParam))
	require.Equal(t, txid, txidParam)
}
