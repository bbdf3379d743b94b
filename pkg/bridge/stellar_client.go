// Package bridge implements storageadapter.StellarClient against a Stellar
// Soroban RPC endpoint: the chain-write surface StellarTestnetIpfs,
// StellarMainnetIpfs, and StellarMainnetStellarMainnet anchor through. The
// wire format of the RPC and its contracts' XDR encoding are treated as an
// external collaborator's concern (spec.md's Non-goals name it explicitly);
// this client only needs to satisfy the narrow interface those adapters
// call through.
package bridge

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/defarm/tracectl/pkg/traceerr"
	"github.com/defarm/tracectl/pkg/util/resiliency"
)

// Config carries the env-var-sourced settings a StellarClient needs.
type Config struct {
	RPCEndpoint  string // STELLAR_TESTNET_SECRET's network's soroban-rpc URL
	Secret       string // STELLAR_TESTNET_SECRET, the signing account's seed
	NFTContract  string // STELLAR_TESTNET_NFT_CONTRACT
	IPCMContract string // STELLAR_TESTNET_IPCM_CONTRACT
	OwnerWallet  string // DEFARM_OWNER_WALLET
}

// Client is a storageadapter.StellarClient backed by a Soroban JSON-RPC
// endpoint, reached through resiliency.EnhancedClient's retry and circuit
// breaker wrapping.
type Client struct {
	cfg    Config
	http   *resiliency.EnhancedClient
	signer ed25519.PrivateKey
}

// New derives a client from cfg. cfg.Secret is expected to already be the
// raw 32-byte ed25519 seed (strkey decode/encode is the caller's concern,
// treated as RPC-protocol plumbing out of this module's scope).
func New(cfg Config) (*Client, error) {
	if cfg.RPCEndpoint == "" {
		return nil, traceerr.Validation("stellar RPC endpoint is required")
	}
	var signer ed25519.PrivateKey
	if cfg.Secret != "" {
		seed := []byte(cfg.Secret)
		if len(seed) < ed25519.SeedSize {
			return nil, traceerr.Validation("stellar secret is too short for an ed25519 seed")
		}
		signer = ed25519.NewKeyFromSeed(seed[:ed25519.SeedSize])
	}
	return &Client{
		cfg:    cfg,
		http:   resiliency.NewEnhancedClient(),
		signer: signer,
	}, nil
}

type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      int         `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) call(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return nil, traceerr.Write(err, "encode stellar rpc request %s", method)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.RPCEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, traceerr.Connection(err, "build stellar rpc request %s", method)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, traceerr.Connection(err, "call stellar rpc %s", method)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, traceerr.Read(err, "read stellar rpc response for %s", method)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(raw, &rpcResp); err != nil {
		return nil, traceerr.Read(err, "decode stellar rpc response for %s", method)
	}
	if rpcResp.Error != nil {
		return nil, traceerr.Write(fmt.Errorf("%s", rpcResp.Error.Message), "stellar rpc %s rejected (code %d)", method, rpcResp.Error.Code)
	}
	return rpcResp.Result, nil
}

type txResult struct {
	TxHash string `json:"tx_hash"`
}

// EmitEvent anchors an event referencing dfid/cid without a contract
// storage write (AnchorEventOnly mode).
func (c *Client) EmitEvent(ctx context.Context, dfid, cid string) (string, error) {
	result, err := c.call(ctx, "simulateAndSend", map[string]string{
		"contract": c.cfg.IPCMContract,
		"function": "emit_event",
		"dfid":     dfid,
		"cid":      cid,
		"signer":   c.publicKeyHint(),
	})
	if err != nil {
		return "", err
	}
	var tx txResult
	if err := json.Unmarshal(result, &tx); err != nil {
		return "", traceerr.Read(err, "decode emit_event result for %s", dfid)
	}
	return tx.TxHash, nil
}

// WriteStorage writes (dfid, cid) into the IPCM contract's storage and
// emits the corresponding event (AnchorFullStorage mode).
func (c *Client) WriteStorage(ctx context.Context, dfid, cid string) (string, error) {
	result, err := c.call(ctx, "simulateAndSend", map[string]string{
		"contract": c.cfg.IPCMContract,
		"function": "write_storage",
		"dfid":     dfid,
		"cid":      cid,
		"signer":   c.publicKeyHint(),
	})
	if err != nil {
		return "", err
	}
	var tx txResult
	if err := json.Unmarshal(result, &tx); err != nil {
		return "", traceerr.Read(err, "decode write_storage result for %s", dfid)
	}
	return tx.TxHash, nil
}

// ReadStorage reads the last (dfid, cid) pair written for dfid.
func (c *Client) ReadStorage(ctx context.Context, dfid string) (string, bool, error) {
	result, err := c.call(ctx, "simulateTransaction", map[string]string{
		"contract": c.cfg.IPCMContract,
		"function": "read_storage",
		"dfid":     dfid,
	})
	if err != nil {
		return "", false, err
	}
	var out struct {
		CID   string `json:"cid"`
		Found bool   `json:"found"`
	}
	if err := json.Unmarshal(result, &out); err != nil {
		return "", false, traceerr.Read(err, "decode read_storage result for %s", dfid)
	}
	return out.CID, out.Found, nil
}

// MintNFT mints a one-time NFT for dfid carrying the canonical identifiers
// and first CID, owned by DEFARM_OWNER_WALLET.
func (c *Client) MintNFT(ctx context.Context, dfid, cid, creator string, canonicalIDs []string) (string, error) {
	result, err := c.call(ctx, "simulateAndSend", map[string]interface{}{
		"contract":      c.cfg.NFTContract,
		"function":      "mint",
		"dfid":          dfid,
		"cid":           cid,
		"creator":       creator,
		"owner":         c.cfg.OwnerWallet,
		"canonical_ids": canonicalIDs,
		"signer":        c.publicKeyHint(),
	})
	if err != nil {
		return "", err
	}
	var out struct {
		TokenID string `json:"token_id"`
	}
	if err := json.Unmarshal(result, &out); err != nil {
		return "", traceerr.Read(err, "decode mint result for %s", dfid)
	}
	return out.TokenID, nil
}

// Healthy reports whether the RPC endpoint currently responds.
func (c *Client) Healthy(ctx context.Context) bool {
	_, err := c.call(ctx, "getHealth", nil)
	return err == nil
}

func (c *Client) publicKeyHint() string {
	if c.signer == nil {
		return ""
	}
	pub, ok := c.signer.Public().(ed25519.PublicKey)
	if !ok {
		return ""
	}
	return base64.StdEncoding.EncodeToString(pub)
}
