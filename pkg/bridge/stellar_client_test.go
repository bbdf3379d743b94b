package bridge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handle func(rpcRequest) interface{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		result := handle(req)
		resp := rpcResponse{}
		data, err := json.Marshal(result)
		require.NoError(t, err)
		resp.Result = data
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func TestClientEmitEvent(t *testing.T) {
	srv := newTestServer(t, func(req rpcRequest) interface{} {
		require.Equal(t, "simulateAndSend", req.Method)
		return map[string]string{"tx_hash": "tx-1"}
	})
	defer srv.Close()

	c, err := New(Config{RPCEndpoint: srv.URL, IPCMContract: "CIPCM"})
	require.NoError(t, err)

	txHash, err := c.EmitEvent(context.Background(), "dfid-1", "cid-1")
	require.NoError(t, err)
	require.Equal(t, "tx-1", txHash)
}

func TestClientWriteStorageAndReadStorage(t *testing.T) {
	srv := newTestServer(t, func(req rpcRequest) interface{} {
		if req.Method == "simulateAndSend" {
			return map[string]string{"tx_hash": "tx-2"}
		}
		return map[string]interface{}{"cid": "cid-2", "found": true}
	})
	defer srv.Close()

	c, err := New(Config{RPCEndpoint: srv.URL, IPCMContract: "CIPCM"})
	require.NoError(t, err)

	txHash, err := c.WriteStorage(context.Background(), "dfid-2", "cid-2")
	require.NoError(t, err)
	require.Equal(t, "tx-2", txHash)

	cid, ok, err := c.ReadStorage(context.Background(), "dfid-2")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "cid-2", cid)
}

func TestClientMintNFT(t *testing.T) {
	srv := newTestServer(t, func(req rpcRequest) interface{} {
		return map[string]string{"token_id": "nft-1"}
	})
	defer srv.Close()

	c, err := New(Config{RPCEndpoint: srv.URL, NFTContract: "CNFT", OwnerWallet: "GOWNER"})
	require.NoError(t, err)

	tokenID, err := c.MintNFT(context.Background(), "dfid-3", "cid-3", "creator-1", []string{"id-a"})
	require.NoError(t, err)
	require.Equal(t, "nft-1", tokenID)
}

func TestClientHealthy(t *testing.T) {
	srv := newTestServer(t, func(req rpcRequest) interface{} {
		return map[string]string{"status": "healthy"}
	})
	defer srv.Close()

	c, err := New(Config{RPCEndpoint: srv.URL})
	require.NoError(t, err)
	require.True(t, c.Healthy(context.Background()))
}

func TestNewRejectsMissingEndpoint(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
}

func TestNewRejectsShortSecret(t *testing.T) {
	_, err := New(Config{RPCEndpoint: "http://localhost", Secret: "too-short"})
	require.Error(t, err)
}
