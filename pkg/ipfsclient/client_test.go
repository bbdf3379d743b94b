package ipfsclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRequiresEndpointOrPinataCreds(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)

	_, err = New(Config{Endpoint: "http://localhost:5001"})
	require.NoError(t, err)

	_, err = New(Config{PinataKey: "k", PinataSecret: "s"})
	require.NoError(t, err)
}

func TestNodeAddAndGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v0/add":
			w.Write([]byte(`{"Hash":"bafy-test"}`))
		case "/ipfs/bafy-test":
			w.Write([]byte("hello"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c, err := New(Config{Endpoint: srv.URL})
	require.NoError(t, err)

	cid, err := c.Add(context.Background(), []byte("hello"))
	require.NoError(t, err)
	require.Equal(t, "bafy-test", cid)

	data, err := c.Get(context.Background(), cid)
	require.NoError(t, err)
	require.Equal(t, "hello", string(data))

	require.NoError(t, c.Pin(context.Background(), cid))
}

func TestNodeHealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v0/version", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, err := New(Config{Endpoint: srv.URL})
	require.NoError(t, err)
	require.True(t, c.Healthy(context.Background()))
}
