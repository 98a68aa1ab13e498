package sandbox

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLatestCatchpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/testnet/latest.catchpoint", r.URL.Path)
		_, _ = w.Write([]byte("23470000#ABCD1234\n"))
	}))
	defer srv.Close()

	label, err := LatestCatchpoint(context.Background(), srv.URL, "testnet")
	require.NoError(t, err)
	require.Equal(t, "23470000#ABCD1234", label)
}

func TestLatestCatchpointTrailingSlash(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/mainnet/latest.catchpoint", r.URL.Path)
		_, _ = w.Write([]byte("100#X"))
	}))
	defer srv.Close()

	label, err := LatestCatchpoint(context.Background(), srv.URL+"/", "mainnet")
	require.NoError(t, err)
	require.Equal(t, "100#X", label)
}

func TestLatestCatchpointErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "http error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			},
		},
		{
			name: "malformed label",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("not a catchpoint"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := LatestCatchpoint(context.Background(), srv.URL, "testnet")
			require.Error(t, err)
		})
	}
}
