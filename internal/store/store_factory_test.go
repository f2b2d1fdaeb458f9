package store

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"notify_client/internal/config"
	"notify_client/internal/credential"
	"notify_client/internal/store/memory"
	"notify_client/internal/store/rest"
)

func TestNewGateway(t *testing.T) {
	t.Run("memory without api url", func(t *testing.T) {
		gw := NewGateway(&config.Config{}, credential.NewStatic("tok"), nil, zap.NewNop())
		_, ok := gw.(*memory.Store)
		require.True(t, ok)
	})

	t.Run("rest with api url", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			_, _ = w.Write([]byte(`{"count":4}`))
		}))
		defer srv.Close()

		gw := NewGateway(&config.Config{APIBaseURL: srv.URL}, credential.NewStatic("tok"), nil, zap.NewNop())
		_, ok := gw.(*rest.Client)
		require.True(t, ok)

		count, err := gw.UnreadCount(context.Background())
		require.NoError(t, err)
		require.Equal(t, 4, count)
	})
}
