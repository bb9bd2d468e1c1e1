package metrics

import (
	"io"
	"net/http"
	"testing"

	"github.com/nspcc-dev/thor-go/pkg/config"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestPrometheusService(t *testing.T) {
	t.Run("nil logger", func(t *testing.T) {
		require.Nil(t, NewPrometheusService(config.BasicService{}, nil))
	})

	t.Run("disabled", func(t *testing.T) {
		s := NewPrometheusService(config.BasicService{Addresses: []string{"localhost:0"}}, zaptest.NewLogger(t))
		require.NoError(t, s.Start())
		require.Equal(t, []string{"localhost:0"}, s.Addresses())
		s.ShutDown()
	})

	t.Run("enabled", func(t *testing.T) {
		s := NewPrometheusService(config.BasicService{
			Enabled:   true,
			Addresses: []string{"localhost:0"},
		}, zaptest.NewLogger(t))
		require.NoError(t, s.Start())
		require.NoError(t, s.Start()) // no-op
		t.Cleanup(s.ShutDown)

		addrs := s.Addresses()
		require.Len(t, addrs, 1)
		require.NotEqual(t, "localhost:0", addrs[0])

		resp, err := http.Get("http://" + addrs[0] + "/metrics")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.Contains(t, string(body), "go_goroutines")
	})

	t.Run("bad address", func(t *testing.T) {
		s := NewPrometheusService(config.BasicService{
			Enabled:   true,
			Addresses: []string{"not-an-address"},
		}, zaptest.NewLogger(t))
		require.Error(t, s.Start())
	})
}
