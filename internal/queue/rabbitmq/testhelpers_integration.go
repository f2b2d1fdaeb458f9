//go:build integration

package rabbitmq

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	brokerUser     = "notifyd"
	brokerPassword = "push-token"
)

type broker struct {
	host string
	port string
}

// url builds an AMQP URL for the given credentials; the transport supplies
// its own password, so tests pass it separately.
func (b broker) url(user, password string) string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/", user, password, b.host, b.port)
}

func startBroker(t *testing.T, ctx context.Context) broker {
	t.Helper()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "rabbitmq:3.12-alpine",
			ExposedPorts: []string{"5672/tcp"},
			Env: map[string]string{
				"RABBITMQ_DEFAULT_USER": brokerUser,
				"RABBITMQ_DEFAULT_PASS": brokerPassword,
			},
			WaitingFor: wait.ForLog("Server startup complete").WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5672/tcp")
	require.NoError(t, err)
	return broker{host: host, port: port.Port()}
}
