//go:build integration

// containers.go - testcontainers-backed NATS, MinIO and Postgres for integration tests
package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	MinIOAccessKey = "minioadmin"
	MinIOSecretKey = "minioadmin"
)

func startContainer(t *testing.T, req testcontainers.ContainerRequest) (string, func(port string) string) {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("starting %s container: %v", req.Image, err)
	}
	t.Cleanup(func() { container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("getting container host: %v", err)
	}

	mapped := func(port string) string {
		p, err := container.MappedPort(ctx, nat.Port(port))
		if err != nil {
			t.Fatalf("getting mapped port %s: %v", port, err)
		}
		return p.Port()
	}
	return host, mapped
}

// StartNATS runs a JetStream-enabled NATS server and returns its URL.
func StartNATS(t *testing.T) string {
	host, port := startContainer(t, testcontainers.ContainerRequest{
		Image:        "nats:2.11.7-alpine",
		ExposedPorts: []string{"4222/tcp", "8222/tcp"},
		Cmd:          []string{"--js", "--port", "4222", "--http_port", "8222"},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("4222/tcp"),
			wait.ForHTTP("/").WithPort("8222/tcp").WithStartupTimeout(30*time.Second),
		),
	})
	return fmt.Sprintf("nats://%s:%s", host, port("4222/tcp"))
}

// StartMinIO runs a MinIO server and returns its host:port endpoint.
func StartMinIO(t *testing.T) string {
	host, port := startContainer(t, testcontainers.ContainerRequest{
		Image:        "minio/minio:latest",
		ExposedPorts: []string{"9000/tcp"},
		Cmd:          []string{"server", "/data"},
		Env: map[string]string{
			"MINIO_ROOT_USER":     MinIOAccessKey,
			"MINIO_ROOT_PASSWORD": MinIOSecretKey,
		},
		WaitingFor: wait.ForHTTP("/minio/health/live").WithPort("9000/tcp").WithStartupTimeout(60 * time.Second),
	})
	return fmt.Sprintf("%s:%s", host, port("9000/tcp"))
}

// StartPostgres runs Postgres and returns a connection URL.
func StartPostgres(t *testing.T) string {
	host, port := startContainer(t, testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "taxi",
			"POSTGRES_PASSWORD": "taxi",
			"POSTGRES_DB":       "taxi_db",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	})
	return fmt.Sprintf("postgres://taxi:taxi@%s:%s/taxi_db?sslmode=disable", host, port("5432/tcp"))
}

// StartRabbitMQ runs RabbitMQ and returns an AMQP URL.
func StartRabbitMQ(t *testing.T) string {
	host, port := startContainer(t, testcontainers.ContainerRequest{
		Image:        "rabbitmq:3.13-alpine",
		ExposedPorts: []string{"5672/tcp"},
		WaitingFor:   wait.ForLog("Server startup complete").WithStartupTimeout(90 * time.Second),
	})
	return fmt.Sprintf("amqp://guest:guest@%s:%s/", host, port("5672/tcp"))
}
