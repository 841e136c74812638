package grpcserver_test

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"

	"jobmate/research-service/internal/grpcserver"
	"jobmate/research-service/internal/health"
)

func dial(t *testing.T, srv *grpcserver.Server) healthpb.HealthClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	return healthpb.NewHealthClient(conn)
}

func check(t *testing.T, c healthpb.HealthClient, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := c.Check(context.Background(), &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		t.Fatal(err)
	}
	return resp.GetStatus()
}

func TestRefreshFollowsDatabase(t *testing.T) {
	var dbDown atomic.Bool
	checker := &health.Checker{Database: health.PingFunc(func(context.Context) error {
		if dbDown.Load() {
			return errors.New("down")
		}
		return nil
	})}
	srv := grpcserver.NewServer(checker)
	client := dial(t, srv)

	if got := check(t, client, ""); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("before refresh = %s", got)
	}

	srv.Refresh(context.Background())
	for _, svc := range []string{"", grpcserver.ServiceName} {
		if got := check(t, client, svc); got != healthpb.HealthCheckResponse_SERVING {
			t.Fatalf("%q after refresh = %s", svc, got)
		}
	}

	dbDown.Store(true)
	srv.Refresh(context.Background())
	if got := check(t, client, ""); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("database down = %s", got)
	}
}

func TestServingWithoutDatabase(t *testing.T) {
	srv := grpcserver.NewServer(&health.Checker{})
	client := dial(t, srv)
	srv.Refresh(context.Background())
	if got := check(t, client, ""); got != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("status = %s", got)
	}
}
