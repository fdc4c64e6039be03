package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/proto"
)

func TestServer_Health随存档状态切换(t *testing.T) {
	s := NewServer("127.0.0.1:0", nil)
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go func() { _ = s.srv.Serve(lis) }()
	defer s.Stop()

	conn, err := Dial(lis.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	client := healthpb.NewHealthClient(conn)

	check := func() *healthpb.HealthCheckResponse {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
		if err != nil {
			t.Fatalf("health check: %v", err)
		}
		return resp
	}

	notServing := &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_NOT_SERVING}
	if got := check(); !proto.Equal(got, notServing) {
		t.Fatalf("存档加载前应为 NOT_SERVING, got %v", got)
	}
	s.SetServing(true)
	serving := &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_SERVING}
	if got := check(); !proto.Equal(got, serving) {
		t.Fatalf("存档加载后应为 SERVING, got %v", got)
	}
}
