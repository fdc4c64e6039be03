package grpc

import (
	"fmt"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"LevelVault/modules/kit/logx"
)

// ServiceName 是 health 检查里登记的服务名。
const ServiceName = "levelvault.SaveService"

// Server 包一层 grpc.Server，附带 health 服务，存档加载完成前报 NOT_SERVING。
type Server struct {
	srv    *grpc.Server
	health *health.Server
	addr   string
}

func NewServer(addr string, log logx.Logger) *Server {
	srv := grpc.NewServer(serverAccessOptions(logx.OrNop(log))...)
	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(srv, hs)
	return &Server{srv: srv, health: hs, addr: addr}
}

// SetServing 切换 health 状态。
func (s *Server) SetServing(ok bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if ok {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(ServiceName, status)
}

// Start 阻塞监听。
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("grpc listen %s: %w", s.addr, err)
	}
	return s.srv.Serve(lis)
}

func (s *Server) Stop() {
	s.health.Shutdown()
	s.srv.GracefulStop()
}

// Dial 建立带 trace 透传的客户端连接。
func Dial(target string) (*grpc.ClientConn, error) {
	opts := append(clientTraceOptions(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial %s failed: %w", target, err)
	}
	return conn, nil
}
