package grpc

import (
	"context"
	"net/http"

	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"LevelVault/internal/shared/transport"
	"LevelVault/modules/kit/logx"
	"LevelVault/modules/kit/tracex"
)

const (
	traceIDHeader = "x-trace-id"
	spanIDHeader  = "x-span-id"
)

// clientTraceOptions 出站请求带上当前 trace/span。
func clientTraceOptions() []gogrpc.DialOption {
	return []gogrpc.DialOption{
		gogrpc.WithChainUnaryInterceptor(func(ctx context.Context, method string, req, reply any,
			cc *gogrpc.ClientConn, invoker gogrpc.UnaryInvoker, opts ...gogrpc.CallOption) error {
			return invoker(injectTraceToOutgoing(ctx), method, req, reply, cc, opts...)
		}),
		gogrpc.WithChainStreamInterceptor(func(ctx context.Context, desc *gogrpc.StreamDesc, cc *gogrpc.ClientConn,
			method string, streamer gogrpc.Streamer, opts ...gogrpc.CallOption) (gogrpc.ClientStream, error) {
			return streamer(injectTraceToOutgoing(ctx), desc, cc, method, opts...)
		}),
	}
}

// serverAccessOptions 入站请求提取 trace/span 并写访问日志，和 HTTP 共用同一套字段。
func serverAccessOptions(log logx.Logger) []gogrpc.ServerOption {
	return []gogrpc.ServerOption{
		gogrpc.ChainUnaryInterceptor(func(ctx context.Context, req any,
			info *gogrpc.UnaryServerInfo, handler gogrpc.UnaryHandler) (any, error) {
			ctx = beginAccess(ctx, info.FullMethod)
			resp, err := handler(ctx, req)
			endAccess(ctx, log, err)
			return resp, err
		}),
		gogrpc.ChainStreamInterceptor(func(srv any, ss gogrpc.ServerStream,
			info *gogrpc.StreamServerInfo, handler gogrpc.StreamHandler) error {
			ctx := beginAccess(ss.Context(), info.FullMethod)
			err := handler(srv, &wrappedServerStream{ServerStream: ss, ctx: ctx})
			endAccess(ctx, log, err)
			return err
		}),
	}
}

type wrappedServerStream struct {
	gogrpc.ServerStream
	ctx context.Context
}

func (w *wrappedServerStream) Context() context.Context {
	return w.ctx
}

func beginAccess(ctx context.Context, method string) context.Context {
	return transport.NewContextWithParent(extractTraceFromIncoming(ctx), "GRPC "+method, "grpc")
}

func endAccess(ctx context.Context, log logx.Logger, err error) {
	st, _ := status.FromError(err)
	transport.SetStatus(ctx, httpStatusOf(st.Code()))
	if err != nil {
		transport.SetError(ctx, st.Code().String(), st.Message())
	}
	transport.WriteAccessLog(ctx, log)
}

// httpStatusOf 只用于访问日志分级。
func httpStatusOf(c codes.Code) int {
	switch c {
	case codes.OK:
		return http.StatusOK
	case codes.InvalidArgument:
		return http.StatusBadRequest
	case codes.NotFound:
		return http.StatusNotFound
	case codes.Canceled:
		return 499
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func injectTraceToOutgoing(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if traceID, ok := tracex.TraceIDFrom(ctx); ok {
		ctx = metadata.AppendToOutgoingContext(ctx, traceIDHeader, traceID)
	}
	if spanID, ok := tracex.SpanIDFrom(ctx); ok {
		ctx = metadata.AppendToOutgoingContext(ctx, spanIDHeader, spanID)
	}
	return ctx
}

func extractTraceFromIncoming(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ctx
	}
	if values := md.Get(traceIDHeader); len(values) > 0 && values[0] != "" {
		ctx = tracex.WithTraceID(ctx, values[0])
	}
	if values := md.Get(spanIDHeader); len(values) > 0 && values[0] != "" {
		ctx = tracex.WithSpanID(ctx, values[0])
	}
	return ctx
}
