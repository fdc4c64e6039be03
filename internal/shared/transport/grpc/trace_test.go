package grpc

import (
	"context"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"

	"LevelVault/modules/kit/tracex"
)

func TestTrace_出站注入后入站可提取(t *testing.T) {
	ctx := tracex.WithSpanID(tracex.WithTraceID(context.Background(), "trace-1"), "loader")
	out := injectTraceToOutgoing(ctx)

	md, ok := metadata.FromOutgoingContext(out)
	if !ok {
		t.Fatalf("期望出站 metadata 存在")
	}
	in := extractTraceFromIncoming(metadata.NewIncomingContext(context.Background(), md))
	if got, _ := tracex.TraceIDFrom(in); got != "trace-1" {
		t.Fatalf("trace_id 不一致, got=%q", got)
	}
	if got, _ := tracex.SpanIDFrom(in); got != "loader" {
		t.Fatalf("span_id 不一致, got=%q", got)
	}
}

func TestTrace_无metadata原样返回(t *testing.T) {
	ctx := context.Background()
	if got := extractTraceFromIncoming(ctx); got != ctx {
		t.Fatalf("期望无 metadata 时原样返回 ctx")
	}
}

func TestHttpStatusOf_访问日志分级(t *testing.T) {
	cases := map[codes.Code]int{
		codes.OK:               200,
		codes.NotFound:         404,
		codes.Unavailable:      503,
		codes.DeadlineExceeded: 504,
		codes.Internal:         500,
	}
	for c, want := range cases {
		if got := httpStatusOf(c); got != want {
			t.Fatalf("%v: got=%d want=%d", c, got, want)
		}
	}
}
