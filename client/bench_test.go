package client

import (
	"context"
	"net"
	"testing"
	"time"

	"calldata-rpc/codec"
	"calldata-rpc/registry"
	"calldata-rpc/server"
)

func setupBench(b *testing.B, ct codec.CodecType) *Client {
	b.Helper()
	svr := server.NewServer()
	if err := svr.Register(&Arith{}); err != nil {
		b.Fatal(err)
	}
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		b.Fatal(err)
	}
	go svr.ServeListener(l, "", nil)

	cli := NewClient(registry.NewStaticRegistry("Arith", l.Addr().String()), nil,
		WithCodec(ct), WithPoolSize(8))
	b.Cleanup(func() {
		cli.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		svr.Shutdown(ctx)
	})
	return cli
}

func BenchmarkSerialCall(b *testing.B) {
	cli := setupBench(b, codec.CodecTypeJSON)
	args := &Args{A: 1, B: 2}
	reply := &Reply{}
	ctx := context.Background()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if err := cli.Call(ctx, "Arith.Add", args, reply); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkConcurrentCall(b *testing.B) {
	for _, ct := range []codec.CodecType{codec.CodecTypeJSON, codec.CodecTypeBinary} {
		b.Run(ct.String(), func(b *testing.B) {
			cli := setupBench(b, ct)
			ctx := context.Background()
			b.ResetTimer()
			b.RunParallel(func(pb *testing.PB) {
				args := &Args{A: 1, B: 2}
				reply := &Reply{}
				for pb.Next() {
					if err := cli.Call(ctx, "Arith.Add", args, reply); err != nil {
						b.Error(err)
						return
					}
				}
			})
		})
	}
}
