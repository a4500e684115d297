package client

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calldata-rpc/codec"
	"calldata-rpc/codecerr"
	"calldata-rpc/loadbalance"
	"calldata-rpc/message"
	"calldata-rpc/registry"
	"calldata-rpc/server"
)

type Args struct {
	A, B int
}

type Reply struct {
	Result int
}

type Arith struct{}

func (a *Arith) Add(args *Args, reply *Reply) error {
	reply.Result = args.A + args.B
	return nil
}

func (a *Arith) Check(args *Args, reply *Reply) error {
	if args.A < 0 {
		return codecerr.CannotParse("u32")
	}
	return errors.New("plain failure")
}

func (a *Arith) Sleep(args *Args, reply *Reply) error {
	time.Sleep(time.Duration(args.A) * time.Millisecond)
	return nil
}

func startServer(t *testing.T, reg registry.Registry) string {
	t.Helper()
	svr := server.NewServer()
	require.NoError(t, svr.Register(&Arith{}))
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go svr.ServeListener(l, "", reg)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		svr.Shutdown(ctx)
	})

	addr := l.Addr().String()
	require.Eventually(t, func() bool {
		instances, _ := reg.Discover(context.Background(), "Arith")
		for _, inst := range instances {
			if inst.Addr == addr {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)
	return addr
}

func deadAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	l.Close()
	return addr
}

func TestClientCall(t *testing.T) {
	for _, ct := range []codec.CodecType{codec.CodecTypeJSON, codec.CodecTypeBinary} {
		t.Run(ct.String(), func(t *testing.T) {
			reg := registry.NewStaticRegistry("Arith")
			startServer(t, reg)

			client := NewClient(reg, nil, WithCodec(ct), WithPoolSize(2))
			defer client.Close()

			var reply Reply
			require.NoError(t, client.Call(context.Background(), "Arith.Add", &Args{A: 1, B: 2}, &reply))
			assert.Equal(t, 3, reply.Result)

			require.NoError(t, client.Call(context.Background(), "Arith.Add", &Args{A: 10, B: 20}, &reply))
			assert.Equal(t, 30, reply.Result)
		})
	}
}

func TestClientConcurrentCalls(t *testing.T) {
	reg := registry.NewStaticRegistry("Arith")
	startServer(t, reg)
	client := NewClient(reg, nil, WithPoolSize(3))
	defer client.Close()

	var wg sync.WaitGroup
	errs := make(chan error, 30)
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var reply Reply
			if err := client.Call(context.Background(), "Arith.Add", &Args{A: i, B: 1}, &reply); err != nil {
				errs <- err
				return
			}
			if reply.Result != i+1 {
				errs <- errors.New("wrong result")
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestClientRemoteErrors(t *testing.T) {
	reg := registry.NewStaticRegistry("Arith")
	startServer(t, reg)
	client := NewClient(reg, nil)
	defer client.Close()

	err := client.Call(context.Background(), "Arith.Check", &Args{A: -1}, &Reply{})
	require.Error(t, err)
	assert.ErrorIs(t, err, codecerr.ErrCannotParse)
	assert.Equal(t, "cannot parse u32", err.Error())

	err = client.Call(context.Background(), "Arith.Check", &Args{A: 1}, &Reply{})
	assert.Equal(t, codecerr.Kind(message.KindInternal), codecerr.KindOf(err))
	assert.Equal(t, "plain failure", err.Error())

	err = client.Call(context.Background(), "Arith.Missing", &Args{}, &Reply{})
	assert.Equal(t, codecerr.Kind(message.KindInternal), codecerr.KindOf(err))

	assert.Error(t, client.Call(context.Background(), "ArithAdd", &Args{}, &Reply{}))
}

func TestClientNoInstances(t *testing.T) {
	client := NewClient(registry.NewStaticRegistry("Arith"), nil)
	defer client.Close()

	err := client.Call(context.Background(), "Arith.Add", &Args{}, &Reply{})
	assert.Equal(t, codecerr.Kind(message.KindUnavailable), codecerr.KindOf(err))
	assert.Contains(t, err.Error(), "no instances of Arith")
}

func TestClientRetriesOtherInstance(t *testing.T) {
	reg := registry.NewStaticRegistry("Arith", deadAddr(t))
	startServer(t, reg)

	// round robin starts with the dead address
	client := NewClient(reg, &loadbalance.RoundRobinBalancer{}, WithRetry(2, time.Millisecond))
	defer client.Close()

	var reply Reply
	require.NoError(t, client.Call(context.Background(), "Arith.Add", &Args{A: 4, B: 5}, &reply))
	assert.Equal(t, 9, reply.Result)
}

func TestClientTimeout(t *testing.T) {
	reg := registry.NewStaticRegistry("Arith")
	startServer(t, reg)
	client := NewClient(reg, nil, WithTimeout(20*time.Millisecond))
	defer client.Close()

	err := client.Call(context.Background(), "Arith.Sleep", &Args{A: 200}, nil)
	assert.Equal(t, codecerr.Kind(message.KindTimeout), codecerr.KindOf(err))

	require.NoError(t, client.Call(context.Background(), "Arith.Sleep", &Args{A: 1}, nil))
}

func TestClientConsistentHash(t *testing.T) {
	reg := registry.NewStaticRegistry("Arith")
	startServer(t, reg)
	startServer(t, reg)
	client := NewClient(reg, loadbalance.NewConsistentHashBalancer())
	defer client.Close()

	ctx := WithBalanceKey(context.Background(), "tenant-7")
	for i := 0; i < 5; i++ {
		var reply Reply
		require.NoError(t, client.Call(ctx, "Arith.Add", &Args{A: i}, &reply))
		assert.Equal(t, i, reply.Result)
	}
}
