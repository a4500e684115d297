package main

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calldata-rpc/api"
	"calldata-rpc/server"
)

const helloJSON = `{"method_name":"hello_world","arguments":[{"type":"u8","value":"7"},{"type":"bool","value":"true"}]}`

func run(t *testing.T, ctx context.Context, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "calldata.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestBuildCmd(t *testing.T) {
	out, err := run(t, context.Background(), helloJSON, "build")
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"data": "AAAAAAsAAABoZWxsb193b3JsZAIAAAABAAAABwEAAAAB",
		"arguments": "AgAAAAEAAAAHAQAAAAE"
	}`, out)

	file := filepath.Join(t.TempDir(), "call.json")
	require.NoError(t, os.WriteFile(file, []byte(helloJSON), 0o600))
	fromFile, err := run(t, context.Background(), "", "build", "--file", file)
	require.NoError(t, err)
	assert.Equal(t, out, fromFile)
}

func TestBuildCmdStrict(t *testing.T) {
	unknown := `{"method_name":"m","arguments":[{"type":"f32","value":"1.5"}]}`
	_, err := run(t, context.Background(), unknown, "build")
	require.NoError(t, err)

	_, err = run(t, context.Background(), unknown, "--strict", "build")
	assert.ErrorContains(t, err, "f32")
}

func TestCallbackCmd(t *testing.T) {
	out, err := run(t, context.Background(), "", "callback", "--value", "BAAAAKomAAA", "--type", "u32")
	require.NoError(t, err)
	assert.Equal(t, "9898\n", out)

	_, err = run(t, context.Background(), "", "callback", "--value", "BAAAAKom", "--type", "u32")
	assert.Error(t, err)

	_, err = run(t, context.Background(), "", "callback", "--value", "BAAAAKomAAA")
	assert.Error(t, err)
}

func TestInspectCmd(t *testing.T) {
	out, err := run(t, context.Background(), "", "inspect",
		"--data", "AAAAAAsAAABoZWxsb193b3JsZAIAAAABAAAABwEAAAAB", "--types", "u8,bool")
	require.NoError(t, err)
	assert.Equal(t, "version: 0\n"+
		"method_name: \"hello_world\"\n"+
		"arguments: 2\n"+
		"  [0] u8: 7\n"+
		"  [1] bool: true\n", out)
}

func TestTagsCmd(t *testing.T) {
	out, err := run(t, context.Background(), "", "tags")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 27)
	assert.Contains(t, lines, "Vec<String>")
	assert.Contains(t, lines, "address")
}

func TestRemoteCmd(t *testing.T) {
	svr := server.NewServer()
	require.NoError(t, svr.Register(api.NewCodec(false)))
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go svr.ServeListener(l, "", nil)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		svr.Shutdown(ctx)
	})

	cfg := writeConfig(t, fmt.Sprintf("client:\n  addrs: [%q]\n  codec: binary\n", l.Addr().String()))
	ctx := context.Background()

	out, err := run(t, ctx, "", "--config", cfg, "remote", "callback", "--value", "BAAAAKomAAA", "--type", "u32")
	require.NoError(t, err)
	assert.Equal(t, "9898\n", out)

	out, err = run(t, ctx, helloJSON, "--config", cfg, "remote", "build")
	require.NoError(t, err)
	assert.Contains(t, out, `"data": "AAAAAAsAAABoZWxsb193b3JsZAIAAAABAAAABwEAAAAB"`)

	out, err = run(t, ctx, "", "--config", cfg, "remote", "inspect",
		"--data", "AAAAAAsAAABoZWxsb193b3JsZAIAAAABAAAABwEAAAAB", "--types", "u8")
	require.NoError(t, err)
	assert.Contains(t, out, "  [0] u8: 7\n")

	out, err = run(t, ctx, "", "--config", cfg, "remote", "tags")
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 27)

	_, err = run(t, ctx, "", "--config", cfg, "remote", "callback", "--value", "BAAAAKom", "--type", "u32")
	assert.Error(t, err)
}

func TestServeCmdStopsOnCancel(t *testing.T) {
	cfg := writeConfig(t, `
server:
  listen: "127.0.0.1:0"
  shutdown_timeout: 1s
gateway:
  listen: "127.0.0.1:0"
limits:
  rate: 100
  burst: 10
`)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := run(t, ctx, "", "--config", cfg, "serve")
		done <- err
	}()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop")
	}
}

func TestBadConfig(t *testing.T) {
	cfg := writeConfig(t, "client:\n  balancer: fastest\n")
	_, err := run(t, context.Background(), "", "--config", cfg, "tags")
	assert.Error(t, err)
}
