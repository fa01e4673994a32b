package main

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/cockroachdb/errors"
	"github.com/opsli/go-cache/env"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func run(t *testing.T, mr *miniredis.Miniredis, args ...string) (string, error) {
	t.Helper()
	return execute(t, append([]string{"--redis-url", "redis://" + mr.Addr(), "--log-level", "none"}, args...)...)
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root, shutdown := newRootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	shutdown()
	return strings.TrimSpace(out.String()), err
}

// unsetenv clears name for the duration of the test.
func unsetenv(t *testing.T, name string) {
	t.Setenv(name, "")
	os.Unsetenv(name)
}

func TestPutGetDel(t *testing.T) {
	t.Setenv(env.CachePrefix, "")
	mr := miniredis.RunT(t)

	_, err := run(t, mr, "put", "user:42", `{"name":"Ann"}`, "--permanent")
	require.NoError(t, err)
	raw, err := mr.Get("opsli:eden:user:42")
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":{"name":"Ann"}}`, raw)

	out, err := run(t, mr, "get", "user:42", "--permanent")
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Ann"}`, out)

	_, err = run(t, mr, "get", "user:42")
	assert.True(t, errors.Is(err, errNotFound))

	out, err = run(t, mr, "del", "user:42")
	require.NoError(t, err)
	assert.Equal(t, "true", out)
	assert.False(t, mr.Exists("opsli:eden:user:42"))
}

func TestHashCommands(t *testing.T) {
	mr := miniredis.RunT(t)

	_, err := run(t, mr, "--prefix", "crm", "hput", "dict", "1", "male")
	require.NoError(t, err)
	assert.True(t, mr.Exists("crm:edenhash:dict"))

	out, err := run(t, mr, "--prefix", "crm", "hget", "dict", "1")
	require.NoError(t, err)
	assert.Equal(t, `"male"`, out)

	out, err = run(t, mr, "--prefix", "crm", "hgetall", "dict")
	require.NoError(t, err)
	assert.JSONEq(t, `{"1":"male"}`, out)

	out, err = run(t, mr, "--prefix", "crm", "hdel", "dict", "1")
	require.NoError(t, err)
	assert.Equal(t, "true", out)
}

func TestNilCommands(t *testing.T) {
	t.Setenv(env.CachePrefix, "")
	mr := miniredis.RunT(t)

	for i := 0; i < 4; i++ {
		_, err := run(t, mr, "nil", "put", "ghost")
		require.NoError(t, err)
	}
	out, err := run(t, mr, "nil", "has", "ghost")
	require.NoError(t, err)
	assert.Equal(t, "true", out)

	out, err = run(t, mr, "nil", "del", "ghost")
	require.NoError(t, err)
	assert.Equal(t, "true", out)
	assert.False(t, mr.Exists("opsli:nil:ghost"))
}

func TestKeysCommand(t *testing.T) {
	t.Setenv(env.CachePrefix, "")
	mr := miniredis.RunT(t)
	out, err := run(t, mr, "keys", "user:42")
	require.NoError(t, err)
	assert.Contains(t, out, "opsli:timed:user:42")
	assert.Contains(t, out, "opsli:eden:user:42")
	assert.Contains(t, out, "opsli:edenhash:user:42")
	assert.Contains(t, out, "opsli:nil:user:42")
}

func TestUnreachableRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	mr.Close()
	_, err := run(t, mr, "get", "k")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect to redis")
}

func TestInvalidCodec(t *testing.T) {
	mr := miniredis.RunT(t)
	_, err := run(t, mr, "--codec", "xml", "get", "k")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown codec")
}

func TestMalformedBackendFileFallsBack(t *testing.T) {
	t.Setenv(env.CachePrefix, "")
	mr := miniredis.RunT(t)
	dir := t.TempDir()
	backendFile := filepath.Join(dir, "backend.yaml")
	require.NoError(t, os.WriteFile(backendFile, []byte("spaces: [\n"), 0644))
	configFile := filepath.Join(dir, "cache.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("backend_file: "+backendFile+"\n"), 0644))

	_, err := run(t, mr, "--config", configFile, "put", "k", `"v"`)
	require.NoError(t, err)
	ttl := mr.TTL("opsli:timed:k")
	assert.GreaterOrEqual(t, ttl, 25920*time.Second)
	assert.Less(t, ttl, 43200*time.Second)

	missingFile := filepath.Join(dir, "missing.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("backend_file: "+filepath.Join(dir, "nope.yaml")+"\n"), 0644))
	_, err = run(t, mr, "--config", configFile, "put", "k", `"v"`, "--permanent")
	require.NoError(t, err)
	out, err := run(t, mr, "--config", missingFile, "get", "k", "--permanent")
	require.NoError(t, err)
	assert.Equal(t, `"v"`, out)
}

func TestEnvFileConfiguresLogging(t *testing.T) {
	for _, name := range []string{env.LogLevelEnv, env.LogFormat, env.CachePrefix} {
		unsetenv(t, name)
	}
	mr := miniredis.RunT(t)
	envFile := filepath.Join(t.TempDir(), "cache.env")
	require.NoError(t, os.WriteFile(envFile, []byte(env.LogLevelEnv+"=debug\n"+env.LogFormat+"=json\n"), 0644))

	out, err := execute(t, "--redis-url", "redis://"+mr.Addr(), "--env-file", envFile, "nil", "has", "k")
	require.NoError(t, err)
	assert.Contains(t, out, `"severity":"DEBUG"`)
	assert.Contains(t, out, `"message":"connected, prefix opsli:"`)
}

func TestSpansFlushedWhenCommandFails(t *testing.T) {
	unsetenv(t, env.OTLPURL)
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/traces" {
			requests.Add(1)
		}
		io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	mr := miniredis.RunT(t)
	_, err := run(t, mr, "--otlp-url", server.URL, "get", "missing")
	assert.True(t, errors.Is(err, errNotFound))
	assert.Equal(t, int32(1), requests.Load())
}
