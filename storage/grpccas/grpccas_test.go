package grpccas

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/rcf/rcf"
	"xdao.co/rcf/storage"
	"xdao.co/rcf/storage/localfs"
	"xdao.co/rcf/storage/memcas"
	"xdao.co/rcf/storage/testkit"
)

func serve(t *testing.T, srv *Server, opts ...grpc.ServerOption) *Client {
	t.Helper()
	lis := bufconn.Listen(1024 * 1024)
	gs := grpc.NewServer(opts...)
	RegisterCASServer(gs, srv)
	go func() {
		_ = gs.Serve(lis)
	}()
	t.Cleanup(gs.Stop)

	dialer := func(ctx context.Context, s string) (net.Conn, error) { return lis.Dial() }
	cc, err := grpc.NewClient(
		"passthrough:///bufnet",
		grpc.WithContextDialer(dialer),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cc.Close() })

	client, err := NewClient(cc, srv.Hash)
	require.NoError(t, err)
	client.Timeout = 2 * time.Second
	return client
}

func TestGRPCCAS_Conformance(t *testing.T) {
	testkit.RunCASConformance(t, func(t *testing.T, hash uint64) storage.CAS {
		t.Helper()
		cas, err := memcas.New(hash)
		require.NoError(t, err)
		return serve(t, &Server{CAS: cas, Hash: hash})
	})
}

func TestGRPCCAS_LocalFS_RoundTrip(t *testing.T) {
	cas, err := localfs.New(t.TempDir(), 0)
	require.NoError(t, err)
	client := serve(t, &Server{CAS: cas})

	payload := []byte(testkit.Sample)
	id, err := client.Put(payload)
	require.NoError(t, err)
	assert.True(t, id.Defined())
	assert.True(t, client.Has(id))

	got, err := client.Get(id)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestGRPCCAS_RequireCanonical(t *testing.T) {
	cas, err := memcas.New(0)
	require.NoError(t, err)
	client := serve(t, &Server{CAS: cas, RequireCanonical: true})

	_, err = client.Put([]byte(testkit.Sample))
	require.NoError(t, err)

	_, err = client.Put([]byte(`{"type": "int"}`))
	assert.ErrorIs(t, err, storage.ErrNotCanonical)
	assert.Contains(t, err.Error(), "RCF-CANON-001")

	_, err = client.Put([]byte(`not json`))
	assert.ErrorIs(t, err, storage.ErrNotCanonical)
	assert.Equal(t, 1, cas.Len())
}

func TestGRPCCAS_RequireCanonical_HonorsOptions(t *testing.T) {
	cas, err := memcas.New(0)
	require.NoError(t, err)
	withParams := []byte(`{"name":"d","type":"fixed","size":8,"logicalType":"decimal","precision":10,"scale":0}`)

	c := rcf.Canonicalizer{Options: rcf.Options{FixedDecimalParameters: true}}
	client := serve(t, &Server{CAS: cas, RequireCanonical: true, Canonicalizer: c})
	_, err = client.Put(withParams)
	require.NoError(t, err)

	strict := serve(t, &Server{CAS: cas, RequireCanonical: true})
	_, err = strict.Put(withParams)
	assert.ErrorIs(t, err, storage.ErrNotCanonical)
}

func TestGRPCCAS_NotFound(t *testing.T) {
	cas, err := memcas.New(0)
	require.NoError(t, err)
	client := serve(t, &Server{CAS: cas})

	id, err := storage.Key([]byte(`"null"`), storage.DefaultHash)
	require.NoError(t, err)
	_, err = client.Get(id)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestGRPCCAS_Metrics(t *testing.T) {
	cas, err := memcas.New(0)
	require.NoError(t, err)
	m := NewMetrics(prometheus.NewRegistry())
	client := serve(t, &Server{CAS: cas, RequireCanonical: true, Metrics: m}, grpc.ChainUnaryInterceptor(m.Interceptor()))

	_, err = client.Put([]byte(testkit.Sample))
	require.NoError(t, err)
	_, err = client.Put([]byte(`{"type": "int"}`))
	require.Error(t, err)

	put := "/xdao.rcf.storage.grpccas.v1.CAS/Put"
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues(put, "OK")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues(put, "InvalidArgument")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Rejected))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.RequestsInFlight))
}

func TestGRPCCAS_NilMetricsInterceptor(t *testing.T) {
	cas, err := memcas.New(0)
	require.NoError(t, err)
	var m *Metrics
	client := serve(t, &Server{CAS: cas, Metrics: m}, grpc.ChainUnaryInterceptor(m.Interceptor()))
	_, err = client.Put([]byte(testkit.Sample))
	require.NoError(t, err)
}

func TestLoggingInterceptor_RequestID(t *testing.T) {
	cas, err := memcas.New(0)
	require.NoError(t, err)
	var buf bytes.Buffer
	log := zerolog.New(&buf)
	client := serve(t, &Server{CAS: cas}, grpc.ChainUnaryInterceptor(LoggingInterceptor(log)))

	ctx := metadata.AppendToOutgoingContext(context.Background(), RequestIDHeader, "req-42")
	var header metadata.MD
	_, err = NewCASClient(client.cc).Put(ctx, wrapperspb.Bytes([]byte(testkit.Sample)), grpc.Header(&header))
	require.NoError(t, err)
	assert.Equal(t, []string{"req-42"}, header.Get(RequestIDHeader))
	assert.Contains(t, buf.String(), `"request_id":"req-42"`)
	assert.Contains(t, buf.String(), `"code":"OK"`)

	header = nil
	_, err = NewCASClient(client.cc).Put(context.Background(), wrapperspb.Bytes([]byte(testkit.Sample)), grpc.Header(&header))
	require.NoError(t, err)
	require.Len(t, header.Get(RequestIDHeader), 1)
	assert.Len(t, header.Get(RequestIDHeader)[0], 36)
}
