package grpc_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"

	"github.com/bibbank/fraudledger/internal/domain/valueobject"
	fraudgrpc "github.com/bibbank/fraudledger/internal/presentation/grpc"
	"github.com/bibbank/fraudledger/pkg/tlsutil"
)

func TestNewServer_ServesTLSWhenCertificateConfigured(t *testing.T) {
	certs, err := tlsutil.WriteDevCertificates(t.TempDir(), "localhost")
	require.NoError(t, err)

	lis := serve(t, newHandler(t), fraudgrpc.ServerOptions{
		TLSCertFile: certs.CertFile,
		TLSKeyFile:  certs.KeyFile,
	})

	creds, err := tlsutil.ClientCredentials(certs.CAFile, "localhost")
	require.NoError(t, err)
	c := &client{conn: dial(t, lis, creds)}

	resp, err := healthpb.NewHealthClient(c.conn).Check(context.Background(),
		&healthpb.HealthCheckRequest{Service: fraudgrpc.HealthServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())

	var processed fraudgrpc.ProcessTransactionResponse
	require.NoError(t, c.call(t, "ProcessTransaction", &fraudgrpc.ProcessTransactionRequest{Transaction: txMsg("TX-TLS", "12.00")}, &processed))
	assert.Equal(t, valueobject.StatusApproved.String(), processed.Result.Status)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	plain := dial(t, lis, insecure.NewCredentials())
	_, err = healthpb.NewHealthClient(plain).Check(ctx, &healthpb.HealthCheckRequest{Service: fraudgrpc.HealthServiceName})
	assert.Error(t, err, "a plaintext client must not reach a TLS listener")
}

func TestNewServer_RejectsUnreadableKeyPair(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		opts fraudgrpc.ServerOptions
	}{
		{
			name: "missing files",
			opts: fraudgrpc.ServerOptions{
				TLSCertFile: filepath.Join(dir, "server.pem"),
				TLSKeyFile:  filepath.Join(dir, "server-key.pem"),
			},
		},
		{
			name: "key without certificate",
			opts: fraudgrpc.ServerOptions{TLSKeyFile: filepath.Join(dir, "server-key.pem")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, err := fraudgrpc.NewServer(newHandler(t), tt.opts, testLogger())
			require.Error(t, err)
			assert.Nil(t, srv)
			assert.Contains(t, err.Error(), "gRPC TLS")
		})
	}
}

func TestServiceDesc_WithoutInterceptors(t *testing.T) {
	lis := bufconn.Listen(1 << 20)
	srv := grpclib.NewServer()
	fraudgrpc.RegisterFraudLedgerServiceServer(srv, newHandler(t))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	c := &client{conn: dial(t, lis, insecure.NewCredentials())}

	var resp fraudgrpc.ProcessTransactionResponse
	require.NoError(t, c.call(t, "ProcessTransaction", &fraudgrpc.ProcessTransactionRequest{Transaction: txMsg("TX-BARE", "8.00")}, &resp))
	require.NotNil(t, resp.Result)
	assert.Equal(t, "TX-BARE", resp.Result.TransactionID)
}
