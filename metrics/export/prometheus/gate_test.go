package prometheus

import (
	"context"
	"testing"

	adminGate "github.com/MrEthical07/adminGate"
	"github.com/MrEthical07/adminGate/session"
	"github.com/MrEthical07/adminGate/store/memstore"
)

type nopVerifier struct{}

func (nopVerifier) VerifyCredentials(context.Context, string, string) (*adminGate.CredentialResult, error) {
	return nil, adminGate.ErrServiceRejected
}

func (nopVerifier) VerifyCode(context.Context, string, string, string) (*session.Payload, error) {
	return nil, adminGate.ErrServiceRejected
}

func newTestGate(t *testing.T) *adminGate.Gate {
	t.Helper()
	g, err := adminGate.New().
		WithStore(memstore.New()).
		WithVerifier(nopVerifier{}).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(g.Close)
	return g
}
