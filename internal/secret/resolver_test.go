package secret

import (
	"context"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSSMClient struct {
	params    map[string]string
	decrypted bool
}

func (f *fakeSSMClient) GetParameter(_ context.Context, input *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.decrypted = aws.ToBool(input.WithDecryption)
	val, ok := f.params[*input.Name]
	if !ok {
		return nil, fmt.Errorf("parameter not found: %s", *input.Name)
	}
	return &ssm.GetParameterOutput{
		Parameter: &ssmtypes.Parameter{Name: input.Name, Value: aws.String(val)},
	}, nil
}

func TestSSMResolver(t *testing.T) {
	client := &fakeSSMClient{params: map[string]string{"/dashsync/drive-refresh-token": "rt"}}
	r := NewSSMResolver(client)

	val, err := r.GetSecret(context.Background(), "/dashsync/drive-refresh-token")
	require.NoError(t, err)
	assert.Equal(t, "rt", val)
	assert.True(t, client.decrypted)

	_, err = r.GetSecret(context.Background(), "/dashsync/missing")
	assert.Error(t, err)
}

func TestEnvResolver(t *testing.T) {
	t.Setenv("DASHSYNC_DRIVE_CLIENT_ID", "client")
	r := NewEnvResolver("DASHSYNC_")

	val, err := r.GetSecret(context.Background(), "/dashsync/drive-client-id")
	require.NoError(t, err)
	assert.Equal(t, "client", val)

	_, err = r.GetSecret(context.Background(), "/dashsync/drive-unset")
	assert.ErrorContains(t, err, "DASHSYNC_DRIVE_UNSET")
}

func TestParamNameToEnvVar(t *testing.T) {
	tests := map[string]string{
		"/dashsync/drive-client-id":     "DRIVE_CLIENT_ID",
		"/dashsync/drive-client-secret": "DRIVE_CLIENT_SECRET",
		"plain":                         "PLAIN",
	}
	for in, want := range tests {
		assert.Equal(t, want, paramNameToEnvVar(in), in)
	}
}

func TestResolveAllCollectsErrors(t *testing.T) {
	r := NewSSMResolver(&fakeSSMClient{params: map[string]string{"/a": "1"}})

	got, err := ResolveAll(context.Background(), r, "/a", "/b", "/c")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/b")
	assert.Contains(t, err.Error(), "/c")
	assert.Equal(t, map[string]string{"/a": "1"}, got)
}

func TestNewResolverRejectsUnknownBackend(t *testing.T) {
	_, err := NewResolver(context.Background(), "vault", "")
	assert.Error(t, err)

	r, err := NewResolver(context.Background(), "", "X_")
	require.NoError(t, err)
	assert.IsType(t, &EnvResolver{}, r)
}
