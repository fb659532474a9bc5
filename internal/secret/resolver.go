// Package secret looks up credentials either in the environment or in AWS
// SSM Parameter Store.
package secret

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// Backends accepted by NewResolver.
const (
	BackendEnv = "env"
	BackendSSM = "ssm"
)

// SSMClient is the subset of *ssm.Client used here.
type SSMClient interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// Resolver returns the value of a named secret.
type Resolver interface {
	GetSecret(ctx context.Context, name string) (string, error)
}

// NewResolver picks a backend by name. The ssm backend loads the default AWS
// configuration chain (env, shared config, instance role).
func NewResolver(ctx context.Context, backend, envPrefix string) (Resolver, error) {
	switch strings.ToLower(backend) {
	case "", BackendEnv:
		return NewEnvResolver(envPrefix), nil
	case BackendSSM:
		cfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		return NewSSMResolver(ssm.NewFromConfig(cfg)), nil
	}
	return nil, fmt.Errorf("unknown secret backend %q", backend)
}

// SSMResolver reads SecureString parameters.
type SSMResolver struct {
	client SSMClient
}

func NewSSMResolver(client SSMClient) *SSMResolver {
	return &SSMResolver{client: client}
}

func (r *SSMResolver) GetSecret(ctx context.Context, name string) (string, error) {
	out, err := r.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("ssm get parameter %q: %w", name, err)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return "", fmt.Errorf("ssm parameter %q has no value", name)
	}
	return *out.Parameter.Value, nil
}

// EnvResolver maps a parameter path to an environment variable:
// "/dashsync/drive-client-id" with prefix "DASHSYNC_" reads DASHSYNC_DRIVE_CLIENT_ID.
type EnvResolver struct {
	prefix string
}

func NewEnvResolver(prefix string) *EnvResolver {
	return &EnvResolver{prefix: prefix}
}

func (r *EnvResolver) GetSecret(_ context.Context, name string) (string, error) {
	envName := r.prefix + paramNameToEnvVar(name)
	val := os.Getenv(envName)
	if val == "" {
		return "", fmt.Errorf("environment variable %q (from param %q) is not set", envName, name)
	}
	return val, nil
}

func paramNameToEnvVar(name string) string {
	parts := strings.Split(name, "/")
	last := parts[len(parts)-1]
	return strings.ToUpper(strings.ReplaceAll(last, "-", "_"))
}

// ResolveAll fetches every name and reports all failures at once.
func ResolveAll(ctx context.Context, r Resolver, names ...string) (map[string]string, error) {
	out := make(map[string]string, len(names))
	var errs []error
	for _, name := range names {
		v, err := r.GetSecret(ctx, name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out[name] = v
	}
	return out, errors.Join(errs...)
}
