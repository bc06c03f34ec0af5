package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// Provider abstracts the secret store. The production implementation is
// AWS SSM Parameter Store; EnvProvider exists for local development and
// tests so nothing here requires cloud credentials.
type Provider interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// SSMProvider resolves parameters from AWS SSM with decryption enabled.
type SSMProvider struct {
	client *ssm.Client
}

// NewSSMProvider builds an SSM-backed Provider using the default AWS
// credential chain (env, shared config, instance role).
func NewSSMProvider(ctx context.Context) (*SSMProvider, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &SSMProvider{client: ssm.NewFromConfig(cfg)}, nil
}

func (p *SSMProvider) GetParameter(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", errors.New("parameter name is empty")
	}

	out, err := p.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("ssm get parameter: %w", err)
	}
	if out.Parameter == nil || out.Parameter.Value == nil || *out.Parameter.Value == "" {
		return "", errors.New("no value found in ssm parameter")
	}

	return *out.Parameter.Value, nil
}

// EnvProvider resolves a "parameter" as an environment variable of the
// same name.
type EnvProvider struct{}

func (EnvProvider) GetParameter(_ context.Context, name string) (string, error) {
	if name == "" {
		return "", errors.New("parameter name is empty")
	}
	v := os.Getenv(name)
	if v == "" {
		return "", fmt.Errorf("environment variable %s is empty", name)
	}
	return v, nil
}

// FromName returns the Provider matching a config secret_provider value.
func FromName(ctx context.Context, name string) (Provider, error) {
	switch name {
	case "env":
		return EnvProvider{}, nil
	case "ssm", "":
		return NewSSMProvider(ctx)
	default:
		return nil, fmt.Errorf("unknown secret provider %q", name)
	}
}
