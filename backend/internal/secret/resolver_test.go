package secret

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

type fakeSSMClient struct {
	params map[string]string
	calls  int
}

func (f *fakeSSMClient) GetParameter(_ context.Context, input *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.calls++
	val, ok := f.params[*input.Name]
	if !ok {
		return nil, fmt.Errorf("parameter not found: %s", *input.Name)
	}
	return &ssm.GetParameterOutput{
		Parameter: &ssmtypes.Parameter{
			Name:  input.Name,
			Value: aws.String(val),
		},
	}, nil
}

func TestSSMResolver_GetSecret(t *testing.T) {
	client := &fakeSSMClient{
		params: map[string]string{
			"/markpad/jwt-secret": "super-secret-value",
		},
	}
	resolver := NewSSMResolver(client)

	val, err := resolver.GetSecret(context.Background(), "/markpad/jwt-secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "super-secret-value" {
		t.Fatalf("expected %q, got %q", "super-secret-value", val)
	}

	if _, err := resolver.GetSecret(context.Background(), "/markpad/nonexistent"); err == nil {
		t.Fatal("expected error for missing parameter, got nil")
	}
}

func TestEnvResolver_GetSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "env-secret-value")
	resolver := NewEnvResolver()

	val, err := resolver.GetSecret(context.Background(), "/markpad/jwt-secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "env-secret-value" {
		t.Fatalf("expected %q, got %q", "env-secret-value", val)
	}

	_, err = resolver.GetSecret(context.Background(), "/markpad/nonexistent-secret")
	if !errors.Is(err, ErrNotSet) {
		t.Fatalf("expected ErrNotSet, got %v", err)
	}
}

func TestEnvVar(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"/markpad/jwt-secret", "JWT_SECRET"},
		{"/markpad/prod/api-gateway-secret", "API_GATEWAY_SECRET"},
		{"redis-password", "REDIS_PASSWORD"},
	}

	for _, tc := range tests {
		got := EnvVar(tc.input)
		if got != tc.expected {
			t.Errorf("EnvVar(%q) = %q, want %q", tc.input, got, tc.expected)
		}
	}
}

func TestChain(t *testing.T) {
	t.Setenv("JWT_SECRET", "from-env")
	ssmClient := &fakeSSMClient{params: map[string]string{"/markpad/api-gateway-secret": "from-ssm"}}
	chain := Chain{NewSSMResolver(ssmClient), NewEnvResolver()}
	ctx := context.Background()

	if v, err := chain.GetSecret(ctx, "/markpad/api-gateway-secret"); err != nil || v != "from-ssm" {
		t.Errorf("got %q, %v; want from-ssm", v, err)
	}
	if v, err := chain.GetSecret(ctx, "/markpad/jwt-secret"); err != nil || v != "from-env" {
		t.Errorf("got %q, %v; want from-env", v, err)
	}
	if _, err := chain.GetSecret(ctx, "/markpad/missing"); !errors.Is(err, ErrNotSet) {
		t.Errorf("expected ErrNotSet in the joined error, got %v", err)
	}
	if _, err := (Chain{}).GetSecret(ctx, "x"); !errors.Is(err, ErrNotSet) {
		t.Errorf("expected ErrNotSet from an empty chain, got %v", err)
	}
}

func TestCache(t *testing.T) {
	client := &fakeSSMClient{params: map[string]string{"/markpad/jwt-secret": "v1"}}
	c := NewCache(NewSSMResolver(client), time.Minute)
	now := time.Now()
	c.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if v, err := c.GetSecret(ctx, "/markpad/jwt-secret"); err != nil || v != "v1" {
			t.Fatalf("got %q, %v", v, err)
		}
	}
	if client.calls != 1 {
		t.Errorf("expected 1 SSM call, got %d", client.calls)
	}

	client.params["/markpad/jwt-secret"] = "v2"
	now = now.Add(2 * time.Minute)
	if v, _ := c.GetSecret(ctx, "/markpad/jwt-secret"); v != "v2" {
		t.Errorf("expected refreshed value v2, got %q", v)
	}

	if _, err := c.GetSecret(ctx, "/markpad/missing"); err == nil {
		t.Error("expected error for missing parameter")
	}
}
