// Package secret resolves signing keys and shared secrets from SSM
// Parameter Store or the environment.
package secret

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// ErrNotSet is returned when no backend holds a value for a name.
var ErrNotSet = errors.New("secret not set")

// SSMClient is the subset of *ssm.Client methods used by SSMResolver.
type SSMClient interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// Resolver retrieves secret values by parameter name.
type Resolver interface {
	GetSecret(ctx context.Context, name string) (string, error)
}

// SSMResolver fetches SecureString parameters from Parameter Store.
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
		return "", fmt.Errorf("ssm parameter %q: %w", name, ErrNotSet)
	}
	return *out.Parameter.Value, nil
}

// EnvResolver reads the environment variable named after the last path
// segment of the parameter: "/markpad/jwt-secret" reads JWT_SECRET.
type EnvResolver struct {
	lookup func(string) (string, bool)
}

func NewEnvResolver() *EnvResolver {
	return &EnvResolver{lookup: os.LookupEnv}
}

func (r *EnvResolver) GetSecret(_ context.Context, name string) (string, error) {
	envName := EnvVar(name)
	val, _ := r.lookup(envName)
	if val == "" {
		return "", fmt.Errorf("environment variable %q (from param %q): %w", envName, name, ErrNotSet)
	}
	return val, nil
}

// EnvVar converts a parameter name to its environment variable name.
func EnvVar(name string) string {
	parts := strings.Split(name, "/")
	last := parts[len(parts)-1]
	return strings.ToUpper(strings.ReplaceAll(last, "-", "_"))
}

// Chain tries each resolver in order and returns the first value found.
type Chain []Resolver

func (c Chain) GetSecret(ctx context.Context, name string) (string, error) {
	var errs []error
	for _, r := range c {
		v, err := r.GetSecret(ctx, name)
		if err == nil {
			return v, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return "", fmt.Errorf("%q: %w", name, ErrNotSet)
	}
	return "", errors.Join(errs...)
}

type cached struct {
	value   string
	fetched time.Time
}

// Cache memoises another resolver for ttl. Lambda containers reuse it
// across invocations so Parameter Store is not hit per request.
type Cache struct {
	next Resolver
	ttl  time.Duration
	now  func() time.Time

	mu      sync.Mutex
	entries map[string]cached
}

func NewCache(next Resolver, ttl time.Duration) *Cache {
	return &Cache{next: next, ttl: ttl, now: time.Now, entries: make(map[string]cached)}
}

func (c *Cache) GetSecret(ctx context.Context, name string) (string, error) {
	c.mu.Lock()
	e, ok := c.entries[name]
	c.mu.Unlock()
	if ok && c.now().Sub(e.fetched) < c.ttl {
		return e.value, nil
	}

	v, err := c.next.GetSecret(ctx, name)
	if err != nil {
		return "", err
	}
	c.mu.Lock()
	c.entries[name] = cached{value: v, fetched: c.now()}
	c.mu.Unlock()
	return v, nil
}
