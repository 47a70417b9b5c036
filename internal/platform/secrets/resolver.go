// Package secrets resolves secret:// references through Google Secret Manager
// so gateway credentials never have to live in plain environment variables.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const referencePrefix = "secret://"

// ErrSecretNotFound indicates the referenced secret or version does not exist.
var ErrSecretNotFound = errors.New("secrets: secret not found")

type secretManagerClient interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
	Close() error
}

// Resolver expands secret:// references into secret payloads. Plain values
// pass through untouched, so configuration may mix literals and references.
type Resolver struct {
	client         secretManagerClient
	ownsClient     bool
	clientOpts     []option.ClientOption
	defaultProject string
	logger         *zap.Logger

	mu    sync.RWMutex
	cache map[string]string
}

// Option customises Resolver construction.
type Option func(*Resolver)

// WithLogger sets the logger used for diagnostic output.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithClient injects an existing Secret Manager client, primarily for tests.
// The Resolver does not close injected clients.
func WithClient(client secretManagerClient) Option {
	return func(r *Resolver) {
		if client != nil {
			r.client = client
			r.ownsClient = false
		}
	}
}

// WithClientOptions appends client options applied when the Resolver creates
// its own Secret Manager client.
func WithClientOptions(opts ...option.ClientOption) Option {
	return func(r *Resolver) {
		r.clientOpts = append(r.clientOpts, opts...)
	}
}

// NewResolver constructs a Resolver. Short references without an explicit
// project resolve against defaultProject.
func NewResolver(ctx context.Context, defaultProject string, opts ...Option) (*Resolver, error) {
	resolver := &Resolver{
		defaultProject: strings.TrimSpace(defaultProject),
		logger:         zap.NewNop(),
		cache:          make(map[string]string),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(resolver)
		}
	}

	if resolver.client == nil {
		client, err := secretmanager.NewClient(ctx, resolver.clientOpts...)
		if err != nil {
			return nil, fmt.Errorf("secrets: create secret manager client: %w", err)
		}
		resolver.client = client
		resolver.ownsClient = true
	}
	return resolver, nil
}

// IsReference reports whether the value is a secret:// reference.
func IsReference(value string) bool {
	return strings.HasPrefix(strings.TrimSpace(value), referencePrefix)
}

// Resolve returns the secret payload for a secret:// reference, or the value
// unchanged when it is not a reference. Resolved payloads are cached for the
// lifetime of the Resolver.
func (r *Resolver) Resolve(ctx context.Context, value string) (string, error) {
	if r == nil {
		return "", errors.New("secrets: resolver not initialised")
	}
	if !IsReference(value) {
		return value, nil
	}

	name, err := r.canonicalName(value)
	if err != nil {
		return "", err
	}

	r.mu.RLock()
	cached, ok := r.cache[name]
	r.mu.RUnlock()
	if ok {
		return cached, nil
	}

	resp, err := r.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return "", fmt.Errorf("%w: %s", ErrSecretNotFound, name)
		}
		return "", fmt.Errorf("secrets: access %s: %w", name, err)
	}
	payload := string(resp.GetPayload().GetData())

	r.mu.Lock()
	r.cache[name] = payload
	r.mu.Unlock()

	r.logger.Debug("resolved secret reference", zap.String("name", name))
	return payload, nil
}

// canonicalName expands a reference to a fully qualified version resource.
// Accepted forms:
//
//	secret://my-secret
//	secret://my-secret@5
//	secret://projects/my-project/secrets/my-secret/versions/latest
func (r *Resolver) canonicalName(value string) (string, error) {
	ref := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(value), referencePrefix))
	if ref == "" {
		return "", errors.New("secrets: empty secret reference")
	}

	if strings.HasPrefix(ref, "projects/") {
		if !strings.Contains(ref, "/versions/") {
			ref += "/versions/latest"
		}
		return ref, nil
	}

	if r.defaultProject == "" {
		return "", fmt.Errorf("secrets: reference %q needs a default project", value)
	}

	name := ref
	version := "latest"
	if at := strings.LastIndex(ref, "@"); at > 0 {
		name = ref[:at]
		version = ref[at+1:]
	}
	if name == "" || version == "" {
		return "", fmt.Errorf("secrets: malformed secret reference %q", value)
	}
	return fmt.Sprintf("projects/%s/secrets/%s/versions/%s", r.defaultProject, name, version), nil
}

// Close releases the underlying client when the Resolver created it.
func (r *Resolver) Close() error {
	if r == nil || r.client == nil || !r.ownsClient {
		return nil
	}
	return r.client.Close()
}
