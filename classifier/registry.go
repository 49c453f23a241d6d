package classifier

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// Registry caches constructed Provider clients keyed by a hash of their
// credential, so the hot classification path never constructs a new HTTP
// client per request. The teacher's OpenAI/Gemini adapters built a fresh
// client inside every Chat call (openai.NewClient / genai.NewClient per
// request) — fine for one long-lived bot process, but a leak once many
// tenants each bring their own API key: every turn for every tenant
// allocated and never reused a client (and its connection pool). This
// registry makes client construction happen at most once per distinct
// credential.
type Registry struct {
	mu        sync.Mutex
	providers map[string]Provider
	build     map[string]func(apiKey string) (Provider, error)
}

func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
		build: map[string]func(apiKey string) (Provider, error){
			"openai": func(apiKey string) (Provider, error) { return NewOpenAIProvider(apiKey), nil },
			"gemini": func(apiKey string) (Provider, error) { return NewGeminiProvider(apiKey), nil },
		},
	}
}

// Get returns the cached Provider for (backend, apiKey), constructing it
// under lock on first use.
func (r *Registry) Get(backend, apiKey string) (Provider, error) {
	key := credentialHash(backend, apiKey)

	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.providers[key]; ok {
		return p, nil
	}

	build, ok := r.build[backend]
	if !ok {
		return nil, &unsupportedBackendError{backend: backend}
	}
	p, err := build(apiKey)
	if err != nil {
		return nil, err
	}
	r.providers[key] = p
	return p, nil
}

func credentialHash(backend, apiKey string) string {
	sum := sha256.Sum256([]byte(backend + ":" + apiKey))
	return hex.EncodeToString(sum[:])
}

type unsupportedBackendError struct{ backend string }

func (e *unsupportedBackendError) Error() string {
	return "classifier: unsupported provider backend " + e.backend
}
