// Package ai provides abstractions for the embedding provider used by the
// migration engine and the similarity search service.
//
// The package defines the Embedder interface, the provider error taxonomy
// (transient vs rate-limited vs terminal), and the client configuration.
// Business logic depends on these abstractions rather than on a concrete
// provider.
//
// Implementation packages:
//
//   - ai/openai: production client for OpenAI-compatible embedding APIs with
//     input truncation, retry/backoff and token accounting
//   - ai/mock: deterministic test doubles for unit testing without an
//     external service
package ai
