// Package llm provides a small OpenAI-compatible chat completion client
// (OpenRouter by default) used to generate book summaries.
//
// CompleteJSON sends a system and user prompt with JSON response mode and
// returns the raw content; DecodeLLMJSON tolerates code fences and stray
// prose around the payload.
//
// Requests are retried on HTTP 408, 429 and 5xx, on network timeouts and
// on empty completions, with exponential backoff capped at the configured
// maximum. Retry-After is honored. Context cancellation stops retries.
package llm
