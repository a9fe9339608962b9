// Package summary produces short, spoiler-safe book summaries for the
// synopsis fallback chain.
//
// Three backends implement Summarizer: Proxy calls a summary service that
// speaks {title, authors, descriptionHint} -> {summary, cached}; LLM calls
// an OpenRouter-compatible chat endpoint; Gemini calls Google's Gemini API.
// New picks one from configuration and wraps it with Cached so generated
// text is reused across restarts under the summary_cache key.
package summary
