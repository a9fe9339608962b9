// Package config loads, normalizes, and validates stoneware configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// GOOGLE_BOOKS_API_KEY, SUMMARY_PROXY_URL, OPENROUTER_API_KEY and
// GEMINI_API_KEY. A missing configuration file is not an error: every field
// has a usable default, and summary backends without credentials degrade to
// "none" instead of failing validation.
package config
