package config

const (
	defaultConfigPath                = "~/.config/stoneware/config.toml"
	defaultDataDir                   = "~/.local/share/stoneware"
	defaultLogDir                    = "~/.local/share/stoneware/logs"
	defaultCatalogBaseURL            = "https://www.googleapis.com/books/v1"
	defaultCatalogMaxResults         = 12
	defaultCatalogTimeoutSeconds     = 10
	defaultCommunityBaseURL          = "https://openlibrary.org"
	defaultCommunityUserAgent        = "stoneware/dev (reading list)"
	defaultCommunityRequestsPerSec   = 3
	defaultCommunityMaxRetries       = 2
	defaultCommunityTimeoutSeconds   = 10
	defaultSummaryTimeoutSeconds     = 20
	defaultLLMBaseURL                = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel                  = "google/gemini-2.5-flash"
	defaultLLMReferer                = "https://github.com/stoneware/stoneware"
	defaultLLMTitle                  = "Stoneware Literature"
	defaultLLMTimeoutSeconds         = 30
	defaultGeminiModel               = "gemini-2.5-flash"
	defaultSynopsisMinLength         = 80
	defaultSynopsisCommunityMinLen   = 100
	defaultSynopsisMaxLength         = 900
	defaultSynopsisHintLength        = 600
	defaultSynopsisWaitMillis        = 2500
	defaultSynopsisDeadlineSeconds   = 30
	defaultLogFormat                 = "console"
	defaultLogLevel                  = "info"
	SummaryBackendProxy              = "proxy"
	SummaryBackendLLM                = "llm"
	SummaryBackendGemini             = "gemini"
	SummaryBackendNone               = "none"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Catalog: Catalog{
			BaseURL:        defaultCatalogBaseURL,
			MaxResults:     defaultCatalogMaxResults,
			TimeoutSeconds: defaultCatalogTimeoutSeconds,
		},
		Community: Community{
			BaseURL:           defaultCommunityBaseURL,
			UserAgent:         defaultCommunityUserAgent,
			RequestsPerSecond: defaultCommunityRequestsPerSec,
			MaxRetries:        defaultCommunityMaxRetries,
			TimeoutSeconds:    defaultCommunityTimeoutSeconds,
		},
		Summary: Summary{
			Backend:        SummaryBackendProxy,
			TimeoutSeconds: defaultSummaryTimeoutSeconds,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Gemini: Gemini{
			Model: defaultGeminiModel,
		},
		Synopsis: Synopsis{
			MinLength:          defaultSynopsisMinLength,
			CommunityMinLength: defaultSynopsisCommunityMinLen,
			MaxLength:          defaultSynopsisMaxLength,
			HintLength:         defaultSynopsisHintLength,
			WaitMillis:         defaultSynopsisWaitMillis,
			DeadlineSeconds:    defaultSynopsisDeadlineSeconds,
		},
		Rating: Rating{
			AutoFile: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
