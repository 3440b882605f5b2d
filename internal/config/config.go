// Package config holds the proxy's configuration. Everything the
// Java original split across AppSettings, LanguageConfig, and
// SmbConfig lives in a single Settings struct here: one JSON document
// on disk, one atomic writer, one validation pass.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/larkspur-labs/subproxy/pkg/log"
	"golang.org/x/text/language"
)

// Settings is the complete, unified configuration object for the
// proxy: catalog credentials, the LLM provider, local/SMB browse
// roots, and the cache directory.
type Settings struct {
	Catalog   CatalogConfig   `json:"catalog"`
	LLM       LLMConfig       `json:"llm"`
	Translate TranslateConfig `json:"translate"`
	VFS       VFSConfig       `json:"vfs"`
	CacheDir  string          `json:"cache_dir"`
	HTTP      HTTPConfig      `json:"http"`
}

// HTTPConfig configures the adapter's listener and the optional
// bundled dashboard UI.
type HTTPConfig struct {
	Addr        string `json:"addr"`
	UIEnabled   bool   `json:"ui_enabled"`
	UIStaticDir string `json:"ui_static_dir"`
}

// CatalogConfig holds credentials for the upstream subtitle catalog
// (an OpenSubtitles-compatible API) that the proxy fronts.
type CatalogConfig struct {
	BaseURL  string `json:"base_url"`
	APIKey   string `json:"api_key"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// LLMConfig configures the translation provider. Compatible with any
// OpenAI-style chat completions endpoint.
type LLMConfig struct {
	APIKey      string  `json:"api_key"`
	APIURL      string  `json:"api_url"`
	Model       string  `json:"model"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
	TimeoutSecs int     `json:"timeout_secs"`
}

// TranslateConfig carries the default target language, the cron
// expression used to periodically refresh the catalog session, and
// the engine knobs an operator can override instead of relying on the
// provider-based auto-tune.
type TranslateConfig struct {
	TargetLanguage  language.Tag `json:"target_language"`
	ReloginCronExpr string       `json:"relogin_cron_expr"`

	// SkipHearingImpaired drops cues whose every non-empty line is a
	// bracketed hearing-impaired annotation (e.g. "[door creaks]")
	// before they are sent for translation.
	SkipHearingImpaired bool `json:"skip_hearing_impaired"`

	// BatchSize overrides the engine's provider-based auto-tuned batch
	// size when positive. Zero means "use the auto-tuned default".
	BatchSize int `json:"translation_batch_size"`
}

// VFSConfig lists local filesystem roots and optional SMB shares that
// the batch orchestrator and file browser may walk.
type VFSConfig struct {
	LocalRoots []string    `json:"local_roots"`
	SMB        []SMBConfig `json:"smb"`
}

// SMBConfig names one SMB share to mount into the virtual file tree.
type SMBConfig struct {
	Host     string `json:"host"`
	Share    string `json:"share"`
	Username string `json:"username"`
	Password string `json:"password"`
	MountAs  string `json:"mount_as"`
}

// Option configures a Settings value produced by NewFromEnv.
type Option func(*Settings)

// NewFromEnv builds Settings from environment variables with sensible
// defaults, then applies opts.
func NewFromEnv(opts ...Option) (*Settings, error) {
	s := &Settings{
		Catalog: CatalogConfig{
			BaseURL:  getEnvString("CATALOG_BASE_URL", "https://api.opensubtitles.com/api/v1"),
			APIKey:   getEnvString("CATALOG_API_KEY", ""),
			Username: getEnvString("CATALOG_USERNAME", ""),
			Password: getEnvString("CATALOG_PASSWORD", ""),
		},
		LLM: LLMConfig{
			APIKey:      getEnvString("LLM_API_KEY", ""),
			APIURL:      getEnvString("LLM_API_URL", "https://openrouter.ai/api/v1"),
			Model:       getEnvString("LLM_MODEL", "openai/gpt-4o-mini"),
			MaxTokens:   getEnvInt("LLM_MAX_TOKENS", 8000),
			Temperature: getEnvFloat("LLM_TEMPERATURE", 0.3),
			TimeoutSecs: getEnvInt("LLM_TIMEOUT", 60),
		},
		Translate: TranslateConfig{
			TargetLanguage:      language.Spanish,
			ReloginCronExpr:     getEnvString("CATALOG_RELOGIN_CRON", "@every 20m"),
			SkipHearingImpaired: getEnvString("SKIP_HEARING_IMPAIRED", "false") == "true",
			BatchSize:           getEnvInt("TRANSLATION_BATCH_SIZE", 0),
		},
		VFS: VFSConfig{
			LocalRoots: []string{getEnvString("MEDIA_DIR", "/media")},
		},
		CacheDir: getEnvString("CACHE_DIR", defaultCacheDir()),
		HTTP: HTTPConfig{
			Addr:        getEnvString("HTTP_ADDR", ":8080"),
			UIEnabled:   getEnvString("UI_ENABLED", "true") != "false",
			UIStaticDir: getEnvString("UI_STATIC_DIR", "/app/web"),
		},
	}

	if tag := getEnvString("TARGET_LANGUAGE", ""); tag != "" {
		if parsed, err := language.Parse(tag); err == nil {
			s.Translate.TargetLanguage = parsed
		}
	}

	for _, opt := range opts {
		opt(s)
	}

	log.Info("config loaded: catalog=%s llm_model=%s cache_dir=%s", s.Catalog.BaseURL, s.LLM.Model, s.CacheDir)

	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) validate() error {
	if s.LLM.APIKey == "" {
		return fmt.Errorf("LLM_API_KEY is required")
	}
	if s.CacheDir == "" {
		return fmt.Errorf("cache dir is required")
	}
	return nil
}

func defaultCacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".subtitle-cache"
	}
	return home + "/.subtitle-cache"
}

func getEnvString(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
