package module

import (
	"time"

	"provenance/internal/platform/config"
)

// Options holds configuration settings for the batch module
type Options struct {
	BatchSize int
	MaxDepth  int

	PollBase    time.Duration
	PollCeiling time.Duration

	PrimaryModel   string
	FallbackModel  string
	MaxTokens      int
	FallbackTokens int

	TemplateName    string
	TemplateVersion string
	RegistryVersion string
}

// FromConfig extracts Options from the given config.Conf
func FromConfig(cfg config.Conf) Options {
	bf := cfg.Prefix("CORE_BATCH_")
	return Options{
		BatchSize:       bf.MayInt("SIZE", 100),
		MaxDepth:        bf.MayInt("MAX_DEPTH", 3),
		PollBase:        bf.MayDuration("POLL_BASE", 5*time.Second),
		PollCeiling:     bf.MayDuration("POLL_CEILING", 60*time.Second),
		PrimaryModel:    bf.MayString("MODEL", "classifier-std"),
		FallbackModel:   bf.MayString("FALLBACK_MODEL", "classifier-pro"),
		MaxTokens:       bf.MayInt("MAX_TOKENS", 1024),
		FallbackTokens:  bf.MayInt("FALLBACK_MAX_TOKENS", 4096),
		TemplateName:    bf.MayString("TEMPLATE", "review-classify"),
		TemplateVersion: bf.MayString("TEMPLATE_VERSION", "1.0.0"),
		RegistryVersion: bf.MayString("REGISTRY_VERSION", ""),
	}
}

// merge applies non-zero override fields on top of base
func merge(base, overrides Options) Options {
	if overrides.BatchSize != 0 {
		base.BatchSize = overrides.BatchSize
	}
	if overrides.MaxDepth != 0 {
		base.MaxDepth = overrides.MaxDepth
	}
	if overrides.PollBase != 0 {
		base.PollBase = overrides.PollBase
	}
	if overrides.PollCeiling != 0 {
		base.PollCeiling = overrides.PollCeiling
	}
	if overrides.PrimaryModel != "" {
		base.PrimaryModel = overrides.PrimaryModel
	}
	if overrides.FallbackModel != "" {
		base.FallbackModel = overrides.FallbackModel
	}
	if overrides.MaxTokens != 0 {
		base.MaxTokens = overrides.MaxTokens
	}
	if overrides.FallbackTokens != 0 {
		base.FallbackTokens = overrides.FallbackTokens
	}
	if overrides.TemplateName != "" {
		base.TemplateName = overrides.TemplateName
	}
	if overrides.TemplateVersion != "" {
		base.TemplateVersion = overrides.TemplateVersion
	}
	if overrides.RegistryVersion != "" {
		base.RegistryVersion = overrides.RegistryVersion
	}
	return base
}
