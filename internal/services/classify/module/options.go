package module

import "provenance/internal/platform/config"

// Options holds configuration settings for the classify module
type Options struct {
	RegistryVersion string
	Workers         int
	PageSize        int
	DryRun          bool
}

// FromConfig extracts Options from the given config.Conf
func FromConfig(cfg config.Conf) Options {
	cf := cfg.Prefix("CORE_CLASSIFY_")
	return Options{
		RegistryVersion: cf.MayString("REGISTRY_VERSION", ""),
		Workers:         cf.MayInt("WORKERS", 2),
		PageSize:        cf.MayInt("PAGE_SIZE", 500),
		DryRun:          cf.MayBool("DRY_RUN", false),
	}
}
