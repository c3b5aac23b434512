package adapter

import (
	"sjsage522/metaworker/config"
)

// SiteConfigs returns the configuration of every named source, in listing order
func SiteConfigs(cfg *config.Config) []SiteConfig {
	return []SiteConfig{
		javbusConfig(cfg.JavbusURL),
		javdbConfig(cfg.JavdbURL),
		javlibraryConfig(cfg.JavlibraryURL),
		jableConfig(cfg.JableURL),
		missavConfig(cfg.MissavURL),
		sukebeiConfig(cfg.SukebeiURL),
		btsowConfig(cfg.BtsowURL),
	}
}

// Constructors maps each named source to a constructor for its adapter
func Constructors(cfg *config.Config) map[string]Constructor {
	out := make(map[string]Constructor)
	for _, sc := range SiteConfigs(cfg) {
		sc := sc
		out[sc.SourceID] = func() (SiteAdapter, error) {
			return NewConfigurableAdapter(sc)
		}
	}
	return out
}

// HostRules derives the source detection table from the site configs
func HostRules(cfg *config.Config) []HostRule {
	var rules []HostRule
	for _, sc := range SiteConfigs(cfg) {
		rules = append(rules, HostRule{
			SourceID: sc.SourceID,
			BaseURL:  sc.BaseURL,
			Keywords: sc.HostKeywords,
		})
	}
	return rules
}

// NewRegistryFromConfig builds the registry for all configured sources
func NewRegistryFromConfig(cfg *config.Config) (*Registry, error) {
	maxAnchors := cfg.GenericMaxAnchors
	return NewRegistry(RegistryOptions{
		Constructors: Constructors(cfg),
		Order:        []string{"javbus", "javdb", "javlibrary", "jable", "missav", "sukebei", "btsow"},
		Generic: func() (SiteAdapter, error) {
			return NewGenericAdapter(maxAnchors)
		},
		Hosts: HostRules(cfg),
	})
}
