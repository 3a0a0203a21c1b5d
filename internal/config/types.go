package config

import "strings"

// Config is the top-level configuration.
type Config struct {
	App       AppConfig      `toml:"app"`
	Catalog   CatalogConfig  `toml:"catalog"`
	Proposals ProposalConfig `toml:"proposals"`
	Chart     ChartConfig    `toml:"chart"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	HTTPAddr string `toml:"http_addr"`
	LogPath  string `toml:"log_path"`
}

// CatalogConfig points at the strategy template catalog file watched by the
// registry.
type CatalogConfig struct {
	TemplatesPath string `toml:"templates_path"`
}

// ProposalConfig controls the lifecycle of generated proposals and the
// orders staged from them.
type ProposalConfig struct {
	ApprovalTTLMinutes int `toml:"approval_ttl_minutes"`
	MaxReprices        int `toml:"max_reprices"`
}

// ChartConfig controls payoff chart rendering.
type ChartConfig struct {
	Enabled              bool   `toml:"enabled"`
	OutputDir            string `toml:"output_dir"`
	RenderTimeoutSeconds int    `toml:"render_timeout_seconds"`
}

// keySet tracks which field paths were explicitly set in the config files,
// so defaults never clobber an explicit zero.
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

// fieldDefault describes the default rule for one field.
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
