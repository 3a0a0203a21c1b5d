package config

const (
	defaultAppEnv            = "dev"
	defaultAppLogLevel       = "info"
	defaultAppHTTPAddr       = ":8880"
	defaultAppLogPath        = "logs/legwork.log"
	defaultTemplatesPath     = "configs/templates.yaml"
	defaultApprovalTTLMin    = 60
	defaultMaxReprices       = 3
	defaultChartOutputDir    = "data/charts"
	defaultChartRenderSecond = 30
)

func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Catalog.applyDefaults(keys)
	c.Proposals.applyDefaults(keys)
	c.Chart.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
		stringFieldDefault("app.log_path", &a.LogPath, defaultAppLogPath),
	)
}

func (c *CatalogConfig) applyDefaults(keys keySet) {
	if c == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("catalog.templates_path", &c.TemplatesPath, defaultTemplatesPath),
	)
}

func (p *ProposalConfig) applyDefaults(keys keySet) {
	if p == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "proposals.approval_ttl_minutes",
			need:  func() bool { return p.ApprovalTTLMinutes <= 0 },
			apply: func() { p.ApprovalTTLMinutes = defaultApprovalTTLMin },
		},
		fieldDefault{
			key:   "proposals.max_reprices",
			need:  func() bool { return p.MaxReprices <= 0 },
			apply: func() { p.MaxReprices = defaultMaxReprices },
		},
	)
}

func (c *ChartConfig) applyDefaults(keys keySet) {
	if c == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("chart.output_dir", &c.OutputDir, defaultChartOutputDir),
		fieldDefault{
			key:   "chart.render_timeout_seconds",
			need:  func() bool { return c.RenderTimeoutSeconds <= 0 },
			apply: func() { c.RenderTimeoutSeconds = defaultChartRenderSecond },
		},
	)
}

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil && *target == "" },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
