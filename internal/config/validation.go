package config

import (
	"fmt"
	"strings"
)

func validate(c *Config) error {
	if err := c.App.validate(); err != nil {
		return err
	}
	if err := c.Catalog.validate(); err != nil {
		return err
	}
	if err := c.Proposals.validate(); err != nil {
		return err
	}
	return c.Chart.validate()
}

func (a AppConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(a.LogLevel)) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("app.log_level must be debug/info/warn/error, got %q", a.LogLevel)
	}
	if strings.TrimSpace(a.HTTPAddr) == "" {
		return fmt.Errorf("app.http_addr cannot be empty")
	}
	return nil
}

func (c CatalogConfig) validate() error {
	if strings.TrimSpace(c.TemplatesPath) == "" {
		return fmt.Errorf("catalog.templates_path cannot be empty")
	}
	return nil
}

func (p ProposalConfig) validate() error {
	if p.ApprovalTTLMinutes <= 0 {
		return fmt.Errorf("proposals.approval_ttl_minutes must be > 0")
	}
	if p.MaxReprices < 0 {
		return fmt.Errorf("proposals.max_reprices must be >= 0")
	}
	return nil
}

func (c ChartConfig) validate() error {
	if !c.Enabled {
		return nil
	}
	if strings.TrimSpace(c.OutputDir) == "" {
		return fmt.Errorf("chart.output_dir cannot be empty when chart.enabled")
	}
	if c.RenderTimeoutSeconds <= 0 {
		return fmt.Errorf("chart.render_timeout_seconds must be > 0")
	}
	return nil
}
