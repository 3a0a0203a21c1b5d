package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"legwork/internal/logger"
	"legwork/internal/pkg/maputil"

	"github.com/fsnotify/fsnotify"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Archetype identifiers. Each archetype has a known structural risk
// formula in the proposer.
const (
	ArchetypeCollar          = "collar"
	ArchetypePutCreditSpread = "put_credit_spread"
	ArchetypeCashSecuredPut  = "cash_secured_put"
	ArchetypeIronCondor      = "iron_condor"
)

// Directional bias of a template, used by the momentum scoring rule.
const (
	BiasPut     = "put"
	BiasCall    = "call"
	BiasNeutral = "neutral"
)

// Template is one candidate strategy shape the scorer ranks against a
// market snapshot.
type Template struct {
	ID                 string                 `mapstructure:"id" yaml:"id"`
	Description        string                 `mapstructure:"description" yaml:"description"`
	Archetype          string                 `mapstructure:"archetype" yaml:"archetype"`
	Version            int                    `mapstructure:"version" yaml:"version"`
	PriceRange         []float64              `mapstructure:"price_range" yaml:"price_range"`
	MinATMOpenInterest int                    `mapstructure:"min_atm_open_interest" yaml:"min_atm_open_interest"`
	MaxSpreadPct       float64                `mapstructure:"max_spread_pct" yaml:"max_spread_pct"`
	DTE                int                    `mapstructure:"dte" yaml:"dte"`
	DeltaTarget        float64                `mapstructure:"delta_target" yaml:"delta_target"`
	StrikeWidth        float64                `mapstructure:"strike_width" yaml:"strike_width"`
	EarningsExitBuffer int                    `mapstructure:"earnings_exit_buffer_days" yaml:"earnings_exit_buffer_days"`
	PremiumSelling     bool                   `mapstructure:"premium_selling" yaml:"premium_selling"`
	Bias               string                 `mapstructure:"bias" yaml:"bias"`
	OverridesSchema    map[string]interface{} `mapstructure:"overrides_schema" yaml:"overrides_schema"`

	schemaCompiled *jsonschema.Schema
}

// InPriceRange reports whether price falls inside the template's target
// range. Templates without a range accept any price.
func (t Template) InPriceRange(price float64) bool {
	if len(t.PriceRange) != 2 {
		return true
	}
	return price >= t.PriceRange[0] && price <= t.PriceRange[1]
}

// FileConfig maps the templates file.
type FileConfig struct {
	Templates map[string]Template `mapstructure:"templates" yaml:"templates"`
}

// Snapshot is a point-in-time copy of the loaded catalog.
type Snapshot struct {
	Version   int64
	LoadedAt  time.Time
	Templates map[string]Template
}

// Sorted returns templates ordered by id for deterministic iteration.
func (s Snapshot) Sorted() []Template {
	out := make([]Template, 0, len(s.Templates))
	for _, tpl := range s.Templates {
		out = append(out, tpl)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ChangeListener fires after a successful reload.
type ChangeListener func(Snapshot)

// Registry loads the template catalog from a YAML file and watches it for
// changes.
type Registry struct {
	path string
	v    *viper.Viper

	mu        sync.RWMutex
	snapshot  Snapshot
	listeners []ChangeListener
}

// NewRegistry reads the catalog file and starts watching it.
func NewRegistry(path string) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("template registry requires path")
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read template catalog failed: %w", err)
	}
	r := &Registry{path: path, v: v}
	if err := r.reload(); err != nil {
		return nil, err
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if err := r.reload(); err != nil {
			logger.Errorf("template catalog reload failed: %v", err)
			return
		}
		r.notifyListeners()
	})
	v.WatchConfig()
	return r, nil
}

// Snapshot returns the current catalog.
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneSnapshot(r.snapshot)
}

// Template returns the template with the given ID.
func (r *Registry) Template(id string) (Template, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tpl, ok := r.snapshot.Templates[strings.TrimSpace(id)]
	return tpl, ok
}

// Subscribe registers a reload listener.
func (r *Registry) Subscribe(fn ChangeListener) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	r.listeners = append(r.listeners, fn)
	r.mu.Unlock()
}

// ValidateOverrides checks user overrides against the template's compiled
// schema. Templates without a schema accept anything.
func (r *Registry) ValidateOverrides(templateID string, overrides map[string]any) (Template, error) {
	tpl, ok := r.Template(templateID)
	if !ok {
		return Template{}, fmt.Errorf("unknown template: %s", templateID)
	}
	if err := tpl.ValidateOverrides(overrides); err != nil {
		return Template{}, err
	}
	return tpl, nil
}

// ValidateOverrides runs the compiled schema against the given overrides.
func (t Template) ValidateOverrides(overrides map[string]any) error {
	if t.schemaCompiled == nil {
		return nil
	}
	return t.schemaCompiled.Validate(sanitizeParams(overrides))
}

// WithOverrides returns a copy of the template with the tunable parameters
// replaced by user overrides. Callers validate against the schema first;
// keys outside the tunable set are ignored here.
func (t Template) WithOverrides(overrides map[string]any) Template {
	if len(overrides) == 0 {
		return t
	}
	if v := maputil.Int(overrides, "dte"); v > 0 {
		t.DTE = v
	}
	if v := maputil.Float(overrides, "delta_target"); v > 0 {
		t.DeltaTarget = v
	}
	if v := maputil.Float(overrides, "strike_width"); v > 0 {
		t.StrikeWidth = v
	}
	if v := maputil.Int(overrides, "earnings_exit_buffer_days"); v > 0 {
		t.EarningsExitBuffer = v
	}
	return t
}

func (r *Registry) reload() error {
	cfg, err := readCatalogFile(r.path)
	if err != nil {
		return err
	}
	templates := make(map[string]Template)
	for name, tpl := range cfg.Templates {
		norm := normalizeTemplate(name, tpl)
		templates[norm.ID] = norm
	}
	r.mu.Lock()
	r.snapshot = Snapshot{
		Version:   r.snapshot.Version + 1,
		LoadedAt:  time.Now(),
		Templates: templates,
	}
	r.mu.Unlock()
	logger.Infof("Template catalog loaded %d templates from %s", len(templates), filepath.Base(r.path))
	return nil
}

func (r *Registry) notifyListeners() {
	r.mu.RLock()
	snap := cloneSnapshot(r.snapshot)
	listeners := append([]ChangeListener(nil), r.listeners...)
	r.mu.RUnlock()
	for _, fn := range listeners {
		if fn == nil {
			continue
		}
		go func(cb ChangeListener) {
			defer safeRecover("template catalog listener")
			cb(snap)
		}(fn)
	}
}

func normalizeTemplate(name string, tpl Template) Template {
	tpl.ID = strings.TrimSpace(tpl.ID)
	if tpl.ID == "" {
		tpl.ID = strings.TrimSpace(name)
	}
	if tpl.Version <= 0 {
		tpl.Version = 1
	}
	tpl.Description = strings.TrimSpace(tpl.Description)
	tpl.Archetype = strings.ToLower(strings.TrimSpace(tpl.Archetype))
	tpl.Bias = strings.ToLower(strings.TrimSpace(tpl.Bias))
	if tpl.Bias == "" {
		tpl.Bias = BiasNeutral
	}
	if len(tpl.OverridesSchema) > 0 {
		if compiled, err := compileSchema(tpl.OverridesSchema); err != nil {
			logger.Errorf("template overrides schema compile failed id=%s: %v", tpl.ID, err)
		} else {
			tpl.schemaCompiled = compiled
		}
	}
	return tpl
}

func cloneSnapshot(src Snapshot) Snapshot {
	dst := Snapshot{
		Version:   src.Version,
		LoadedAt:  src.LoadedAt,
		Templates: make(map[string]Template, len(src.Templates)),
	}
	for id, tpl := range src.Templates {
		dst.Templates[id] = tpl
	}
	return dst
}

func safeRecover(tag string) {
	if r := recover(); r != nil {
		logger.Errorf("%s panic: %v", tag, r)
	}
}

func compileSchema(data map[string]interface{}) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", strings.NewReader(string(raw))); err != nil {
		return nil, err
	}
	return compiler.Compile("schema.json")
}

func readCatalogFile(path string) (FileConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return FileConfig{}, fmt.Errorf("read template catalog failed: %w", err)
	}
	var cfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return FileConfig{}, fmt.Errorf("parse template catalog failed: %w", err)
	}
	return cfg, nil
}

// sanitizeParams coerces string-typed numbers ("3000" -> 3000) so schema
// validation matches what pasted documents usually carry.
func sanitizeParams(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			out[k] = sanitizeParams(child)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, child := range val {
			out[i] = sanitizeParams(child)
		}
		return out
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return val
		}
		if num, err := strconv.ParseFloat(s, 64); err == nil {
			return num
		}
		return val
	default:
		return val
	}
}
