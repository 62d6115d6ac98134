// Package config loads a ResolverConfig from YAML, TOML, or INI files,
// picking the format by file extension the way the teacher's manifest
// loader picks a parser by content.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"

	"github.com/ssokkol/koji-vibebuild/internal/domain/vberrors"
)

// NameResolutionMode controls how aggressively unresolved dependency
// tokens are canonicalized.
type NameResolutionMode string

const (
	// ModeOff disables canonicalization; tokens are used verbatim.
	ModeOff NameResolutionMode = "off"
	// ModeRulesOnly applies the virtual-provide rule table only.
	ModeRulesOnly NameResolutionMode = "rules-only"
	// ModeRulesAndML additionally consults the trained similarity model.
	ModeRulesAndML NameResolutionMode = "rules+ml"
)

// ResolverConfig is every knob the resolver and orchestrator need,
// serializable to and from yaml/toml/ini.
type ResolverConfig struct {
	HubServer          string             `yaml:"hubServer" toml:"hubServer" ini:"hub_server"`
	HubTarget          string             `yaml:"hubTarget" toml:"hubTarget" ini:"hub_target"`
	HubBuildTag        string             `yaml:"hubBuildTag" toml:"hubBuildTag" ini:"hub_build_tag"`
	ClientCert         string             `yaml:"clientCredentials" toml:"clientCredentials" ini:"client_credentials"`
	ServerCA           string             `yaml:"serverCA" toml:"serverCA" ini:"server_ca"`
	Scratch            bool               `yaml:"scratch" toml:"scratch" ini:"scratch"`
	NoWait             bool               `yaml:"noWait" toml:"noWait" ini:"no_wait"`
	NameResolution     NameResolutionMode `yaml:"nameResolution" toml:"nameResolution" ini:"name_resolution"`
	MLModelPath        string             `yaml:"mlModelPath" toml:"mlModelPath" ini:"ml_model_path"`
	Sources            []string           `yaml:"sources" toml:"sources" ini:"-"`
	ArchiveCacheDir    string             `yaml:"archiveCacheDir" toml:"archiveCacheDir" ini:"archive_cache_dir"`
	MaxParallelPerLevel int               `yaml:"maxParallelPerLevel" toml:"maxParallelPerLevel" ini:"max_parallel_per_level"`
	NoSSLVerify        bool               `yaml:"noSSLVerify" toml:"noSSLVerify" ini:"no_ssl_verify"`
	FedoraRelease      string             `yaml:"fedoraRelease" toml:"fedoraRelease" ini:"fedora_release"`
}

// Defaults returns the resolver's baseline configuration.
func Defaults() ResolverConfig {
	return ResolverConfig{
		HubBuildTag:         "dist-rawhide",
		HubTarget:           "dist-rawhide",
		ArchiveCacheDir:     filepath.Join(os.TempDir(), "vibebuild-cache"),
		MaxParallelPerLevel: 4,
		NameResolution:      ModeRulesOnly,
		FedoraRelease:       "rawhide",
	}
}

// Loader reads a ResolverConfig from disk.
type Loader struct{}

// NewLoader creates a Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads path, dispatching to a parser by extension (.yaml/.yml,
// .toml, .ini), and overlays the result onto Defaults().
func (l *Loader) Load(path string) (ResolverConfig, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ResolverConfig{}, vberrors.NewSpecParseError(fmt.Sprintf("config file not found: %s", path), err)
		}
		return ResolverConfig{}, err
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return ResolverConfig{}, vberrors.NewSpecParseError(fmt.Sprintf("invalid YAML in %s", path), err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return ResolverConfig{}, vberrors.NewSpecParseError(fmt.Sprintf("invalid TOML in %s", path), err)
		}
	case ".ini":
		if err := loadINI(data, &cfg); err != nil {
			return ResolverConfig{}, vberrors.NewSpecParseError(fmt.Sprintf("invalid INI in %s", path), err)
		}
	default:
		return ResolverConfig{}, fmt.Errorf("config: unrecognized extension %q for %s", ext, path)
	}

	return cfg, cfg.Validate()
}

func loadINI(data []byte, cfg *ResolverConfig) error {
	f, err := ini.Load(data)
	if err != nil {
		return err
	}
	section := f.Section("")
	if err := section.MapTo(cfg); err != nil {
		return err
	}
	if key := section.Key("sources"); key != nil && key.String() != "" {
		cfg.Sources = strings.Split(key.String(), ",")
		for i, s := range cfg.Sources {
			cfg.Sources[i] = strings.TrimSpace(s)
		}
	}
	return nil
}

// Validate reports the first structurally invalid field.
func (c ResolverConfig) Validate() error {
	if c.HubServer == "" {
		return vberrors.NewSpecParseError("hubServer is required", nil)
	}
	if c.HubBuildTag == "" {
		return vberrors.NewSpecParseError("hubBuildTag is required", nil)
	}
	if c.HubTarget == "" {
		return vberrors.NewSpecParseError("hubTarget is required", nil)
	}
	switch c.NameResolution {
	case ModeOff, ModeRulesOnly, ModeRulesAndML, "":
	default:
		return vberrors.NewSpecParseError(fmt.Sprintf("unrecognized nameResolution mode %q", c.NameResolution), nil)
	}
	if c.NameResolution == ModeRulesAndML && c.MLModelPath == "" {
		return vberrors.NewSpecParseError("mlModelPath is required when nameResolution is rules+ml", nil)
	}
	if c.MaxParallelPerLevel < 1 {
		return vberrors.NewSpecParseError("maxParallelPerLevel must be >= 1", nil)
	}
	return nil
}
