// Package config loads session settings from vellum.toml and VELLUM_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// FileName is the name of the configuration file.
const FileName = "vellum.toml"

// EnvPrefix prefixes environment overrides, e.g. VELLUM_ALLOWED_PATHS.
const EnvPrefix = "VELLUM"

const (
	KeyAllowedPaths         = "allowed_paths"
	KeyAllowPreviewPackages = "allow_preview_packages"
	KeyPackageCacheDir      = "package_cache_dir"
	KeyPackageRepository    = "package_repository_url"
	KeyPackageIndexURL      = "package_index_url"
	KeyFontPaths            = "font_paths"
	KeySystemFonts          = "system_fonts"
	KeyDocsURL              = "docs_url"
	KeyDocumentPortal       = "document_portal"
)

// Config is the merged configuration.
type Config struct {
	// AllowedPaths are read-only roots in addition to the document root.
	AllowedPaths         []string `mapstructure:"allowed_paths"`
	AllowPreviewPackages bool     `mapstructure:"allow_preview_packages"`
	// PackageCacheDir defaults to the per-user cache directory.
	PackageCacheDir string `mapstructure:"package_cache_dir"`
	// PackageRepositoryURL is where package archives are downloaded from.
	PackageRepositoryURL string `mapstructure:"package_repository_url"`
	// PackageIndexURL defaults to index.json under the repository.
	PackageIndexURL string   `mapstructure:"package_index_url"`
	FontPaths       []string `mapstructure:"font_paths"`
	SystemFonts     bool     `mapstructure:"system_fonts"`
	DocsURL         string   `mapstructure:"docs_url"`
	// DocumentPortal maps sandboxed paths back to their host paths for
	// display.
	DocumentPortal bool `mapstructure:"document_portal"`
}

// New returns a viper instance with the defaults and environment bindings
// installed. Every key needs a default for environment overrides to reach
// Unmarshal.
func New() *viper.Viper {
	v := viper.New()
	v.SetConfigType("toml")
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	v.SetDefault(KeyAllowedPaths, []string{})
	v.SetDefault(KeyAllowPreviewPackages, false)
	v.SetDefault(KeyPackageCacheDir, "")
	v.SetDefault(KeyPackageRepository, "")
	v.SetDefault(KeyPackageIndexURL, "")
	v.SetDefault(KeyFontPaths, []string{})
	v.SetDefault(KeySystemFonts, true)
	v.SetDefault(KeyDocsURL, "")
	v.SetDefault(KeyDocumentPortal, false)
	return v
}

// DefaultPath returns $XDG_CONFIG_HOME/vellum/vellum.toml, or "" when no
// config directory is known.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "vellum", FileName)
}

// Load reads file into v and decodes the result. An empty file means the
// default path, which may be missing; an explicit file must exist.
func Load(v *viper.Viper, file string) (Config, error) {
	explicit := file != ""
	if !explicit {
		file = DefaultPath()
	}
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			missing := errors.Is(err, os.ErrNotExist) || errors.As(err, &notFound)
			if explicit || !missing {
				return Config{}, fmt.Errorf("failed to read config %s: %w", file, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.AllowedPaths = splitPaths(cfg.AllowedPaths)
	cfg.FontPaths = splitPaths(cfg.FontPaths)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// splitPaths expands list-separated entries coming from the environment,
// e.g. VELLUM_FONT_PATHS=/a:/b.
func splitPaths(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		for _, part := range filepath.SplitList(p) {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Validate checks the URL settings.
func (c Config) Validate() error {
	for key, raw := range map[string]string{
		KeyPackageRepository: c.PackageRepositoryURL,
		KeyPackageIndexURL:   c.PackageIndexURL,
		KeyDocsURL:           c.DocsURL,
	} {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s: %q is not an absolute URL", key, raw)
		}
	}
	return nil
}
