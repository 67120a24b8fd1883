// Package config loads and mutates the run configuration: the data directory
// and the tracked repositories with their enabled views. The configuration is
// loaded once per run and passed explicitly; nothing in the application reads
// it as ambient state.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/ichard26/ghstats/internal/domain"
)

// DefaultBasePath is where time-series files land when the configuration
// does not name a data directory.
const DefaultBasePath = "data"

// RepoConfig is one tracked repository and its enabled view subset.
type RepoConfig struct {
	Repo  domain.Repo
	Views []domain.ViewKind
}

// repoConfigYAML is the on-disk form: the repository as one "owner/name"
// string, views as plain strings.
type repoConfigYAML struct {
	Repo  string   `yaml:"repo"`
	Views []string `yaml:"views"`
}

func (rc *RepoConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw repoConfigYAML
	if err := value.Decode(&raw); err != nil {
		return err
	}
	repo, err := domain.ParseRepo(raw.Repo)
	if err != nil {
		return err
	}
	views := make([]domain.ViewKind, 0, len(raw.Views))
	for _, v := range raw.Views {
		view, err := domain.ParseViewKind(v)
		if err != nil {
			return fmt.Errorf("repository %s: %w", repo, err)
		}
		if slices.Contains(views, view) {
			return fmt.Errorf("repository %s: view %s enabled twice", repo, view)
		}
		views = append(views, view)
	}
	rc.Repo = repo
	rc.Views = views
	return nil
}

func (rc RepoConfig) MarshalYAML() (interface{}, error) {
	raw := repoConfigYAML{Repo: rc.Repo.String()}
	for _, v := range rc.Views {
		raw.Views = append(raw.Views, string(v))
	}
	return raw, nil
}

// Config is the full run configuration.
type Config struct {
	BasePath string       `yaml:"base_path"`
	Repos    []RepoConfig `yaml:"repos"`
}

// Load reads and validates a configuration file.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if cfg.BasePath == "" {
		cfg.BasePath = DefaultBasePath
	}
	seen := make(map[domain.Repo]bool)
	for _, rc := range cfg.Repos {
		if seen[rc.Repo] {
			return nil, fmt.Errorf("config %s: repository %s listed twice", path, rc.Repo)
		}
		seen[rc.Repo] = true
	}
	return &cfg, nil
}

// Save writes the configuration back to disk with the same temp-then-rename
// discipline the store uses.
func (c *Config) Save(path string) error {
	blob, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(blob); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file for %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

func (c *Config) find(repo domain.Repo) *RepoConfig {
	for i := range c.Repos {
		if c.Repos[i].Repo == repo {
			return &c.Repos[i]
		}
	}
	return nil
}

// AddRepo registers a repository with an initial view set.
func (c *Config) AddRepo(repo domain.Repo, views []domain.ViewKind) error {
	if c.find(repo) != nil {
		return fmt.Errorf("repository %s is already configured", repo)
	}
	c.Repos = append(c.Repos, RepoConfig{Repo: repo, Views: slices.Clone(views)})
	return nil
}

// RemoveRepo drops a repository from the configuration. Its stored series
// files are left in place.
func (c *Config) RemoveRepo(repo domain.Repo) error {
	for i := range c.Repos {
		if c.Repos[i].Repo == repo {
			c.Repos = slices.Delete(c.Repos, i, i+1)
			return nil
		}
	}
	return fmt.Errorf("repository %s is not configured", repo)
}

// EnableView turns a view on for a repository.
func (c *Config) EnableView(repo domain.Repo, view domain.ViewKind) error {
	rc := c.find(repo)
	if rc == nil {
		return fmt.Errorf("repository %s is not configured", repo)
	}
	if slices.Contains(rc.Views, view) {
		return fmt.Errorf("view %s is already enabled for %s", view, repo)
	}
	rc.Views = append(rc.Views, view)
	return nil
}

// DisableView turns a view off for a repository.
func (c *Config) DisableView(repo domain.Repo, view domain.ViewKind) error {
	rc := c.find(repo)
	if rc == nil {
		return fmt.Errorf("repository %s is not configured", repo)
	}
	for i, v := range rc.Views {
		if v == view {
			rc.Views = slices.Delete(rc.Views, i, i+1)
			return nil
		}
	}
	return fmt.Errorf("view %s is not enabled for %s", view, repo)
}
