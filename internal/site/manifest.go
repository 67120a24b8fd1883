// Package site exposes the contract consumed by the static page generator:
// for every repository, the enabled view set, where each view's JSON series
// file lives, and headline statistics for the dashboard header.
package site

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ichard26/ghstats/internal/config"
	"github.com/ichard26/ghstats/internal/domain"
	"github.com/ichard26/ghstats/internal/store"
	"github.com/ichard26/ghstats/internal/usecase"
)

// ViewRef points the page generator at one view's data file. Path is
// relative to the data directory.
type ViewRef struct {
	Kind domain.ViewKind `json:"kind"`
	Path string          `json:"path"`
}

// RepoManifest describes one repository's dashboard page.
type RepoManifest struct {
	Repo    domain.Repo            `json:"repo"`
	Views   []ViewRef              `json:"views"`
	Summary *usecase.SeriesSummary `json:"summary,omitempty"`
}

// Build assembles the manifest for every configured repository. The summary
// is filled from the stored issue-counts history when any exists.
func Build(cfg *config.Config, st *store.Store) ([]RepoManifest, error) {
	manifests := make([]RepoManifest, 0, len(cfg.Repos))
	for _, rc := range cfg.Repos {
		m := RepoManifest{Repo: rc.Repo, Views: make([]ViewRef, 0, len(rc.Views))}
		for _, v := range rc.Views {
			m.Views = append(m.Views, ViewRef{Kind: v, Path: filepath.ToSlash(store.SeriesPath(rc.Repo, v))})
		}

		counts, err := st.Load(rc.Repo, domain.ViewIssueCounts)
		if err != nil {
			return nil, err
		}
		if len(counts) > 0 {
			if summary, ok := usecase.Summarize(counts[0].Data); ok {
				m.Summary = &summary
			}
		}
		manifests = append(manifests, m)
	}
	return manifests, nil
}

// Write builds the manifest and atomically writes it to
// <base>/manifest.json.
func Write(cfg *config.Config, st *store.Store) error {
	manifests, err := Build(cfg, st)
	if err != nil {
		return err
	}
	blob, err := json.MarshalIndent(manifests, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}

	path := filepath.Join(st.BasePath(), "manifest.json")
	if err := os.MkdirAll(st.BasePath(), 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	tmp, err := os.CreateTemp(st.BasePath(), "manifest.json.tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for manifest: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(blob); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp manifest: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace manifest: %w", err)
	}
	return nil
}
