// Package store persists per-repository, per-view time series as JSON files.
// The on-disk shape is exactly the dataset list the front-end chart renderer
// consumes, so the store doubles as the site's data output.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/ichard26/ghstats/internal/domain"
)

// Store is an append-only, date-indexed collection of snapshots, one JSON
// file per (repository, view) under <base>/<owner>/<name>/<view>.json.
// It assumes a single writer process; the atomic-rename write discipline
// protects readers against crashes mid-write, not concurrent writers.
type Store struct {
	basePath string
}

// New creates a Store rooted at basePath. The directory is created lazily on
// first write.
func New(basePath string) *Store {
	return &Store{basePath: basePath}
}

// BasePath returns the root of the data directory.
func (s *Store) BasePath() string { return s.basePath }

// SeriesPath returns the relative path of a view's JSON file within the data
// directory. This path is part of the contract exposed to the page generator.
func SeriesPath(repo domain.Repo, view domain.ViewKind) string {
	return filepath.Join(repo.Owner, repo.Name, string(view)+".json")
}

func (s *Store) filePath(repo domain.Repo, view domain.ViewKind) string {
	return filepath.Join(s.basePath, SeriesPath(repo, view))
}

// Load reads the full dataset list for a (repository, view). A missing file
// is an empty series, not an error.
func (s *Store) Load(repo domain.Repo, view domain.ViewKind) ([]domain.Dataset, error) {
	raw, err := os.ReadFile(s.filePath(repo, view))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read series %s/%s: %w", repo, view, err)
	}
	var datasets []domain.Dataset
	if err := json.Unmarshal(raw, &datasets); err != nil {
		return nil, fmt.Errorf("failed to parse series %s/%s: %w", repo, view, err)
	}
	return datasets, nil
}

// Latest returns the most recent recorded date for a (repository, view), or
// ok=false when no history exists yet. The orchestrator uses this for its
// staleness check.
func (s *Store) Latest(repo domain.Repo, view domain.ViewKind) (domain.Date, bool, error) {
	datasets, err := s.Load(repo, view)
	if err != nil {
		return "", false, err
	}
	latest := latestDate(datasets)
	return latest, latest != "", nil
}

// Append inserts a snapshot into the series. A snapshot dated the same as the
// latest entry replaces it (idempotent same-day re-run); a newer date is
// appended; a strictly older date is rejected with OutOfOrderWriteError.
func (s *Store) Append(repo domain.Repo, view domain.ViewKind, snap domain.Snapshot) error {
	datasets, err := s.Load(repo, view)
	if err != nil {
		return err
	}

	if latest := latestDate(datasets); latest != "" {
		if snap.Date.Before(latest) {
			return &domain.OutOfOrderWriteError{Repo: repo, View: view, Date: snap.Date, Latest: latest}
		}
		if snap.Date == latest {
			datasets = dropDate(datasets, snap.Date)
		}
	}

	if view == domain.ViewIssueClosers {
		datasets = appendCloserPoints(datasets, snap)
	} else {
		datasets = appendScalarPoint(datasets, view, snap)
	}
	return s.WriteSeries(repo, view, datasets)
}

// WriteSeries replaces the whole file for a (repository, view). Used by
// Append and by the delta deriver's full recompute.
func (s *Store) WriteSeries(repo domain.Repo, view domain.ViewKind, datasets []domain.Dataset) error {
	if datasets == nil {
		// An empty series file must still be a JSON array for the renderer.
		datasets = []domain.Dataset{}
	}
	path := s.filePath(repo, view)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create data directory for %s: %w", repo, err)
	}
	blob, err := json.MarshalIndent(datasets, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode series %s/%s: %w", repo, view, err)
	}
	return atomicWrite(path, blob)
}

// atomicWrite writes blob to a temp file in the target directory and renames
// it into place, so a crash mid-write can never expose truncated or mixed
// content to readers.
func atomicWrite(path string, blob []byte) error {
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

// latestDate returns the maximum recorded date across datasets, or "" for an
// empty series. Closers datasets are sparse, so every dataset's tail must be
// inspected.
func latestDate(datasets []domain.Dataset) domain.Date {
	var latest domain.Date
	for _, ds := range datasets {
		if n := len(ds.Data); n > 0 && latest.Before(ds.Data[n-1].X) {
			latest = ds.Data[n-1].X
		}
	}
	return latest
}

// dropDate removes all points recorded on the given date, discarding any
// dataset left empty. This implements the same-day replace semantics.
func dropDate(datasets []domain.Dataset, date domain.Date) []domain.Dataset {
	kept := datasets[:0]
	for _, ds := range datasets {
		points := ds.Data[:0]
		for _, p := range ds.Data {
			if p.X != date {
				points = append(points, p)
			}
		}
		ds.Data = points
		if len(ds.Data) > 0 {
			kept = append(kept, ds)
		}
	}
	return kept
}

func appendScalarPoint(datasets []domain.Dataset, view domain.ViewKind, snap domain.Snapshot) []domain.Dataset {
	point := domain.DataPoint{X: snap.Date, Y: snap.Value}
	if len(datasets) == 0 {
		return []domain.Dataset{{Label: view.DatasetLabel(), Data: []domain.DataPoint{point}}}
	}
	datasets[0].Data = append(datasets[0].Data, point)
	return datasets
}

// appendCloserPoints upserts one dataset per closing actor. Actors are added
// in sorted order so repeated runs produce identical files.
func appendCloserPoints(datasets []domain.Dataset, snap domain.Snapshot) []domain.Dataset {
	actors := make([]string, 0, len(snap.ByActor))
	for actor := range snap.ByActor {
		actors = append(actors, actor)
	}
	sort.Strings(actors)

	for _, actor := range actors {
		point := domain.DataPoint{X: snap.Date, Y: snap.ByActor[actor]}
		idx := -1
		for i := range datasets {
			if datasets[i].Label == actor {
				idx = i
				break
			}
		}
		if idx == -1 {
			datasets = append(datasets, domain.Dataset{Label: actor, Data: []domain.DataPoint{point}})
		} else {
			datasets[idx].Data = append(datasets[idx].Data, point)
		}
	}
	return datasets
}
