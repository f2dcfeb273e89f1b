package pipeline

import (
	"io/fs"
	"sort"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pkg/errors"

	"github.com/askiada/go-pkgpipe/pkg/pipeline/model"
)

// FileListing is a sorted list of slash-separated paths relative to the project directory.
type FileListing []string

// ArtifactRegistry is the catalog of artifacts of one pipeline configuration.
// Selections are only evaluated by Resolve, so directories that do not exist yet are fine.
type ArtifactRegistry struct {
	mu        sync.RWMutex
	root      fs.FS
	order     []string
	artifacts map[string]*model.Artifact
}

// NewArtifactRegistry creates a registry whose selections are evaluated against root.
func NewArtifactRegistry(root fs.FS) *ArtifactRegistry {
	return &ArtifactRegistry{
		root:      root,
		artifacts: make(map[string]*model.Artifact),
	}
}

// Register adds an artifact to the registry.
func (r *ArtifactRegistry) Register(id string, selection model.Selection, links ...model.Link) (*model.Artifact, error) {
	for _, pattern := range append(append([]string(nil), selection.Include...), selection.Exclude...) {
		if !doublestar.ValidatePattern(pattern) {
			return nil, &InvalidPatternError{Artifact: id, Pattern: pattern}
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.artifacts[id]; ok {
		return nil, &DuplicateArtifactError{ID: id}
	}

	art := &model.Artifact{
		ID: id,
		Selection: model.Selection{
			Include: append([]string(nil), selection.Include...),
			Exclude: append([]string(nil), selection.Exclude...),
		},
		Links: append([]model.Link(nil), links...),
	}
	r.artifacts[id] = art
	r.order = append(r.order, id)

	return art, nil
}

// Artifact returns a registered artifact.
func (r *ArtifactRegistry) Artifact(id string) (*model.Artifact, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	art, ok := r.artifacts[id]

	return art, ok
}

// IDs returns the registered identifiers in registration order.
func (r *ArtifactRegistry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]string(nil), r.order...)
}

// Resolve evaluates the selection of an artifact against the project tree.
func (r *ArtifactRegistry) Resolve(id string) (FileListing, error) {
	art, ok := r.Artifact(id)
	if !ok {
		return nil, &UnknownArtifactError{ID: id}
	}

	return selectFiles(r.root, art.Selection)
}

func selectFiles(root fs.FS, selection model.Selection) (FileListing, error) {
	seen := make(map[string]struct{})
	listing := FileListing{}

	for _, pattern := range selection.Include {
		matches, err := doublestar.Glob(root, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, errors.Wrapf(err, "unable to evaluate pattern %q", pattern)
		}

		for _, match := range matches {
			if _, ok := seen[match]; ok {
				continue
			}

			excluded, err := isExcluded(selection.Exclude, match)
			if err != nil {
				return nil, err
			}

			if excluded {
				continue
			}

			seen[match] = struct{}{}
			listing = append(listing, match)
		}
	}

	sort.Strings(listing)

	return listing, nil
}

func isExcluded(patterns []string, name string) (bool, error) {
	for _, pattern := range patterns {
		ok, err := doublestar.Match(pattern, name)
		if err != nil {
			return false, errors.Wrapf(err, "unable to evaluate exclude pattern %q", pattern)
		}

		if ok {
			return true, nil
		}
	}

	return false, nil
}
