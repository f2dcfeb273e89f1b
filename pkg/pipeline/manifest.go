package pipeline

import (
	"encoding/json"

	"github.com/askiada/go-pkgpipe/pkg/pipeline/model"
)

// ManifestEntry is an artifact of a succeeded step with its resolved files.
type ManifestEntry struct {
	Artifact string       `json:"artifact"`
	Step     string       `json:"step"`
	Files    FileListing  `json:"files"`
	Links    []model.Link `json:"links,omitempty"`
}

// AbsentArtifact records why a declared artifact is not in the manifest.
type AbsentArtifact struct {
	Step   string       `json:"step"`
	Status model.Status `json:"-"`
}

// Manifest maps the artifacts of succeeded steps to their files. It is immutable.
type Manifest struct {
	order   []string
	entries map[string]ManifestEntry
	absent  map[string]AbsentArtifact
}

// Lookup returns the entry of an artifact. An artifact declared with an empty selection is present
// with an empty listing.
func (m *Manifest) Lookup(id string) (ManifestEntry, bool) {
	entry, ok := m.entries[id]
	if !ok {
		return ManifestEntry{}, false
	}

	entry.Files = append(FileListing{}, entry.Files...)

	return entry, true
}

// Absent reports whether an artifact was declared by a step that did not succeed.
func (m *Manifest) Absent(id string) (AbsentArtifact, bool) {
	abs, ok := m.absent[id]

	return abs, ok
}

// IDs returns the artifacts in the manifest, in execution order of their steps.
func (m *Manifest) IDs() []string {
	return append([]string(nil), m.order...)
}

// Len returns the number of artifacts in the manifest.
func (m *Manifest) Len() int {
	return len(m.order)
}

// Select returns a manifest restricted to ids, in the given order.
func (m *Manifest) Select(ids []string) (*Manifest, error) {
	res := &Manifest{
		entries: make(map[string]ManifestEntry, len(ids)),
		absent:  make(map[string]AbsentArtifact),
	}

	for _, id := range ids {
		entry, ok := m.entries[id]
		if !ok {
			reason := "not declared by any step"
			if abs, ok := m.absent[id]; ok {
				reason = "step " + abs.Step + " " + abs.Status.String()
			}

			return nil, &UnknownArtifactError{ID: id, Reason: reason}
		}

		if _, ok := res.entries[id]; ok {
			continue
		}

		res.entries[id] = entry
		res.order = append(res.order, id)
	}

	return res, nil
}

// MarshalJSON writes the entries in manifest order.
func (m *Manifest) MarshalJSON() ([]byte, error) {
	entries := make([]ManifestEntry, 0, len(m.order))
	for _, id := range m.order {
		entries = append(entries, m.entries[id])
	}

	return json.Marshal(struct {
		Artifacts []ManifestEntry `json:"artifacts"`
	}{entries})
}

// assembleManifest builds the manifest from the steps that succeeded. It returns the artifacts found for
// each succeeded step, and the first artifact that could not be located.
func assembleManifest(graph *Graph, registry *ArtifactRegistry, res *RunResult) (*Manifest, map[string][]string, error) {
	manifest := &Manifest{
		entries: make(map[string]ManifestEntry),
		absent:  make(map[string]AbsentArtifact),
	}
	produced := make(map[string][]string)

	var firstErr error

	for _, step := range graph.Steps() {
		status := res.Status(step.ID)

		if status != model.StatusSucceeded {
			for _, id := range step.Produces {
				manifest.absent[id] = AbsentArtifact{Step: step.ID, Status: status}
			}

			continue
		}

		produced[step.ID] = []string{}

		for _, id := range step.Produces {
			entry, err := resolveEntry(registry, step.ID, id)
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}

				continue
			}

			produced[step.ID] = append(produced[step.ID], id)
			manifest.entries[id] = entry
			manifest.order = append(manifest.order, id)
		}
	}

	if firstErr != nil {
		return nil, produced, firstErr
	}

	return manifest, produced, nil
}

func resolveEntry(registry *ArtifactRegistry, stepID, id string) (ManifestEntry, error) {
	art, ok := registry.Artifact(id)
	if !ok {
		return ManifestEntry{}, &UnknownArtifactError{ID: id, Reason: "declared by step " + stepID + " but not registered"}
	}

	files, err := registry.Resolve(id)
	if err != nil {
		return ManifestEntry{}, err
	}

	if len(files) == 0 && !art.Selection.IsEmpty() {
		return ManifestEntry{}, &UnknownArtifactError{ID: id, Reason: "no file matches its selection"}
	}

	return ManifestEntry{
		Artifact: id,
		Step:     stepID,
		Files:    files,
		Links:    append([]model.Link(nil), art.Links...),
	}, nil
}
