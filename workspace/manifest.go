package workspace

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// Manifest identifies a workspace: its display name, the trust level it
// was initialized with, and when the .sunwell layout was first created.
// Written once at initialization and read by every later session.
type Manifest struct {
	Name      string    `json:"name"`
	Trust     string    `json:"trust"`
	Root      string    `json:"root"`
	CreatedAt time.Time `json:"created_at"`
}

// Links records related sibling projects, stored as workspace.json.
type Links struct {
	Related []string `json:"related"`
}

// LoadManifest reads the project manifest, reporting ok=false when the
// workspace has not been initialized yet.
func LoadManifest(projectRoot string) (Manifest, bool, error) {
	raw, err := os.ReadFile(ProjectManifestPath(projectRoot))
	if err != nil {
		if os.IsNotExist(err) {
			return Manifest{}, false, nil
		}
		return Manifest{}, false, err
	}
	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return Manifest{}, false, err
	}
	return m, true, nil
}

// EnsureManifest writes a fresh manifest on first initialization and
// leaves an existing one untouched, returning whichever is current.
func EnsureManifest(projectRoot, trust string) (Manifest, error) {
	if m, ok, err := LoadManifest(projectRoot); err != nil || ok {
		return m, err
	}
	m := Manifest{
		Name:      filepath.Base(projectRoot),
		Trust:     trust,
		Root:      projectRoot,
		CreatedAt: time.Now().UTC(),
	}
	raw, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return Manifest{}, err
	}
	if err := os.WriteFile(ProjectManifestPath(projectRoot), raw, 0o644); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

// LoadLinks reads related-project links; a missing workspace.json means
// no links, not an error.
func LoadLinks(projectRoot string) (Links, error) {
	raw, err := os.ReadFile(RelatedProjectsPath(projectRoot))
	if err != nil {
		if os.IsNotExist(err) {
			return Links{}, nil
		}
		return Links{}, err
	}
	var l Links
	if err := json.Unmarshal(raw, &l); err != nil {
		return Links{}, err
	}
	return l, nil
}

// AddLink records a related project path, deduplicating existing links.
func AddLink(projectRoot, related string) error {
	l, err := LoadLinks(projectRoot)
	if err != nil {
		return err
	}
	for _, existing := range l.Related {
		if existing == related {
			return nil
		}
	}
	l.Related = append(l.Related, related)
	raw, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(RelatedProjectsPath(projectRoot), raw, 0o644)
}
