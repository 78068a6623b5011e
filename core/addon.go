package core

import (
	"sort"
	"strings"
)

// Addon is an installed pack as reconstructed from its manifest and location
// on the target. Values are rebuilt on every scan and never cached.
type Addon struct {
	UUID             string
	Name             string
	Description      string
	Version          Version
	MinEngineVersion Version
	Type             PackType
	// Path is the pack directory relative to the target root.
	Path          string
	IconPath      string
	Author        string
	URL           string
	License       string
	FormatVersion string
	Dependencies  []ManifestDependency
	Subpacks      []ManifestSubpack
	Capabilities  []string
	// Enabled is transient; it is recomputed from world enablement files
	// on each scan and never persisted.
	Enabled bool
}

// Same reports identity equality. Two addons are the same pack iff their
// (uuid, pack type) pair matches; path and name are not identity.
func (a Addon) Same(other Addon) bool {
	return a.UUID == other.UUID && a.Type == other.Type
}

// AddonFromManifest builds an Addon from a parsed manifest. dirName is the
// pack's folder name, used when the manifest name is a placeholder. relPath
// is the pack directory relative to the target root.
func AddonFromManifest(m *Manifest, dirName, relPath string, packType PackType) Addon {
	name := m.Header.Name
	if IsPlaceholderName(name) {
		name = dirName
	}
	author := m.Header.Author
	if author == "" && len(m.Metadata.Authors) > 0 {
		author = strings.Join(m.Metadata.Authors, ", ")
	}
	url := m.Header.URL
	if url == "" {
		url = m.Metadata.URL
	}
	license := m.Header.License
	if license == "" {
		license = m.Metadata.License
	}
	return Addon{
		UUID:             m.Header.UUID,
		Name:             name,
		Description:      m.Header.Description,
		Version:          m.Header.Version,
		MinEngineVersion: m.Header.MinEngineVersion,
		Type:             packType,
		Path:             relPath,
		Author:           author,
		URL:              url,
		License:          license,
		FormatVersion:    string(m.FormatVersion),
		Dependencies:     m.Dependencies,
		Subpacks:         m.Subpacks,
		Capabilities:     m.Capabilities,
	}
}

// TargetFS is the subset of target-storage operations needed to scan for
// installed packs. transfer.Backend satisfies it.
type TargetFS interface {
	Exists(rel string) bool
	IsDir(rel string) bool
	List(rel string) ([]TargetDirEntry, error)
	ReadFile(rel string) ([]byte, error)
	Join(parts ...string) string
}

// TargetDirEntry is a directory listing entry on the target.
type TargetDirEntry struct {
	Path  string
	Name  string
	IsDir bool
}

// PackDir returns the pack directory for a type, production or staging.
func PackDir(t PackType, staging bool) string {
	switch t {
	case PackTypeBehavior:
		if staging {
			return "development_behavior_packs"
		}
		return "behavior_packs"
	case PackTypeResource:
		if staging {
			return "development_resource_packs"
		}
		return "resource_packs"
	}
	return ""
}

var iconNames = []string{"pack_icon.png", "pack_icon.jpg"}

// ScanPacks lists installed addons of one type, sorted by name
// (case-insensitive). Directories without a readable manifest are skipped.
func ScanPacks(fs TargetFS, t PackType, staging bool) ([]Addon, error) {
	base := PackDir(t, staging)
	if base == "" || !fs.IsDir(base) {
		return nil, nil
	}
	entries, err := fs.List(base)
	if err != nil {
		return nil, err
	}
	var packs []Addon
	for _, e := range entries {
		if !e.IsDir {
			continue
		}
		manifestRel := fs.Join(e.Path, "manifest.json")
		data, err := fs.ReadFile(manifestRel)
		if err != nil {
			continue
		}
		m, err := ParseManifest(data)
		if err != nil {
			continue
		}
		addon := AddonFromManifest(m, e.Name, e.Path, t)
		for _, icon := range iconNames {
			iconRel := fs.Join(e.Path, icon)
			if fs.Exists(iconRel) {
				addon.IconPath = iconRel
				break
			}
		}
		packs = append(packs, addon)
	}
	sort.Slice(packs, func(i, j int) bool {
		return strings.ToLower(packs[i].Name) < strings.ToLower(packs[j].Name)
	})
	return packs, nil
}
