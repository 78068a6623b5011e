package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PackType classifies a pack as behavior (data/script) or resource (assets).
type PackType int

const (
	PackTypeUnknown PackType = iota
	PackTypeBehavior
	PackTypeResource
)

func (t PackType) String() string {
	switch t {
	case PackTypeBehavior:
		return "behavior"
	case PackTypeResource:
		return "resource"
	default:
		return "unknown"
	}
}

// Manifest is the typed form of a pack's manifest.json. Fields that are
// absent in the file are left at their zero value.
type Manifest struct {
	FormatVersion FormatVersion        `json:"format_version"`
	Header        ManifestHeader       `json:"header"`
	Metadata      ManifestMetadata     `json:"metadata"`
	Modules       []ManifestModule     `json:"modules"`
	Dependencies  []ManifestDependency `json:"dependencies"`
	Subpacks      []ManifestSubpack    `json:"subpacks"`
	Capabilities  []string             `json:"capabilities"`
}

type ManifestHeader struct {
	UUID             string  `json:"uuid"`
	Name             string  `json:"name"`
	Description      string  `json:"description"`
	Version          Version `json:"version"`
	MinEngineVersion Version `json:"min_engine_version"`
	Author           string  `json:"author"`
	URL              string  `json:"url"`
	License          string  `json:"license"`
}

type ManifestMetadata struct {
	Authors []string `json:"authors"`
	URL     string   `json:"url"`
	License string   `json:"license"`
}

type ManifestModule struct {
	Type        string  `json:"type"`
	UUID        string  `json:"uuid"`
	Description string  `json:"description"`
	Version     Version `json:"version"`
}

type ManifestDependency struct {
	UUID       string      `json:"uuid"`
	ModuleName string      `json:"module_name"`
	Name       string      `json:"name"`
	Version    VersionText `json:"version"`
}

type ManifestSubpack struct {
	FolderName string `json:"folder_name"`
	Name       string `json:"name"`
	MemoryTier int    `json:"memory_tier"`
}

// FormatVersion appears as either a number (1, 2) or a string ("1.13.0").
type FormatVersion string

func (f *FormatVersion) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FormatVersion(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("format_version must be a string or number")
	}
	*f = FormatVersion(n.String())
	return nil
}

// VersionText preserves a dependency version as display text; dependency
// versions may be semver-ish strings ("1.0.0-beta") or component arrays.
type VersionText string

func (v *VersionText) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = VersionText(s)
		return nil
	}
	var parts []json.Number
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("dependency version must be a string or array")
	}
	strs := make([]string, len(parts))
	for i, p := range parts {
		strs[i] = p.String()
	}
	*v = VersionText(strings.Join(strs, "."))
	return nil
}

// Identifier returns the best available identifier for a dependency:
// explicit uuid, then module name, then display name.
func (d ManifestDependency) Identifier() string {
	if d.UUID != "" {
		return d.UUID
	}
	if d.ModuleName != "" {
		return d.ModuleName
	}
	return d.Name
}

// IsVanilla reports whether the dependency references the host game itself
// rather than another installed pack.
func (d ManifestDependency) IsVanilla() bool {
	id := strings.ToLower(d.Identifier())
	return strings.HasPrefix(id, "@minecraft/") || id == "minecraft" || strings.HasPrefix(id, "minecraft:")
}

// RequiredDependencies returns dependencies on other packs, excluding
// references to the host game.
func (m *Manifest) RequiredDependencies() []ManifestDependency {
	var deps []ManifestDependency
	for _, d := range m.Dependencies {
		if !d.IsVanilla() {
			deps = append(deps, d)
		}
	}
	return deps
}

// UsesBetaAPIs reports whether any vanilla dependency pins a beta version.
func (m *Manifest) UsesBetaAPIs() bool {
	for _, d := range m.Dependencies {
		if d.IsVanilla() && strings.Contains(strings.ToLower(string(d.Version)), "beta") {
			return true
		}
	}
	return false
}

// ParseManifest parses manifest text. Manifests frequently carry // and
// /* */ comments, which encoding/json rejects, so they are stripped first.
func ParseManifest(data []byte) (*Manifest, error) {
	cleaned := StripJSONComments(string(data))
	var m Manifest
	dec := json.NewDecoder(strings.NewReader(cleaned))
	dec.UseNumber()
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	return &m, nil
}

// LoadManifest reads and parses a manifest.json file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseManifest(data)
}

// StripJSONComments removes /* */ block comments and // line comments.
// A // is only treated as a comment when the number of unescaped quotes
// before it on the line is even, so URLs inside strings survive.
func StripJSONComments(s string) string {
	s = stripBlockComments(s)
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = stripLineComment(line)
	}
	return strings.Join(lines, "\n")
}

func stripBlockComments(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString := false
	inComment := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inComment {
			if c == '*' && i+1 < len(s) && s[i+1] == '/' {
				inComment = false
				i++
			}
			continue
		}
		if inString {
			if c == '\\' && i+1 < len(s) {
				b.WriteByte(c)
				b.WriteByte(s[i+1])
				i++
				continue
			}
			if c == '"' {
				inString = false
			}
			b.WriteByte(c)
			continue
		}
		if c == '"' {
			inString = true
			b.WriteByte(c)
			continue
		}
		if c == '/' && i+1 < len(s) && s[i+1] == '*' {
			inComment = true
			i++
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

func stripLineComment(line string) string {
	for i := 0; i+1 < len(line); i++ {
		if line[i] != '/' || line[i+1] != '/' {
			continue
		}
		quotes := 0
		for j := 0; j < i; j++ {
			if line[j] == '"' && (j == 0 || line[j-1] != '\\') {
				quotes++
			}
		}
		if quotes%2 == 0 {
			return line[:i]
		}
	}
	return line
}

var placeholderNames = map[string]bool{
	"unknown pack": true,
	"unknown":      true,
	"":             true,
}

var genericPackNames = map[string]bool{
	"resource":       true,
	"resources":      true,
	"resource_pack":  true,
	"resource pack":  true,
	"behavior":       true,
	"behaviors":      true,
	"behaviour":      true,
	"behaviours":     true,
	"behavior_pack":  true,
	"behavior pack":  true,
	"behaviour_pack": true,
	"behaviour pack": true,
	"bp":             true,
	"rp":             true,
	"pack":           true,
	"unnamed_pack":   true,
}

// IsPlaceholderName reports whether a manifest-declared name is a
// localization key or template placeholder rather than a real name.
func IsPlaceholderName(name string) bool {
	lower := strings.ToLower(strings.TrimSpace(name))
	if strings.HasPrefix(lower, "pack.") {
		return true
	}
	if strings.Contains(name, "%") || strings.HasPrefix(name, "{{") || strings.HasPrefix(name, "$") {
		return true
	}
	return placeholderNames[lower]
}

// IsGenericOrPlaceholderName additionally rejects generic names like "bp"
// that carry no information about which addon the pack belongs to.
func IsGenericOrPlaceholderName(name string) bool {
	if IsPlaceholderName(name) {
		return true
	}
	return genericPackNames[strings.ToLower(strings.TrimSpace(name))]
}

// IsGenericContainerName reports whether an inner container's base name is
// a generic token that should be replaced with the addon's base name.
func IsGenericContainerName(stem string) bool {
	return genericPackNames[strings.ToLower(strings.TrimSpace(stem))]
}

var behaviorDirs = []string{"functions", "scripts", "entities", "loot_tables", "trading", "recipes"}
var resourceDirs = []string{"textures", "sounds", "models", "font", "particles"}

// DetectPackType classifies a pack directory. Precedence: manifest module
// types, then directory-name hints, then characteristic subdirectories.
func DetectPackType(packDir string) PackType {
	if m, err := LoadManifest(filepath.Join(packDir, "manifest.json")); err == nil {
		if t := detectTypeFromModules(m.Modules); t != PackTypeUnknown {
			return t
		}
	}
	if t := detectTypeFromDirName(filepath.Base(packDir)); t != PackTypeUnknown {
		return t
	}
	return detectTypeFromContents(packDir)
}

func detectTypeFromModules(modules []ManifestModule) PackType {
	for _, mod := range modules {
		switch strings.ToLower(mod.Type) {
		case "data", "script", "client_data", "javascript":
			return PackTypeBehavior
		case "resources", "interface":
			return PackTypeResource
		}
	}
	return PackTypeUnknown
}

func detectTypeFromDirName(name string) PackType {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "bp") || strings.Contains(lower, "behavior"):
		return PackTypeBehavior
	case strings.Contains(lower, "rp") || strings.Contains(lower, "resource"):
		return PackTypeResource
	}
	return PackTypeUnknown
}

func detectTypeFromContents(packDir string) PackType {
	for _, d := range behaviorDirs {
		if info, err := os.Stat(filepath.Join(packDir, d)); err == nil && info.IsDir() {
			return PackTypeBehavior
		}
	}
	for _, d := range resourceDirs {
		if info, err := os.Stat(filepath.Join(packDir, d)); err == nil && info.IsDir() {
			return PackTypeResource
		}
	}
	return PackTypeUnknown
}
