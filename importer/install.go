package importer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bedrockmgr/bedrockmgr/core"
	"github.com/bedrockmgr/bedrockmgr/transfer"
)

const fallbackFolderName = "unnamed_pack"

// EngineVersionFunc reports the best available server engine version.
// The second return is false when no version can be determined.
type EngineVersionFunc func() (core.Version, bool)

// installer places one discovered pack onto the target.
type installer struct {
	backend transfer.Backend
	// live engine version query; may be nil.
	engineVersion EngineVersionFunc
	// last cached engine version, used when the live query has no answer.
	cachedVersion EngineVersionFunc
	staging       bool
}

// checkCompatibility compares a pack's minimum engine version against the
// best known server version. An unknown server version allows the install
// without a warning; an incompatible one only produces a warning.
func (in *installer) checkCompatibility(minEngine core.Version) (bool, string) {
	server, ok := core.Version{}, false
	if in.engineVersion != nil {
		server, ok = in.engineVersion()
	}
	if !ok && in.cachedVersion != nil {
		server, ok = in.cachedVersion()
	}
	if !ok {
		return true, ""
	}
	if core.CompareVersions(minEngine, server) > 0 {
		return false, fmt.Sprintf(
			"Addon requires Minecraft %s but server is %s. The addon may not work correctly.",
			minEngine, server)
	}
	return true, ""
}

// install copies a pack directory to its destination on the target.
// Returns the destination folder name actually used, an optional
// compatibility warning, and the transfer log.
func (in *installer) install(packDir string, packType core.PackType, baseName string, events transfer.EventFunc, progress transfer.ProgressFunc) (string, string, transfer.TransferLog, error) {
	destBase := core.PackDir(packType, in.staging)
	if destBase == "" {
		return "", "", nil, fmt.Errorf("unknown pack type")
	}
	if !in.backend.Configured() {
		return "", "", nil, fmt.Errorf("server target not configured")
	}
	if err := in.backend.MkdirAll(destBase); err != nil {
		return "", "", nil, fmt.Errorf("failed to create destination pack directory: %w", err)
	}

	var warning string
	manifest, manifestErr := core.LoadManifest(filepath.Join(packDir, "manifest.json"))
	if manifestErr == nil {
		if _, w := in.checkCompatibility(manifest.Header.MinEngineVersion); w != "" {
			name := manifest.Header.Name
			if name == "" {
				name = filepath.Base(packDir)
			}
			warning = name + ": " + w
		}
	}

	folderName := packFolderName(packDir, packType, baseName)
	destRel := in.backend.Join(destBase, folderName)

	// An occupied destination is either the same pack (replace in place)
	// or a different one (keep both under a suffixed name).
	if in.backend.Exists(destRel) {
		if in.samePackInstalled(destRel, manifest) {
			if err := in.backend.DeleteTree(destRel); err != nil {
				return "", "", nil, fmt.Errorf("failed to replace existing pack: %w", err)
			}
		} else {
			for counter := 1; in.backend.Exists(destRel); counter++ {
				destRel = in.backend.Join(destBase, fmt.Sprintf("%s_%d", folderName, counter))
			}
		}
	}

	in.emitPrecheck(packDir, events)

	log, err := in.backend.CopyDirFromLocal(packDir, destRel, events, progress)
	if err != nil {
		return "", "", nil, fmt.Errorf("failed to copy pack: %w", err)
	}
	parts := strings.Split(destRel, "/")
	return parts[len(parts)-1], warning, log, nil
}

// samePackInstalled compares the destination's manifest UUID against the
// incoming one. Unreadable manifests count as a different pack.
func (in *installer) samePackInstalled(destRel string, incoming *core.Manifest) bool {
	if incoming == nil || incoming.Header.UUID == "" {
		return false
	}
	data, err := in.backend.ReadFile(in.backend.Join(destRel, "manifest.json"))
	if err != nil {
		return false
	}
	existing, err := core.ParseManifest(data)
	if err != nil {
		return false
	}
	return existing.Header.UUID == incoming.Header.UUID
}

func (in *installer) emitPrecheck(packDir string, events transfer.EventFunc) {
	if events == nil {
		return
	}
	count := countFiles(packDir, archiveThreshold)
	if in.backend.Remote() {
		mode := "direct SFTP upload"
		display := fmt.Sprint(count)
		if count > archiveThreshold {
			mode = "archive upload"
			display = fmt.Sprintf(">%d", archiveThreshold)
		}
		events(fmt.Sprintf("Precheck: pack has %s files (threshold %d) -> %s", display, archiveThreshold, mode))
		return
	}
	events(fmt.Sprintf("Precheck: pack has %d files; local transfer mode (no SFTP compression).", count))
}

// archiveThreshold mirrors the transfer backend's strategy cutoff for the
// precheck message only; the backend makes the actual decision.
const archiveThreshold = 15

func countFiles(dir string, stopAfter int) int {
	count := 0
	_ = filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			count++
			if count > stopAfter {
				return filepath.SkipAll
			}
		}
		return nil
	})
	return count
}

// packFolderName derives the destination folder name for a pack. Generic
// or placeholder manifest names are replaced with the caller-supplied base
// name plus a type suffix; the result is sanitized to a portable charset.
func packFolderName(packDir string, packType core.PackType, baseName string) string {
	name := packDisplayName(packDir)
	if baseName != "" && core.IsGenericOrPlaceholderName(name) {
		switch packType {
		case core.PackTypeBehavior:
			name = baseName + "_BP"
		case core.PackTypeResource:
			name = baseName + "_RP"
		default:
			name = baseName
		}
	}
	return sanitizeFolderName(name)
}

func packDisplayName(packDir string) string {
	m, err := core.LoadManifest(filepath.Join(packDir, "manifest.json"))
	if err == nil && m.Header.Name != "" {
		return m.Header.Name
	}
	return filepath.Base(packDir)
}

func sanitizeFolderName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	safe := strings.ReplaceAll(strings.TrimSpace(b.String()), " ", "_")
	if safe == "" {
		return fallbackFolderName
	}
	return safe
}
