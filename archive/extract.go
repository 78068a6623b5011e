// Package archive unpacks addon container files (.mcaddon, .mcpack, .zip)
// and discovers the installable packs inside them.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bedrockmgr/bedrockmgr/core"
)

// maxNestingDepth bounds container-in-container extraction. Anything deeper
// is treated as corrupt or adversarial.
const maxNestingDepth = 3

// SupportedExtensions are the container formats accepted for import.
// All three are zip-format archives.
var SupportedExtensions = map[string]bool{
	".mcaddon": true,
	".mcpack":  true,
	".zip":     true,
}

// CanImport reports whether the file has a supported container extension.
func CanImport(path string) bool {
	return SupportedExtensions[strings.ToLower(filepath.Ext(path))]
}

// IsArchive reports whether the file really is a zip archive, regardless of
// its extension.
func IsArchive(path string) bool {
	r, err := zip.OpenReader(path)
	if err != nil {
		return false
	}
	r.Close()
	return true
}

// Extract unpacks a zip archive into dest. Entries escaping dest are
// rejected.
func Extract(src, dest string) error {
	r, err := zip.OpenReader(src)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer r.Close()

	for _, f := range r.File {
		target := filepath.Join(dest, filepath.FromSlash(f.Name))
		if !strings.HasPrefix(filepath.Clean(target), filepath.Clean(dest)+string(os.PathSeparator)) {
			return fmt.Errorf("archive entry escapes destination: %s", f.Name)
		}
		if f.Mode().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return err
		}
		if err := extractFile(f, target); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(f *zip.File, target string) error {
	in, err := f.Open()
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(target)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// NormalizeNested extracts inner .mcpack containers found under root until
// none remain. Generic container names ("bp", "resource", "pack"...) are
// replaced with baseName plus a type suffix; name collisions get a numeric
// suffix. Invalid inner containers are dropped. More than maxNestingDepth
// layers of nesting fails.
func NormalizeNested(root, baseName string, status func(message string)) error {
	depth := 0
	for {
		containers := findContainers(root)
		if len(containers) == 0 {
			return nil
		}
		depth++
		if depth > maxNestingDepth {
			return fmt.Errorf("addon has too many nested layers (>%d); the file may be corrupted or improperly packaged", maxNestingDepth)
		}
		for _, container := range containers {
			if status != nil {
				status(fmt.Sprintf("Extracting nested .mcpack (depth %d): %s", depth, filepath.Base(container)))
			}
			if !IsArchive(container) {
				_ = os.Remove(container)
				continue
			}
			dest := containerDest(container, baseName)
			if err := os.MkdirAll(dest, 0755); err != nil {
				return err
			}
			// A broken inner archive is skipped, not fatal.
			_ = Extract(container, dest)
			_ = os.Remove(container)
		}
	}
}

func findContainers(root string) []string {
	var found []string
	_ = filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(p), ".mcpack") {
			found = append(found, p)
		}
		return nil
	})
	sort.Strings(found)
	return found
}

// containerDest picks the extraction directory for an inner container.
func containerDest(container, baseName string) string {
	stem := strings.TrimSuffix(filepath.Base(container), filepath.Ext(container))
	folderName := stem
	if core.IsGenericContainerName(stem) {
		lower := strings.ToLower(stem)
		switch {
		case strings.Contains(lower, "resource") || strings.Contains(lower, "rp"):
			folderName = baseName + "_RP"
		case strings.Contains(lower, "behavior") || strings.Contains(lower, "behaviour") || strings.Contains(lower, "bp"):
			folderName = baseName + "_BP"
		default:
			folderName = baseName + "_" + stem
		}
	}
	parent := filepath.Dir(container)
	dest := filepath.Join(parent, folderName)
	for counter := 1; ; counter++ {
		if _, err := os.Stat(dest); os.IsNotExist(err) {
			return dest
		}
		dest = filepath.Join(parent, fmt.Sprintf("%s_%d", folderName, counter))
	}
}

// DiscoveredPack is a pack directory found inside extracted content.
type DiscoveredPack struct {
	Dir  string
	Type core.PackType
}

// FindPacks locates every installable pack under root by searching for
// manifest files at any depth. Directories whose type cannot be classified
// are discarded; each directory is reported once.
func FindPacks(root string) []DiscoveredPack {
	var packs []DiscoveredPack
	seen := make(map[string]bool)
	_ = filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() || d.Name() != "manifest.json" {
			return nil
		}
		dir := filepath.Dir(p)
		if seen[dir] {
			return nil
		}
		seen[dir] = true
		packType := core.DetectPackType(dir)
		if packType == core.PackTypeUnknown {
			return nil
		}
		packs = append(packs, DiscoveredPack{Dir: dir, Type: packType})
		return nil
	})
	return packs
}
