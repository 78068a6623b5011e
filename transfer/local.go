package transfer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bedrockmgr/bedrockmgr/core"
)

// LocalBackend operates directly on a server directory on this machine.
type LocalBackend struct {
	Root string
}

// NewLocal returns a backend rooted at the given server directory.
func NewLocal(root string) *LocalBackend {
	return &LocalBackend{Root: root}
}

func (b *LocalBackend) Configured() bool {
	if b.Root == "" {
		return false
	}
	info, err := os.Stat(b.Root)
	return err == nil && info.IsDir()
}

func (b *LocalBackend) Remote() bool { return false }

func (b *LocalBackend) DisplayPath() string { return b.Root }

func (b *LocalBackend) Join(parts ...string) string { return Join(parts...) }

func (b *LocalBackend) localPath(rel string) string {
	return filepath.Join(b.Root, filepath.FromSlash(normalizeRel(rel)))
}

func (b *LocalBackend) Exists(rel string) bool {
	_, err := os.Stat(b.localPath(rel))
	return err == nil
}

func (b *LocalBackend) IsDir(rel string) bool {
	info, err := os.Stat(b.localPath(rel))
	return err == nil && info.IsDir()
}

func (b *LocalBackend) List(rel string) ([]core.TargetDirEntry, error) {
	entries, err := os.ReadDir(b.localPath(rel))
	if err != nil {
		return nil, err
	}
	list := make([]core.TargetDirEntry, 0, len(entries))
	for _, e := range entries {
		list = append(list, core.TargetDirEntry{
			Path:  Join(rel, e.Name()),
			Name:  e.Name(),
			IsDir: e.IsDir(),
		})
	}
	return list, nil
}

func (b *LocalBackend) ReadFile(rel string) ([]byte, error) {
	return os.ReadFile(b.localPath(rel))
}

func (b *LocalBackend) WriteFile(rel string, data []byte) error {
	p := b.localPath(rel)
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return err
	}
	return os.WriteFile(p, data, 0644)
}

func (b *LocalBackend) MkdirAll(rel string) error {
	return os.MkdirAll(b.localPath(rel), 0755)
}

func (b *LocalBackend) DeleteTree(rel string) error {
	if normalizeRel(rel) == "" {
		return fmt.Errorf("refusing to delete target root")
	}
	return os.RemoveAll(b.localPath(rel))
}

func (b *LocalBackend) CopyDirFromLocal(localSrc string, destRel string, events EventFunc, progress ProgressFunc) (TransferLog, error) {
	info, err := os.Stat(localSrc)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("source directory not found: %s", localSrc)
	}
	dest := normalizeRel(destRel)
	if err := copyTree(localSrc, b.localPath(dest)); err != nil {
		return nil, err
	}
	var log TransferLog
	log.appendAll(events,
		"Transfer method: local direct copy",
		"Destination: "+dest,
	)
	return log, nil
}

func (b *LocalBackend) LocalCopy(rel string) (string, error) {
	p := b.localPath(rel)
	if _, err := os.Stat(p); err != nil {
		return "", err
	}
	return p, nil
}

func (b *LocalBackend) Close() error { return nil }

func copyTree(src, dest string) error {
	return filepath.WalkDir(src, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dest, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0755)
		}
		return copyFile(p, target)
	})
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
