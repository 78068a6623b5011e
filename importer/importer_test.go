package importer

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bedrockmgr/bedrockmgr/core"
	"github.com/bedrockmgr/bedrockmgr/transfer"
)

const resourceManifest = `{
	"format_version": 2,
	"header": {"name": "", "uuid": "rp-uuid-1", "version": [1, 0, 0]},
	"modules": [{"type": "resources", "uuid": "m1", "version": [1, 0, 0]}]
}`

const behaviorManifest = `{
	"format_version": 2,
	"header": {"name": "", "uuid": "bp-uuid-1", "version": [1, 0, 0]},
	"modules": [{"type": "data", "uuid": "m2", "version": [1, 0, 0]}]
}`

func zipBytes(t *testing.T, files map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, data := range files {
		f, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := f.Write(data); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
}

func newTestImporter(t *testing.T) (*Importer, *transfer.LocalBackend) {
	t.Helper()
	backend := transfer.NewLocal(t.TempDir())
	return &Importer{Backend: backend}, backend
}

func TestImportArchiveNestedAddon(t *testing.T) {
	imp, backend := newTestImporter(t)

	rp := zipBytes(t, map[string][]byte{"manifest.json": []byte(resourceManifest)})
	bp := zipBytes(t, map[string][]byte{"manifest.json": []byte(behaviorManifest)})
	addon := zipBytes(t, map[string][]byte{
		"RP.mcpack":                   rp,
		"behavior_pack_name_x.mcpack": bp,
	})
	addonPath := filepath.Join(t.TempDir(), "CoolAddon.mcaddon")
	writeFile(t, addonPath, addon)

	result := imp.ImportArchive(addonPath)
	if !result.Success {
		t.Fatalf("import failed: %s", result.Message)
	}
	if len(result.ImportedPacks) != 2 {
		t.Fatalf("got %d packs: %v", len(result.ImportedPacks), result.ImportedPacks)
	}

	// The generic container name is replaced with the addon's base name,
	// the specific one is kept.
	if !backend.Exists("resource_packs/CoolAddon_RP/manifest.json") {
		t.Error("resource pack not installed as CoolAddon_RP")
	}
	if !backend.Exists("behavior_packs/behavior_pack_name_x/manifest.json") {
		t.Error("behavior pack not installed under its own name")
	}
	if !strings.Contains(result.Message, "Behavior Packs:") || !strings.Contains(result.Message, "Resource Packs:") {
		t.Errorf("summary message: %q", result.Message)
	}
	// Behavior packs are listed before resource packs.
	if strings.Index(result.Message, "Behavior Packs:") > strings.Index(result.Message, "Resource Packs:") {
		t.Error("behavior section should come first")
	}
}

func TestImportArchiveValidation(t *testing.T) {
	imp, _ := newTestImporter(t)

	result := imp.ImportArchive(filepath.Join(t.TempDir(), "missing.mcaddon"))
	if result.Success || !strings.HasPrefix(result.Message, "File not found") {
		t.Errorf("missing file: %+v", result)
	}

	bad := filepath.Join(t.TempDir(), "notes.txt")
	writeFile(t, bad, []byte("hi"))
	result = imp.ImportArchive(bad)
	if result.Success || !strings.Contains(result.Message, "Unsupported file type") {
		t.Errorf("unsupported type: %+v", result)
	}

	fake := filepath.Join(t.TempDir(), "fake.mcaddon")
	writeFile(t, fake, []byte("not a zip at all"))
	result = imp.ImportArchive(fake)
	if result.Success || result.Message != "File is not a valid archive" {
		t.Errorf("invalid archive: %+v", result)
	}

	unconfigured := &Importer{Backend: transfer.NewLocal("")}
	good := filepath.Join(t.TempDir(), "a.mcpack")
	writeFile(t, good, zipBytes(t, map[string][]byte{"manifest.json": []byte(resourceManifest)}))
	result = unconfigured.ImportArchive(good)
	if result.Success || result.Message != "Server target not configured" {
		t.Errorf("unconfigured backend: %+v", result)
	}
}

func TestImportArchiveNoPacks(t *testing.T) {
	imp, _ := newTestImporter(t)
	empty := filepath.Join(t.TempDir(), "empty.zip")
	writeFile(t, empty, zipBytes(t, map[string][]byte{"readme.txt": []byte("x")}))

	result := imp.ImportArchive(empty)
	if result.Success || result.Message != "No valid addon packs found in the file" {
		t.Errorf("got %+v", result)
	}
}

func TestInstallReplacesSameUUID(t *testing.T) {
	imp, backend := newTestImporter(t)
	in := imp.installer()

	pack := t.TempDir()
	writeFile(t, filepath.Join(pack, "manifest.json"),
		[]byte(`{"header": {"name": "My Pack", "uuid": "same-uuid", "version": [1, 0, 0]}, "modules": [{"type": "data"}]}`))
	writeFile(t, filepath.Join(pack, "old.txt"), []byte("v1"))

	folder, _, _, err := in.install(pack, core.PackTypeBehavior, "Base", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if folder != "My_Pack" {
		t.Errorf("folder: got %q", folder)
	}

	// Same UUID replaces in place, stale files included.
	if err := os.Remove(filepath.Join(pack, "old.txt")); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(pack, "new.txt"), []byte("v2"))
	folder, _, _, err = in.install(pack, core.PackTypeBehavior, "Base", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if folder != "My_Pack" {
		t.Errorf("reinstall folder: got %q", folder)
	}
	if backend.Exists("behavior_packs/My_Pack/old.txt") {
		t.Error("stale file survived a same-pack replace")
	}
	if !backend.Exists("behavior_packs/My_Pack/new.txt") {
		t.Error("new file missing after replace")
	}

	// A different UUID under the same name keeps both.
	other := t.TempDir()
	writeFile(t, filepath.Join(other, "manifest.json"),
		[]byte(`{"header": {"name": "My Pack", "uuid": "other-uuid", "version": [1, 0, 0]}, "modules": [{"type": "data"}]}`))
	folder, _, _, err = in.install(other, core.PackTypeBehavior, "Base", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if folder != "My_Pack_1" {
		t.Errorf("conflicting install folder: got %q", folder)
	}
}

func TestInstallStaging(t *testing.T) {
	imp, backend := newTestImporter(t)
	imp.Staging = true
	in := imp.installer()

	pack := t.TempDir()
	writeFile(t, filepath.Join(pack, "manifest.json"),
		[]byte(`{"header": {"name": "Dev Pack", "uuid": "dev-uuid", "version": [1, 0, 0]}, "modules": [{"type": "resources"}]}`))
	folder, _, _, err := in.install(pack, core.PackTypeResource, "", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !backend.Exists("development_resource_packs/" + folder + "/manifest.json") {
		t.Error("staging install did not use the development directory")
	}
}

func TestCheckCompatibility(t *testing.T) {
	in := &installer{
		engineVersion: func() (core.Version, bool) { return core.Version{1, 20, 0}, true },
	}
	ok, warning := in.checkCompatibility(core.Version{1, 21, 0})
	if ok || warning == "" {
		t.Errorf("incompatible pack not flagged: %v %q", ok, warning)
	}
	if !strings.Contains(warning, "requires Minecraft 1.21.0 but server is 1.20.0") {
		t.Errorf("warning text: %q", warning)
	}

	ok, warning = in.checkCompatibility(core.Version{1, 19, 0})
	if !ok || warning != "" {
		t.Errorf("compatible pack flagged: %v %q", ok, warning)
	}

	// The cached version is only consulted when the live query has no
	// answer.
	in = &installer{
		engineVersion: func() (core.Version, bool) { return core.Version{}, false },
		cachedVersion: func() (core.Version, bool) { return core.Version{1, 20, 0}, true },
	}
	if ok, _ := in.checkCompatibility(core.Version{1, 21, 0}); ok {
		t.Error("cached version not consulted")
	}

	// No known version at all allows the install.
	in = &installer{}
	if ok, warning := in.checkCompatibility(core.Version{9, 9, 9}); !ok || warning != "" {
		t.Errorf("unknown server version should allow: %v %q", ok, warning)
	}
}

func TestImportArchiveSurfacesDependenciesAndBetaAPIs(t *testing.T) {
	imp, _ := newTestImporter(t)

	const betaManifest = `{
		"format_version": 2,
		"header": {"name": "Beta Pack", "uuid": "beta-uuid-1", "version": [1, 0, 0]},
		"modules": [{"type": "data", "uuid": "m3", "version": [1, 0, 0]}],
		"dependencies": [
			{"module_name": "@minecraft/server", "version": "1.12.0-beta"},
			{"uuid": "other-pack-uuid", "version": [2, 0, 0]}
		]
	}`
	path := filepath.Join(t.TempDir(), "Beta.mcpack")
	writeFile(t, path, zipBytes(t, map[string][]byte{"manifest.json": []byte(betaManifest)}))

	result := imp.ImportArchive(path)
	if !result.Success {
		t.Fatalf("import failed: %s", result.Message)
	}
	foundBeta := false
	for _, w := range result.Warnings {
		if strings.Contains(w, "Beta Pack uses beta Minecraft APIs") {
			foundBeta = true
		}
	}
	if !foundBeta {
		t.Errorf("beta API warning missing from %v", result.Warnings)
	}
	foundDep := false
	for _, d := range result.Details {
		if d == "Pack dependency: other-pack-uuid 2.0.0" {
			foundDep = true
		}
	}
	if !foundDep {
		t.Error("pack dependency not surfaced in the import details")
	}
}

func TestForwardProgressKeepsSubEvents(t *testing.T) {
	var subs []SubProgress
	var messages []string
	tr := newTracker(func(step, total int, message string, sub *SubProgress) {
		if sub != nil {
			subs = append(subs, *sub)
			return
		}
		messages = append(messages, message)
	}, 3)

	sink := forwardProgress(tr, "a.mcaddon")
	sink(1, 2, "Uploading archive...", &SubProgress{Name: "upload", Current: 10, Total: 100, Label: "Uploading archive"})
	sink(1, 2, "Extracting archive...", nil)

	if len(subs) != 1 || subs[0].Name != "upload" || subs[0].Current != 10 || subs[0].Total != 100 {
		t.Errorf("byte-level events not forwarded: %v", subs)
	}
	found := false
	for _, m := range messages {
		if m == "a.mcaddon: Extracting archive..." {
			found = true
		}
	}
	if !found {
		t.Errorf("step message not re-labeled: %v", messages)
	}
}

func TestImportFolder(t *testing.T) {
	imp, backend := newTestImporter(t)

	folder := t.TempDir()
	writeFile(t, filepath.Join(folder, "LoosePack", "manifest.json"),
		[]byte(`{"header": {"name": "Loose Pack", "uuid": "loose-uuid", "version": [1, 0, 0]}, "modules": [{"type": "data"}]}`))
	writeFile(t, filepath.Join(folder, "Bundled.mcpack"),
		zipBytes(t, map[string][]byte{"manifest.json": []byte(resourceManifest)}))

	result := imp.ImportFolder(folder)
	if !result.Success {
		t.Fatalf("folder import failed: %s", result.Message)
	}
	if len(result.ImportedPacks) != 2 {
		t.Fatalf("got %d packs: %v", len(result.ImportedPacks), result.ImportedPacks)
	}
	if !backend.Exists("behavior_packs/Loose_Pack/manifest.json") {
		t.Error("loose pack folder not installed")
	}
	if !backend.Exists("resource_packs/Bundled/manifest.json") {
		t.Error("bundled archive not installed")
	}
}

func TestProgressTotalsNeverShrink(t *testing.T) {
	imp, _ := newTestImporter(t)

	var lastTotal, lastStep int
	imp.Progress = func(step, total int, message string, sub *SubProgress) {
		if total < lastTotal {
			t.Errorf("total shrank from %d to %d at %q", lastTotal, total, message)
		}
		if step < lastStep {
			t.Errorf("step went backwards from %d to %d at %q", lastStep, step, message)
		}
		if step > total {
			t.Errorf("step %d exceeds total %d at %q", step, total, message)
		}
		lastTotal, lastStep = total, step
	}

	rp := zipBytes(t, map[string][]byte{"manifest.json": []byte(resourceManifest)})
	addonPath := filepath.Join(t.TempDir(), "Nested.mcaddon")
	writeFile(t, addonPath, zipBytes(t, map[string][]byte{"rp.mcpack": rp}))

	if result := imp.ImportArchive(addonPath); !result.Success {
		t.Fatalf("import failed: %s", result.Message)
	}
}

func TestJob(t *testing.T) {
	imp, backend := newTestImporter(t)
	pack := zipBytes(t, map[string][]byte{"manifest.json": []byte(behaviorManifest)})
	path := filepath.Join(t.TempDir(), "Solo.mcpack")
	writeFile(t, path, pack)

	job := imp.Start(path)
	<-job.Done()
	result := job.Result()
	if !result.Success {
		t.Fatalf("job failed: %s", result.Message)
	}
	if !backend.Exists("behavior_packs/Solo/manifest.json") {
		t.Error("pack not installed by job")
	}
}

func TestSanitizeFolderName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"My Pack", "My_Pack"},
		{"Dragon: Reborn!", "Dragon__Reborn_"},
		{"already_safe-1", "already_safe-1"},
		{"   ", "unnamed_pack"},
		{"", "unnamed_pack"},
	}
	for _, test := range tests {
		if got := sanitizeFolderName(test.in); got != test.want {
			t.Errorf("sanitizeFolderName(%q) = %q, want %q", test.in, got, test.want)
		}
	}
}
