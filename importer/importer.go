// Package importer drives the end-to-end addon import flow: extraction,
// nested-container normalization, pack discovery, and installation.
package importer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bedrockmgr/bedrockmgr/archive"
	"github.com/bedrockmgr/bedrockmgr/core"
	"github.com/bedrockmgr/bedrockmgr/transfer"
)

// SubProgress is byte-level progress inside a single step, emitted only
// during compression and upload.
type SubProgress struct {
	Name    string
	Current int64
	Total   int64
	Label   string
}

// ProgressSink receives layered progress events. The total only ever grows
// as the true number of nested containers and packs becomes known.
type ProgressSink func(step, total int, message string, sub *SubProgress)

// ImportedPack records one installed pack in an ImportResult.
type ImportedPack struct {
	Folder string
	Type   core.PackType
}

// ImportResult is the aggregate outcome of an import. It is append-only
// while being built and never mutated after being returned.
type ImportResult struct {
	Success       bool
	Message       string
	ImportedPacks []ImportedPack
	Warnings      []string
	Details       []string
}

// Importer runs imports against a configured target.
type Importer struct {
	Backend transfer.Backend
	// EngineVersion is the live compatibility version query; nil when the
	// surrounding application has none.
	EngineVersion EngineVersionFunc
	// CachedEngineVersion supplies the last known engine version when the
	// live query has no answer.
	CachedEngineVersion EngineVersionFunc
	// Staging installs into the development_* directories.
	Staging bool
	// Progress receives step and sub-step events; may be nil.
	Progress ProgressSink
}

// tracker maintains the step counter, growing total, detail log and
// deduplicated transfer lines for one import invocation.
type tracker struct {
	sink    ProgressSink
	step    int
	total   int
	message string
	details []string
	emitted map[string]bool
}

func newTracker(sink ProgressSink, initialTotal int) *tracker {
	return &tracker{sink: sink, total: initialTotal, message: "Starting...", emitted: make(map[string]bool)}
}

func (t *tracker) detail(line string) {
	t.details = append(t.details, line)
}

func (t *tracker) update(message string, advance bool) {
	if advance {
		t.step++
	}
	t.message = message
	t.detail(message)
	if t.sink != nil {
		t.sink(t.step, t.total, message, nil)
	}
}

// grow raises the total; it never shrinks below the current step.
func (t *tracker) grow(total int) {
	if total > t.total {
		t.total = total
	}
	if t.total <= t.step {
		t.total = t.step + 1
	}
}

func (t *tracker) sub(name string, current, total int64, label string) {
	if t.sink == nil {
		return
	}
	if total <= 0 {
		total = 1
	}
	t.sink(t.step, t.total, t.message, &SubProgress{Name: name, Current: current, Total: total, Label: label})
}

// transferLine records a transfer log line once, without advancing.
func (t *tracker) transferLine(line string) {
	message := "Transfer: " + line
	if t.emitted[message] {
		return
	}
	t.emitted[message] = true
	t.update(message, false)
}

func (imp *Importer) installer() *installer {
	return &installer{
		backend:       imp.Backend,
		engineVersion: imp.EngineVersion,
		cachedVersion: imp.CachedEngineVersion,
		staging:       imp.Staging,
	}
}

func (imp *Importer) targetDetail() string {
	if imp.Staging {
		return "Install target: development directories"
	}
	return "Install target: default pack directories"
}

// ImportArchive imports a single container file (.mcaddon, .mcpack, .zip).
// Validation failures return a failed result with no side effects.
func (imp *Importer) ImportArchive(filePath string) ImportResult {
	t := newTracker(imp.Progress, 6)
	t.update("Preparing import...", false)
	t.detail("Input file: " + filepath.Base(filePath))
	t.detail("File extension: " + strings.ToLower(filepath.Ext(filePath)))
	t.detail(imp.targetDetail())
	t.update("Validating file...", true)

	if _, err := os.Stat(filePath); err != nil {
		t.detail("Validation failed: input file does not exist.")
		return failed(t, "File not found: "+filePath)
	}
	if !archive.CanImport(filePath) {
		t.detail("Validation failed: unsupported file type.")
		return failed(t, fmt.Sprintf("Unsupported file type: %s. Supported: .mcaddon, .mcpack, .zip", filepath.Ext(filePath)))
	}
	if imp.Backend == nil || !imp.Backend.Configured() {
		t.detail("Validation failed: server is not configured.")
		return failed(t, "Server target not configured")
	}

	baseName := strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
	t.detail("Using base pack name: " + baseName)

	tempDir, err := os.MkdirTemp("", "bedrockmgr-import-")
	if err != nil {
		return failed(t, "Failed to create working directory: "+err.Error())
	}
	defer os.RemoveAll(tempDir)
	t.detail("Temporary extraction directory: " + tempDir)

	t.update("Extracting archive...", true)
	if !archive.IsArchive(filePath) {
		t.detail("Validation failed: file is not a valid archive.")
		return failed(t, "File is not a valid archive")
	}
	// Extract under a folder named after the file, so a pack whose
	// manifest sits at the archive root keeps a meaningful folder name.
	tempDir = filepath.Join(tempDir, sanitizeFolderName(baseName))
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return failed(t, "Failed to create working directory: "+err.Error())
	}
	if err := archive.Extract(filePath, tempDir); err != nil {
		t.detail("Archive extraction failed: " + err.Error())
		return failed(t, "Failed to extract archive: "+err.Error())
	}
	t.detail("Archive extraction completed.")

	t.update("Processing nested packs...", true)
	err = archive.NormalizeNested(tempDir, baseName, func(message string) {
		t.grow(t.total + 1)
		t.update(message, true)
	})
	if err != nil {
		t.detail("Nested extraction failed: " + err.Error())
		return failed(t, err.Error())
	}

	t.update("Scanning for packs...", true)
	packs := archive.FindPacks(tempDir)
	t.detail(fmt.Sprintf("Pack folders detected: %d", len(packs)))
	if len(packs) == 0 {
		t.detail("No valid packs were detected from extracted content.")
		return failed(t, "No valid addon packs found in the file")
	}

	t.grow(t.total + len(packs))
	t.update(fmt.Sprintf("Installing %d pack(s)...", len(packs)), true)
	imported, warnings, errs := imp.installAll(t, packs, baseName)

	t.update("Finalizing import...", true)
	return aggregate(t, imported, warnings, errs)
}

// ImportFolder imports from a directory, which may itself be a pack,
// contain loose pack directories, and/or contain container archives.
func (imp *Importer) ImportFolder(folderPath string) ImportResult {
	t := newTracker(imp.Progress, 5)
	t.update("Preparing folder import...", false)
	t.detail("Input folder: " + folderPath)
	t.detail(imp.targetDetail())
	t.update("Validating folder...", true)

	info, err := os.Stat(folderPath)
	if err != nil || !info.IsDir() {
		t.detail("Validation failed: folder path is invalid.")
		return failed(t, "Invalid folder path")
	}
	if imp.Backend == nil || !imp.Backend.Configured() {
		t.detail("Validation failed: server is not configured.")
		return failed(t, "Server target not configured")
	}

	t.update("Scanning for addon files and packs...", true)
	packs := archive.FindPacks(folderPath)
	t.detail(fmt.Sprintf("Pack folders detected directly: %d", len(packs)))

	var archives []string
	entries, _ := os.ReadDir(folderPath)
	for _, e := range entries {
		if !e.IsDir() && archive.CanImport(e.Name()) {
			archives = append(archives, filepath.Join(folderPath, e.Name()))
		}
	}
	t.detail(fmt.Sprintf("Addon archives detected: %d", len(archives)))
	t.grow(3 + len(archives) + len(packs))

	if len(packs) == 0 && len(archives) == 0 {
		t.detail("No supported files or pack folders were found.")
		return failed(t, "No valid addon packs or addon files found in the folder")
	}

	var imported []ImportedPack
	var warnings, errs []string

	for i, archivePath := range archives {
		name := filepath.Base(archivePath)
		t.update(fmt.Sprintf("Importing archive %d/%d: %s", i+1, len(archives), name), true)
		nested := *imp
		nested.Progress = forwardProgress(t, name)
		result := nested.ImportArchive(archivePath)
		t.detail("Archive report for " + name + ":")
		for _, line := range result.Details {
			t.detail("  " + line)
		}
		if result.Success {
			imported = append(imported, result.ImportedPacks...)
			warnings = append(warnings, result.Warnings...)
			t.detail(fmt.Sprintf("Archive import succeeded: %s (%d pack(s)).", name, len(result.ImportedPacks)))
		} else {
			errs = append(errs, name+": "+result.Message)
			t.detail(fmt.Sprintf("Archive import failed: %s (%s).", name, result.Message))
		}
	}

	if len(packs) > 0 {
		t.update(fmt.Sprintf("Installing %d pack folder(s)...", len(packs)), true)
		folderImported, folderWarnings, folderErrs := imp.installAll(t, packs, filepath.Base(folderPath))
		imported = append(imported, folderImported...)
		warnings = append(warnings, folderWarnings...)
		errs = append(errs, folderErrs...)
	}

	t.update("Finalizing folder import...", true)
	return aggregate(t, imported, warnings, errs)
}

// forwardProgress relays a nested import's events onto the parent tracker:
// step messages are re-labeled with the archive name, byte-level sub events
// pass through unchanged.
func forwardProgress(t *tracker, name string) ProgressSink {
	return func(_, _ int, message string, sub *SubProgress) {
		if sub != nil {
			t.sub(sub.Name, sub.Current, sub.Total, sub.Label)
			return
		}
		t.update(name+": "+message, false)
	}
}

// installAll installs discovered packs in order. One pack's failure does
// not abort the rest.
func (imp *Importer) installAll(t *tracker, packs []archive.DiscoveredPack, baseName string) ([]ImportedPack, []string, []string) {
	in := imp.installer()
	var imported []ImportedPack
	var warnings, errs []string
	for i, pack := range packs {
		t.update(fmt.Sprintf("Installing pack %d/%d: %s (%s)", i+1, len(packs), filepath.Base(pack.Dir), pack.Type), true)
		if m, err := core.LoadManifest(filepath.Join(pack.Dir, "manifest.json")); err == nil {
			for _, dep := range m.RequiredDependencies() {
				t.detail(fmt.Sprintf("Pack dependency: %s %s", dep.Identifier(), dep.Version))
			}
			if m.UsesBetaAPIs() {
				betaWarning := packDisplayName(pack.Dir) + " uses beta Minecraft APIs; the Beta APIs experiment must be enabled on the server."
				warnings = append(warnings, betaWarning)
				t.detail("Compatibility warning: " + betaWarning)
			}
		}
		folder, warning, log, err := in.install(pack.Dir, pack.Type, baseName, t.transferLine, t.sub)
		for _, line := range log {
			t.transferLine(line)
		}
		if err != nil {
			errs = append(errs, err.Error())
			t.detail(fmt.Sprintf("Failed to install %s pack (%s): %v", pack.Type, filepath.Base(pack.Dir), err))
			continue
		}
		imported = append(imported, ImportedPack{Folder: folder, Type: pack.Type})
		t.detail(fmt.Sprintf("Installed %s pack as folder: %s", pack.Type, folder))
		if warning != "" {
			warnings = append(warnings, warning)
			t.detail("Compatibility warning: " + warning)
		}
	}
	return imported, warnings, errs
}

func failed(t *tracker, message string) ImportResult {
	return ImportResult{Success: false, Message: message, Details: t.details}
}

// aggregate builds the final result message: behavior packs first, then
// resource packs, then any partial-failure summary.
func aggregate(t *tracker, imported []ImportedPack, warnings, errs []string) ImportResult {
	if len(imported) == 0 {
		t.detail("Import failed: no packs were installed.")
		return ImportResult{
			Success: false,
			Message: "Failed to import: " + strings.Join(errs, "; "),
			Details: t.details,
		}
	}

	var behavior, resource []string
	for _, p := range imported {
		if p.Type == core.PackTypeBehavior {
			behavior = append(behavior, p.Folder)
		} else {
			resource = append(resource, p.Folder)
		}
	}

	lines := []string{fmt.Sprintf("Successfully imported %d pack(s):\n", len(imported))}
	if len(behavior) > 0 {
		lines = append(lines, "Behavior Packs:")
		for _, name := range behavior {
			lines = append(lines, "  • "+name)
		}
	}
	if len(resource) > 0 {
		if len(behavior) > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, "Resource Packs:")
		for _, name := range resource {
			lines = append(lines, "  • "+name)
		}
	}
	if len(errs) > 0 {
		lines = append(lines, "\nWarnings: "+strings.Join(errs, "; "))
	}

	t.detail(fmt.Sprintf("Import complete: %d installed, %d failed.", len(imported), len(errs)))
	return ImportResult{
		Success:       true,
		Message:       strings.Join(lines, "\n"),
		ImportedPacks: imported,
		Warnings:      warnings,
		Details:       t.details,
	}
}

// Job is an import running on its own worker goroutine. The caller polls
// Done rather than blocking its control flow.
type Job struct {
	done   chan struct{}
	result ImportResult
}

// Start runs the import for path (file or directory) in the background.
func (imp *Importer) Start(path string) *Job {
	job := &Job{done: make(chan struct{})}
	go func() {
		defer close(job.done)
		info, err := os.Stat(path)
		if err == nil && info.IsDir() {
			job.result = imp.ImportFolder(path)
			return
		}
		job.result = imp.ImportArchive(path)
	}()
	return job
}

// Done is closed when the import finishes.
func (j *Job) Done() <-chan struct{} { return j.done }

// Result is valid once Done is closed.
func (j *Job) Result() ImportResult { return j.result }
