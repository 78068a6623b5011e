package cmd

import (
	"fmt"
	"os"
	"sync"

	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v4"
	"github.com/vbauerster/mpb/v4/decor"

	"github.com/bedrockmgr/bedrockmgr/core"
	"github.com/bedrockmgr/bedrockmgr/importer"
	"github.com/bedrockmgr/bedrockmgr/settings"
	"github.com/bedrockmgr/bedrockmgr/transfer"
	"github.com/bedrockmgr/bedrockmgr/world"
)

var importDev bool
var importEnableWorld string
var importShowDetails bool

// importCmd represents the import command
var importCmd = &cobra.Command{
	Use:   "import [file|folder]",
	Short: "Import addons from a .mcaddon, .mcpack or .zip file, or from a folder",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		backend := OpenBackend()
		defer backend.Close()

		renderer := newProgressRenderer()
		imp := &importer.Importer{
			Backend:             backend,
			CachedEngineVersion: settings.LastKnownEngineVersion,
			Staging:             importDev,
			Progress:            renderer.sink,
		}

		job := imp.Start(args[0])
		<-job.Done()
		result := job.Result()
		renderer.finish()

		fmt.Println(result.Message)
		for _, warning := range result.Warnings {
			fmt.Println("Warning:", warning)
		}
		if importShowDetails {
			fmt.Println()
			for _, line := range result.Details {
				fmt.Println(line)
			}
		}
		if !result.Success {
			os.Exit(1)
		}

		if importEnableWorld != "" {
			enableImported(backend, result, importEnableWorld)
		}
	},
}

// enableImported enables every successfully imported pack in one world.
func enableImported(backend transfer.Backend, result importer.ImportResult, worldName string) {
	registry := world.NewRegistry(backend)
	for _, p := range result.ImportedPacks {
		rel := backend.Join(core.PackDir(p.Type, importDev), p.Folder, "manifest.json")
		data, err := backend.ReadFile(rel)
		if err != nil {
			fmt.Printf("Could not read manifest for %s: %v\n", p.Folder, err)
			continue
		}
		m, err := core.ParseManifest(data)
		if err != nil {
			fmt.Printf("Could not parse manifest for %s: %v\n", p.Folder, err)
			continue
		}
		addon := core.Addon{UUID: m.Header.UUID, Version: m.Header.Version, Type: p.Type}
		if err := registry.Enable(addon, worldName); err != nil {
			fmt.Printf("Could not enable %s in %s: %v\n", p.Folder, worldName, err)
			continue
		}
		fmt.Printf("Enabled %s in world %s\n", p.Folder, worldName)
	}
}

// progressRenderer maps orchestrator progress events onto an mpb step bar
// plus a transient byte bar during compression and upload.
type progressRenderer struct {
	mu       sync.Mutex
	progress *mpb.Progress
	steps    *mpb.Bar
	message  string

	stepCur  int64
	sub      *mpb.Bar
	subName  string
	subLabel string
	subCur   int64
}

// messageDecor renders the renderer's current step message. mpb's stock
// decorators only show static text or counters.
type messageDecor struct {
	decor.WC
	r *progressRenderer
}

func (d *messageDecor) Decor(st *decor.Statistics) string {
	d.r.mu.Lock()
	message := d.r.message
	d.r.mu.Unlock()
	return d.FormatMsg(message)
}

func newProgressRenderer() *progressRenderer {
	r := &progressRenderer{progress: mpb.New(mpb.WithWidth(48)), message: "Starting..."}
	wc := decor.WC{W: 40, C: decor.DidentRight}
	r.steps = r.progress.AddBar(1,
		mpb.PrependDecorators(&messageDecor{WC: wc.Init(), r: r}),
		mpb.AppendDecorators(decor.CountersNoUnit("%d/%d")),
	)
	return r
}

func (r *progressRenderer) sink(step, total int, message string, sub *importer.SubProgress) {
	r.mu.Lock()
	r.message = message
	r.mu.Unlock()

	r.steps.SetTotal(int64(total), false)
	if delta := int64(step) - r.stepCur; delta > 0 {
		r.steps.IncrBy(int(delta))
		r.stepCur = int64(step)
	}

	if sub == nil {
		return
	}
	if r.sub == nil || r.subName != sub.Name || r.subLabel != sub.Label {
		if r.sub != nil {
			r.sub.SetTotal(r.subCur, true)
		}
		label := sub.Label
		r.sub = r.progress.AddBar(sub.Total,
			mpb.BarRemoveOnComplete(),
			mpb.PrependDecorators(decor.Name(label, decor.WC{W: 40, C: decor.DidentRight})),
			mpb.AppendDecorators(decor.CountersKibiByte("% .1f / % .1f")),
		)
		r.subName = sub.Name
		r.subLabel = sub.Label
		r.subCur = 0
	}
	r.sub.SetTotal(sub.Total, false)
	if delta := sub.Current - r.subCur; delta > 0 {
		r.sub.IncrBy(int(delta))
		r.subCur = sub.Current
	}
}

func (r *progressRenderer) finish() {
	if r.sub != nil {
		r.sub.SetTotal(r.subCur, true)
	}
	r.steps.SetTotal(r.stepCur, true)
	r.progress.Wait()
}

func init() {
	importCmd.Flags().BoolVar(&importDev, "dev", false, "Install into the development pack directories")
	importCmd.Flags().StringVar(&importEnableWorld, "enable", "", "Enable imported packs in the named world afterwards")
	importCmd.Flags().BoolVar(&importShowDetails, "details", false, "Print the full diagnostic log after the import")
	rootCmd.AddCommand(importCmd)
}
