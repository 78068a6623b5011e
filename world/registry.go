// Package world manages per-world pack enablement lists and their load
// order.
package world

import (
	"fmt"
	"sort"

	"github.com/bedrockmgr/bedrockmgr/core"
	"github.com/bedrockmgr/bedrockmgr/transfer"
)

// Entry is one element of a world's enablement list. Array order is load
// priority; index 0 loads first.
type Entry struct {
	PackID  string       `json:"pack_id"`
	Version core.Version `json:"version"`
}

// Registry reads and writes world enablement files on the target.
type Registry struct {
	backend transfer.Backend
}

func NewRegistry(b transfer.Backend) *Registry {
	return &Registry{backend: b}
}

func packFileName(t core.PackType) string {
	if t == core.PackTypeBehavior {
		return "world_behavior_packs.json"
	}
	return "world_resource_packs.json"
}

// Worlds lists the available world names, sorted.
func (r *Registry) Worlds() ([]string, error) {
	if !r.backend.IsDir("worlds") {
		return nil, nil
	}
	entries, err := r.backend.List("worlds")
	if err != nil {
		return nil, err
	}
	var worlds []string
	for _, e := range entries {
		if e.IsDir {
			worlds = append(worlds, e.Name)
		}
	}
	sort.Strings(worlds)
	return worlds, nil
}

func (r *Registry) packFile(worldName string, t core.PackType) string {
	return r.backend.Join("worlds", worldName, packFileName(t))
}

// entries loads a world's list; a missing or unreadable file is an empty
// list.
func (r *Registry) entries(worldName string, t core.PackType) []Entry {
	var list []Entry
	if err := transfer.ReadJSON(r.backend, r.packFile(worldName, t), &list); err != nil {
		return nil
	}
	return list
}

func (r *Registry) write(worldName string, t core.PackType, list []Entry) error {
	if list == nil {
		list = []Entry{}
	}
	return transfer.WriteJSON(r.backend, r.packFile(worldName, t), list)
}

// Enable appends the addon to the world's list. Already-enabled packs are
// a no-op.
func (r *Registry) Enable(addon core.Addon, worldName string) error {
	if !r.backend.IsDir(r.backend.Join("worlds", worldName)) {
		return fmt.Errorf("world not found: %s", worldName)
	}
	list := r.entries(worldName, addon.Type)
	for _, e := range list {
		if e.PackID == addon.UUID {
			return nil
		}
	}
	list = append(list, Entry{PackID: addon.UUID, Version: addon.Version})
	return r.write(worldName, addon.Type, list)
}

// Disable removes the addon from the world's list. Absent packs are a
// no-op.
func (r *Registry) Disable(addon core.Addon, worldName string) error {
	if !r.backend.Exists(r.packFile(worldName, addon.Type)) {
		return nil
	}
	list := r.entries(worldName, addon.Type)
	kept := list[:0]
	for _, e := range list {
		if e.PackID != addon.UUID {
			kept = append(kept, e)
		}
	}
	return r.write(worldName, addon.Type, kept)
}

// Enabled reports whether the addon is in the world's list.
func (r *Registry) Enabled(addon core.Addon, worldName string) bool {
	_, ok := r.Position(addon, worldName)
	return ok
}

// Position returns the addon's 0-indexed load position; ok is false when
// the addon is not enabled.
func (r *Registry) Position(addon core.Addon, worldName string) (int, bool) {
	for i, e := range r.entries(worldName, addon.Type) {
		if e.PackID == addon.UUID {
			return i, true
		}
	}
	return 0, false
}

// EnabledCount returns the number of enabled packs of a type in a world.
func (r *Registry) EnabledCount(worldName string, t core.PackType) int {
	return len(r.entries(worldName, t))
}

// MovePriority swaps the addon with its neighbor: direction -1 moves it up
// (higher priority), +1 down. Moves past either end fail.
func (r *Registry) MovePriority(addon core.Addon, worldName string, direction int) error {
	if direction != -1 && direction != 1 {
		return fmt.Errorf("direction must be -1 or +1")
	}
	list := r.entries(worldName, addon.Type)
	current := -1
	for i, e := range list {
		if e.PackID == addon.UUID {
			current = i
			break
		}
	}
	if current < 0 {
		return fmt.Errorf("pack is not enabled in world %s", worldName)
	}
	next := current + direction
	if next < 0 || next >= len(list) {
		return fmt.Errorf("pack is already at the %s of the load order", boundName(direction))
	}
	list[current], list[next] = list[next], list[current]
	return r.write(worldName, addon.Type, list)
}

func boundName(direction int) string {
	if direction < 0 {
		return "top"
	}
	return "bottom"
}

// EnabledUUIDs collects every pack id enabled in any world for a type.
func (r *Registry) EnabledUUIDs(t core.PackType) (map[string]bool, error) {
	worlds, err := r.Worlds()
	if err != nil {
		return nil, err
	}
	uuids := make(map[string]bool)
	for _, w := range worlds {
		for _, e := range r.entries(w, t) {
			if e.PackID != "" {
				uuids[e.PackID] = true
			}
		}
	}
	return uuids, nil
}

// MarkEnabled recomputes the transient enabled flag on scanned addons.
func (r *Registry) MarkEnabled(addons []core.Addon) error {
	byType := make(map[core.PackType]map[string]bool)
	for i := range addons {
		t := addons[i].Type
		if byType[t] == nil {
			uuids, err := r.EnabledUUIDs(t)
			if err != nil {
				return err
			}
			byType[t] = uuids
		}
		addons[i].Enabled = byType[t][addons[i].UUID]
	}
	return nil
}

// Reconcile finds identities present in both a production and a staging
// scan. Enabling the same pack from both locations is undefined, so each
// duplicate is removed from every world's list of its type and reported
// disabled for both locations. Returns the affected UUIDs.
func (r *Registry) Reconcile(production, staging []core.Addon) ([]string, error) {
	worlds, err := r.Worlds()
	if err != nil {
		return nil, err
	}

	var removed []string
	seen := make(map[string]bool)
	for _, a := range staging {
		if a.UUID == "" || seen[a.UUID] {
			continue
		}
		duplicate := false
		for _, p := range production {
			if p.Same(a) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			continue
		}
		seen[a.UUID] = true
		for _, w := range worlds {
			if err := r.Disable(a, w); err != nil {
				return removed, err
			}
		}
		removed = append(removed, a.UUID)
	}
	return removed, nil
}
