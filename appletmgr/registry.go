// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The ProbeChain is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the ProbeChain. If not, see <http://www.gnu.org/licenses/>.

package appletmgr

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru"

	"github.com/kahdeg/dialos/dsb"
)

// metadataCacheSize bounds the registry's display-only metadata cache
// (§4.6 "EXPANDED"): installed applet count on this class of device is
// small, so a generous bound avoids ever actually evicting in practice
// while still giving the cache a hard ceiling.
const metadataCacheSize = 64

// Entry is one row of the installed-applet registry: what the menu shows,
// kept separate from any running Task so browsing the menu never touches
// scheduler state.
type Entry struct {
	Name       string
	Path       string // path under the RAM-FS-standin directory, e.g. "/applets/<name>.dsb"
	AppVersion string
	Author     string
	HeapSize   uint32
}

// Registry tracks installed applets (§6.3 "/applets/<name>.dsb") and caches
// their parsed metadata for fast menu redraws. The scheduler's Task always
// holds the authoritative Module; this cache is never consulted to launch
// one, only to render the menu.
//
// Grounded on consensus/greatri.Snapshot's use of an ARC cache to avoid
// re-deriving signer sets on every block header lookup, generalized from
// "recent block headers" to "recently listed applet metadata".
type Registry struct {
	dir   string
	cache *lru.ARCCache
}

// NewRegistry opens a Registry rooted at dir (the RAM-FS-standin directory
// hostfs.Platform also watches).
func NewRegistry(dir string) (*Registry, error) {
	cache, err := lru.NewARC(metadataCacheSize)
	if err != nil {
		return nil, err
	}
	return &Registry{dir: dir, cache: cache}, nil
}

// Installed lists every "<name>.dsb" file under dir, parsing (or serving
// from cache) its metadata.
func (r *Registry) Installed() ([]Entry, error) {
	files, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, err
	}
	var entries []Entry
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".dsb") {
			continue
		}
		e, err := r.metadataFor(f.Name())
		if err != nil {
			continue // a corrupt blob is simply omitted from the menu
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (r *Registry) metadataFor(fileName string) (Entry, error) {
	path := filepath.Join(r.dir, fileName)
	if v, ok := r.cache.Get(path); ok {
		return v.(Entry), nil
	}
	buf, err := os.ReadFile(path)
	if err != nil {
		return Entry{}, err
	}
	m, err := dsb.Load(buf)
	if err != nil {
		return Entry{}, err
	}
	e := Entry{
		Name:       strings.TrimSuffix(fileName, ".dsb"),
		Path:       path,
		AppVersion: m.Meta.AppVersion,
		Author:     m.Meta.Author,
		HeapSize:   m.HeapSize(),
	}
	r.cache.Add(path, e)
	return e, nil
}

// Install copies blob into the registry directory as "<name>.dsb",
// invalidating any stale cache entry at that path (§4.6 "installs ... on
// long-selection if not installed").
func (r *Registry) Install(name string, blob []byte) (Entry, error) {
	path := filepath.Join(r.dir, name+".dsb")
	if err := os.WriteFile(path, blob, 0o644); err != nil {
		return Entry{}, err
	}
	r.cache.Remove(path)
	return r.metadataFor(name + ".dsb")
}

// IsInstalled reports whether name has an applet blob on disk.
func (r *Registry) IsInstalled(name string) bool {
	_, err := os.Stat(filepath.Join(r.dir, name+".dsb"))
	return err == nil
}

// Load reads and parses the installed blob for name, for Manager.Launch.
func (r *Registry) Load(name string) (*dsb.Module, error) {
	path := filepath.Join(r.dir, name+".dsb")
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("appletmgr: reading %s: %w", path, err)
	}
	return dsb.Load(buf)
}
