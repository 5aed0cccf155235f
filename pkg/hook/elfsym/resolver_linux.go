// Copyright 2024-2026 Madhukar Beema, Distinguished Engineer. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

//go:build linux

package elfsym

import (
	"bufio"
	"debug/elf"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Resolver looks up exported function addresses in the running process by
// walking /proc/self/maps and reading the dynamic symbol tables of every
// file-backed executable mapping. Parsed objects are cached; a miss refreshes
// the mapping list once before giving up, so symbols from libraries loaded
// after the first Resolve are still found.
type Resolver struct {
	mu      sync.Mutex
	objects []*object
	symbols map[string]uintptr // resolved-name cache
	loaded  bool
	logger  *zap.Logger
}

// object is one loaded ELF file and its load bias.
type object struct {
	path string
	base uint64
	typ  elf.Type
	syms map[string]uint64 // symbol name -> vaddr, nil until parsed
}

// NewResolver creates a resolver for the current process.
func NewResolver(logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		symbols: make(map[string]uintptr),
		logger:  logger,
	}
}

// Resolve returns the runtime address of the named exported function.
func (r *Resolver) Resolve(name string) (uintptr, error) {
	if name == "" {
		return 0, fmt.Errorf("empty symbol name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if addr, ok := r.symbols[name]; ok {
		return addr, nil
	}

	if !r.loaded {
		if err := r.loadObjects(); err != nil {
			return 0, err
		}
	}

	addr, ok := r.lookup(name)
	if !ok {
		// The object list may be stale: dlopen after our first scan.
		if err := r.loadObjects(); err == nil {
			addr, ok = r.lookup(name)
		}
	}
	if !ok {
		return 0, fmt.Errorf("symbol %q not found in any loaded object", name)
	}

	r.symbols[name] = addr
	return addr, nil
}

func (r *Resolver) lookup(name string) (uintptr, bool) {
	for _, obj := range r.objects {
		if obj.syms == nil {
			obj.syms = loadSymbols(obj.path, r.logger)
		}
		vaddr, ok := obj.syms[name]
		if !ok {
			continue
		}
		addr := vaddr
		if obj.typ == elf.ET_DYN {
			addr += obj.base
		}
		r.logger.Debug("symbol resolved",
			zap.String("symbol", name),
			zap.String("object", obj.path),
			zap.Uint64("addr", addr),
		)
		return uintptr(addr), true
	}
	return 0, false
}

// loadObjects rebuilds the object list from /proc/self/maps, keeping parsed
// symbol tables for objects that were already known.
func (r *Resolver) loadObjects() error {
	f, err := os.Open("/proc/self/maps")
	if err != nil {
		return fmt.Errorf("open maps: %w", err)
	}
	defer f.Close()

	known := make(map[string]*object, len(r.objects))
	for _, obj := range r.objects {
		known[obj.path] = obj
	}

	// Lowest (start - offset) per file approximates the load bias.
	bases := make(map[string]uint64)
	var order []string

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		start, offset, path, ok := parseMapsLine(scanner.Text())
		if !ok {
			continue
		}
		base := start - offset
		if prev, seen := bases[path]; !seen || base < prev {
			if !seen {
				order = append(order, path)
			}
			bases[path] = base
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan maps: %w", err)
	}

	objects := make([]*object, 0, len(order))
	for _, path := range order {
		if obj, ok := known[path]; ok {
			obj.base = bases[path]
			objects = append(objects, obj)
			continue
		}
		typ, ok := elfType(path)
		if !ok {
			continue
		}
		objects = append(objects, &object{
			path: path,
			base: bases[path],
			typ:  typ,
		})
	}

	r.objects = objects
	r.loaded = true
	return nil
}

// parseMapsLine extracts the start address, file offset and backing path of
// an executable file-backed mapping. Format:
// start-end perms offset dev inode pathname
func parseMapsLine(line string) (start, offset uint64, path string, ok bool) {
	fields := strings.Fields(line)
	if len(fields) < 6 {
		return 0, 0, "", false
	}
	if len(fields[1]) < 3 || fields[1][2] != 'x' {
		return 0, 0, "", false
	}
	path = fields[5]
	if !strings.HasPrefix(path, "/") {
		// Skip [vdso], [stack], anonymous and deleted pseudo-entries.
		return 0, 0, "", false
	}

	addrs := strings.SplitN(fields[0], "-", 2)
	if len(addrs) != 2 {
		return 0, 0, "", false
	}
	start, err := strconv.ParseUint(addrs[0], 16, 64)
	if err != nil {
		return 0, 0, "", false
	}
	offset, err = strconv.ParseUint(fields[2], 16, 64)
	if err != nil {
		return 0, 0, "", false
	}
	return start, offset, path, true
}

// elfType opens the file just far enough to read its header type.
func elfType(path string) (elf.Type, bool) {
	f, err := elf.Open(path)
	if err != nil {
		return elf.ET_NONE, false
	}
	defer f.Close()
	return f.Type, true
}

// loadSymbols reads the defined function symbols of an ELF object. Both
// .dynsym and .symtab are searched; dynamic symbols win on conflict since
// those are what the dynamic linker binds.
func loadSymbols(path string, logger *zap.Logger) map[string]uint64 {
	f, err := elf.Open(path)
	if err != nil {
		logger.Debug("elf open failed", zap.String("path", path), zap.Error(err))
		return map[string]uint64{}
	}
	defer f.Close()

	out := make(map[string]uint64)

	add := func(syms []elf.Symbol, overwrite bool) {
		for _, s := range syms {
			if s.Value == 0 || s.Name == "" {
				continue
			}
			if elf.ST_TYPE(s.Info) != elf.STT_FUNC {
				continue
			}
			if s.Section == elf.SHN_UNDEF {
				continue
			}
			if _, exists := out[s.Name]; exists && !overwrite {
				continue
			}
			out[s.Name] = s.Value
		}
	}

	if syms, err := f.DynamicSymbols(); err == nil {
		add(syms, true)
	}
	if syms, err := f.Symbols(); err == nil {
		add(syms, false)
	}

	return out
}
