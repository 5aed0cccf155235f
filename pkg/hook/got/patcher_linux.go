// Copyright 2024-2026 Madhukar Beema, Distinguished Engineer. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

//go:build linux

package got

import (
	"bufio"
	"debug/elf"
	"encoding/binary"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"unsafe"

	"github.com/mbeema/veil/pkg/hook"
	"go.uber.org/zap"
)

// Patcher redirects calls by rewriting GOT relocation slots. For every
// loaded ELF object whose dynamic relocations reference the target symbol
// (jump-slot or glob-dat), the slot is flipped to the replacement address;
// Disengage writes the previous values back. Pages holding patched slots are
// made writable for the duration of the write and restored to read-only,
// which also covers full-RELRO binaries.
type Patcher struct {
	logger *zap.Logger

	mu      sync.Mutex
	patched map[string][]slot // symbol name -> rewritten slots
}

// slot is one rewritten GOT entry.
type slot struct {
	addr uintptr
	prev uintptr
}

var _ hook.Mechanism = (*Patcher)(nil)

// NewPatcher creates a GOT patcher for the current process.
func NewPatcher(logger *zap.Logger) *Patcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Patcher{
		logger:  logger,
		patched: make(map[string][]slot),
	}
}

func (p *Patcher) Supported() bool {
	return Detect().Available
}

func (p *Patcher) Name() string { return "got" }

// NativeTargets is true: a patched slot is jumped to by plain C calls, so
// replacements must be C-callable addresses, never Go function values.
func (p *Patcher) NativeTargets() bool { return true }

// Engage rewrites every GOT slot bound to name so future dynamic calls reach
// replacement. Fails without side effects if no slot references the symbol;
// a partial failure mid-way rolls the already-flipped slots back.
func (p *Patcher) Engage(name string, original, replacement uintptr) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.patched[name]; exists {
		return fmt.Errorf("%s already patched", name)
	}

	addrs, err := gotSlots(name)
	if err != nil {
		return err
	}
	if len(addrs) == 0 {
		return fmt.Errorf("no GOT slot references %q in any loaded object: %w", name, hook.ErrFunctionNotFound)
	}

	var done []slot
	for _, addr := range addrs {
		prev, err := writeSlot(addr, replacement)
		if err != nil {
			for _, s := range done {
				writeSlot(s.addr, s.prev) // best effort rollback
			}
			return fmt.Errorf("patch slot %#x: %w", addr, err)
		}
		done = append(done, slot{addr: addr, prev: prev})
	}

	p.patched[name] = done
	p.logger.Debug("got slots patched",
		zap.String("function", name),
		zap.Int("slots", len(done)),
		zap.Uint64("replacement", uint64(replacement)),
	)
	return nil
}

// Disengage restores the previous slot values for name.
func (p *Patcher) Disengage(name string, _ uintptr) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	slots, exists := p.patched[name]
	if !exists {
		return fmt.Errorf("%s not patched", name)
	}

	var firstErr error
	for _, s := range slots {
		if _, err := writeSlot(s.addr, s.prev); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("restore slot %#x: %w", s.addr, err)
		}
	}
	delete(p.patched, name)
	return firstErr
}

// writeSlot stores value at addr, returning what was there before. The
// containing page is temporarily remapped read-write.
func writeSlot(addr uintptr, value uintptr) (prev uintptr, err error) {
	page, err := makeWritable(addr)
	if err != nil {
		return 0, err
	}
	defer restoreReadOnly(page)

	ptr := (*uintptr)(unsafe.Pointer(addr))
	prev = *ptr
	*ptr = value
	return prev, nil
}

// gotSlots finds the runtime addresses of every GOT slot bound to the named
// symbol across all loaded objects.
func gotSlots(name string) ([]uintptr, error) {
	objs, err := loadedObjects()
	if err != nil {
		return nil, err
	}

	var addrs []uintptr
	for _, obj := range objs {
		offs, err := relocationOffsets(obj.path, name)
		if err != nil {
			continue // not an ELF we can read, skip
		}
		for _, off := range offs {
			addr := off
			if obj.dyn {
				addr += obj.base
			}
			addrs = append(addrs, uintptr(addr))
		}
	}
	return addrs, nil
}

// mappedObject is a loaded ELF file and its load bias.
type mappedObject struct {
	path string
	base uint64
	dyn  bool
}

// loadedObjects lists the file-backed objects mapped into this process.
func loadedObjects() ([]*mappedObject, error) {
	f, err := os.Open("/proc/self/maps")
	if err != nil {
		return nil, fmt.Errorf("open maps: %w", err)
	}
	defer f.Close()

	bases := make(map[string]uint64)
	var order []string

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 6 || !strings.HasPrefix(fields[5], "/") {
			continue
		}
		addrs := strings.SplitN(fields[0], "-", 2)
		if len(addrs) != 2 {
			continue
		}
		start, err := strconv.ParseUint(addrs[0], 16, 64)
		if err != nil {
			continue
		}
		offset, err := strconv.ParseUint(fields[2], 16, 64)
		if err != nil {
			continue
		}
		base := start - offset
		if prev, seen := bases[fields[5]]; !seen || base < prev {
			if !seen {
				order = append(order, fields[5])
			}
			bases[fields[5]] = base
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan maps: %w", err)
	}

	var objs []*mappedObject
	for _, path := range order {
		ef, err := elf.Open(path)
		if err != nil {
			continue
		}
		objs = append(objs, &mappedObject{
			path: path,
			base: bases[path],
			dyn:  ef.Type == elf.ET_DYN,
		})
		ef.Close()
	}
	return objs, nil
}

// relocationOffsets returns the virtual offsets of GOT slots in the object's
// .rela.plt / .rela.dyn sections that bind the named symbol.
func relocationOffsets(path, name string) ([]uint64, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dynSyms, err := f.DynamicSymbols()
	if err != nil {
		return nil, err
	}

	var offs []uint64
	for _, secName := range []string{".rela.plt", ".rela.dyn"} {
		sec := f.Section(secName)
		if sec == nil || sec.Type != elf.SHT_RELA {
			continue
		}
		data, err := sec.Data()
		if err != nil {
			continue
		}

		const relaSize = 24 // Elf64_Rela
		for i := 0; i+relaSize <= len(data); i += relaSize {
			off := binary.LittleEndian.Uint64(data[i : i+8])
			info := binary.LittleEndian.Uint64(data[i+8 : i+16])
			symIdx := uint32(info >> 32)
			rtype := uint32(info)

			if !slotRelocation(f.Machine, rtype) {
				continue
			}
			// Dynamic symbol index 0 is the null entry; DynamicSymbols
			// omits it, so index i maps to dynSyms[i-1].
			if symIdx == 0 || int(symIdx) > len(dynSyms) {
				continue
			}
			if dynSyms[symIdx-1].Name != name {
				continue
			}
			offs = append(offs, off)
		}
	}
	return offs, nil
}

// slotRelocation reports whether the relocation type stores a plain function
// address in the GOT (safe to flip at runtime).
func slotRelocation(machine elf.Machine, rtype uint32) bool {
	switch machine {
	case elf.EM_X86_64:
		return rtype == uint32(elf.R_X86_64_JMP_SLOT) || rtype == uint32(elf.R_X86_64_GLOB_DAT)
	case elf.EM_AARCH64:
		return rtype == uint32(elf.R_AARCH64_JUMP_SLOT) || rtype == uint32(elf.R_AARCH64_GLOB_DAT)
	default:
		return false
	}
}
