// Copyright 2024-2026 Madhukar Beema, Distinguished Engineer. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

// Command libveil builds the foreign-callable shared library:
//
//	go build -buildmode=c-shared -o libveil.so ./cmd/libveil
//
// It exposes the hook system over a flat C ABI with integer result codes.
// The ABI is inherently ambient, so one process-wide System sits behind the
// exported functions; the Go packages underneath stay context-object based.
package main

/*
#include <stdint.h>
#include <stdbool.h>
#include <stddef.h>

// Handle identifying one installed hook. id and function_name together name
// the installation; a handle from a removed hook stays stale and is rejected.
typedef struct {
	uint32_t id;
	char function_name[256];
	bool is_valid;
} veil_hook_handle;

// Synthetic values for the configuration-driven installers. hostname doubles
// as the uname nodename.
typedef struct {
	uint32_t user_id;
	uint32_t group_id;
	char hostname[256];
	char system_name[256];
	char machine[256];
	char release[256];
	char version[512];
} veil_config_data;
*/
import "C"

import (
	"sync"
	"unsafe"

	"github.com/mbeema/veil/pkg/hook"
	"github.com/mbeema/veil/pkg/spoof"
	"github.com/mbeema/veil/pkg/veil"
)

var system = veil.New(veil.Options{})

func code(err error) C.int {
	if err == nil {
		return 0
	}
	return C.int(hook.ResultOf(err).Code())
}

func fillHandle(out *C.veil_hook_handle, h hook.Handle) {
	out.id = C.uint32_t(h.ID)
	name := h.Name
	if len(name) > len(out.function_name)-1 {
		name = name[:len(out.function_name)-1]
	}
	for i := 0; i < len(name); i++ {
		out.function_name[i] = C.char(name[i])
	}
	out.function_name[len(name)] = 0
	out.is_valid = C.bool(true)
}

func goHandle(h *C.veil_hook_handle) (hook.Handle, bool) {
	if h == nil || !bool(h.is_valid) {
		return hook.Handle{}, false
	}
	return hook.Handle{
		ID:   uint32(h.id),
		Name: C.GoString(&h.function_name[0]),
	}, true
}

func goValues(cfg *C.veil_config_data) spoof.Values {
	return spoof.Values{
		UID:      uint32(cfg.user_id),
		GID:      uint32(cfg.group_id),
		Hostname: C.GoString(&cfg.hostname[0]),
		Sysname:  C.GoString(&cfg.system_name[0]),
		Machine:  C.GoString(&cfg.machine[0]),
		Release:  C.GoString(&cfg.release[0]),
		Version:  C.GoString(&cfg.version[0]),
	}
}

//export veil_initialize
func veil_initialize() C.int {
	return code(system.Initialize())
}

//export veil_cleanup
func veil_cleanup() {
	system.Cleanup()
}

//export veil_install_hook
func veil_install_hook(name *C.char, replacement unsafe.Pointer, out *C.veil_hook_handle) C.int {
	if name == nil || replacement == nil || out == nil {
		return code(hook.ErrInvalidParameter)
	}
	h, err := system.InstallHook(C.GoString(name), uintptr(replacement))
	if err != nil {
		return code(err)
	}
	fillHandle(out, h)
	return 0
}

//export veil_remove_hook
func veil_remove_hook(h *C.veil_hook_handle) C.int {
	gh, ok := goHandle(h)
	if !ok {
		return code(hook.ErrInvalidParameter)
	}
	return code(system.RemoveHook(gh))
}

//export veil_get_original
func veil_get_original(h *C.veil_hook_handle) unsafe.Pointer {
	gh, ok := goHandle(h)
	if !ok {
		return nil
	}
	addr, ok := system.Original(gh)
	if !ok {
		return nil
	}
	return unsafe.Pointer(addr)
}

//export veil_is_hooked
func veil_is_hooked(name *C.char) C.bool {
	if name == nil {
		return C.bool(false)
	}
	return C.bool(system.IsHooked(C.GoString(name)))
}

//export veil_install_getuid_hook
func veil_install_getuid_hook(cfg *C.veil_config_data, out *C.veil_hook_handle) C.int {
	if cfg == nil || out == nil {
		return code(hook.ErrInvalidParameter)
	}
	h, err := system.InstallIdentityHook(goValues(cfg))
	if err != nil {
		return code(err)
	}
	fillHandle(out, h)
	return 0
}

//export veil_install_getgid_hook
func veil_install_getgid_hook(cfg *C.veil_config_data, out *C.veil_hook_handle) C.int {
	if cfg == nil || out == nil {
		return code(hook.ErrInvalidParameter)
	}
	h, err := system.InstallGroupHook(goValues(cfg))
	if err != nil {
		return code(err)
	}
	fillHandle(out, h)
	return 0
}

//export veil_install_gethostname_hook
func veil_install_gethostname_hook(cfg *C.veil_config_data, out *C.veil_hook_handle) C.int {
	if cfg == nil || out == nil {
		return code(hook.ErrInvalidParameter)
	}
	h, err := system.InstallHostnameHook(goValues(cfg))
	if err != nil {
		return code(err)
	}
	fillHandle(out, h)
	return 0
}

//export veil_install_uname_hook
func veil_install_uname_hook(cfg *C.veil_config_data, out *C.veil_hook_handle) C.int {
	if cfg == nil || out == nil {
		return code(hook.ErrInvalidParameter)
	}
	h, err := system.InstallSystemInfoHook(goValues(cfg))
	if err != nil {
		return code(err)
	}
	fillHandle(out, h)
	return 0
}

var (
	cVersion = C.CString(veil.Version)

	msgMu sync.Mutex
	msgs  = map[C.int]*C.char{}
)

// veil_error_message returns a static string; the cache leaks one allocation
// per distinct code for the life of the process.
//
//export veil_error_message
func veil_error_message(result C.int) *C.char {
	msgMu.Lock()
	defer msgMu.Unlock()
	if s, ok := msgs[result]; ok {
		return s
	}
	s := C.CString(veil.ResultMessage(int(result)))
	msgs[result] = s
	return s
}

//export veil_version
func veil_version() *C.char {
	return cVersion
}

//export veil_platform_supported
func veil_platform_supported() C.bool {
	return C.bool(veil.PlatformSupported())
}

//export veil_set_debug_logging
func veil_set_debug_logging(enabled C.bool) {
	system.SetDebugLogging(bool(enabled))
}

//export veil_active_hook_count
func veil_active_hook_count() C.uint32_t {
	return C.uint32_t(system.ActiveHookCount())
}

// veil_get_active_hooks packs consecutive NUL-terminated function names into
// buf and returns how many fit. Names that would overflow are dropped, never
// split.
//
//export veil_get_active_hooks
func veil_get_active_hooks(buf *C.char, size C.size_t) C.uint32_t {
	if buf == nil || size == 0 {
		return 0
	}
	dst := unsafe.Slice((*byte)(unsafe.Pointer(buf)), int(size))
	off, count := 0, 0
	for _, name := range system.ActiveHookNames() {
		if off+len(name)+1 > len(dst) {
			break
		}
		copy(dst[off:], name)
		off += len(name)
		dst[off] = 0
		off++
		count++
	}
	return C.uint32_t(count)
}

func main() {}
