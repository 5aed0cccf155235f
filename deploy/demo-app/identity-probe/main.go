// Copyright 2024-2026 Madhukar Beema, Distinguished Engineer. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

// identity-probe reports what libc-level identity calls return inside this
// process. Run it plain to see the real values, then run it with the veil
// shared library interposed to watch the masked values appear:
//
//	LD_PRELOAD=./libveil.so ./identity-probe
package main

import (
	"encoding/json"
	"log"
	"net/http"
	"os"

	"golang.org/x/sys/unix"
)

func main() {
	http.HandleFunc("/api/health", healthHandler)
	http.HandleFunc("/api/identity", identityHandler)

	port := getenv("PORT", "3002")
	log.Printf("identity-probe listening on :%s", port)
	log.Fatal(http.ListenAndServe(":"+port, nil))
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"service": "identity-probe",
	})
}

func identityHandler(w http.ResponseWriter, r *http.Request) {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	resp := map[string]interface{}{
		"uid":      os.Getuid(),
		"gid":      os.Getgid(),
		"hostname": hostname,
	}

	var uts unix.Utsname
	if err := unix.Uname(&uts); err == nil {
		resp["sysname"] = cstr(uts.Sysname[:])
		resp["nodename"] = cstr(uts.Nodename[:])
		resp["release"] = cstr(uts.Release[:])
		resp["version"] = cstr(uts.Version[:])
		resp["machine"] = cstr(uts.Machine[:])
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func cstr(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
