//go:build !linux && !darwin

package main

import "os"

// loadFile reads the input file into memory. Platforms without an mmap
// path (see loader_unix.go) fall back to a plain read.
func loadFile(path string) ([]byte, func(), error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	return data, func() {}, nil
}
