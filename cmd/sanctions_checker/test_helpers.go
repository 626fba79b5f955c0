package main

import (
	"os"
	"path/filepath"
	"testing"
)

// getBinaryPath returns the path to the sanctions_checker binary for testing
func getBinaryPath(t *testing.T) string {
	binaryName := "sanctions_checker"
	if testing.Short() {
		t.Skip("Skipping CLI tests in short mode")
	}

	binaryPath := filepath.Join("..", "..", "bin", binaryName)
	if _, err := os.Stat(binaryPath); os.IsNotExist(err) {
		t.Skipf("Binary not found at %s, build it first with 'make build'", binaryPath)
	}

	abs, err := filepath.Abs(binaryPath)
	if err != nil {
		t.Fatalf("resolve binary path: %v", err)
	}
	return abs
}
