//go:build mage

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
)

// DemoDir is where the demo workspace is generated.
const DemoDir = "demo"

type Run mg.Namespace

// Generates a demo workspace in ./demo and batch renders it.
func (Run) Demo() error {
	mg.Deps(Build.Binary)
	fmt.Println("Rendering demo workspace...")
	return runInDemo()
}

// Builds the binary and watches ./demo for new STL files.
func (Run) Watch() error {
	mg.Deps(Build.Binary)
	return runInDemo("-watch")
}

// runInDemo runs the binary from inside DemoDir so the workspace stays self contained.
func runInDemo(extra ...string) error {
	bin, err := filepath.Abs(filepath.Join("bin", binaryName))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(DemoDir, 0o755); err != nil {
		return err
	}
	args := append([]string{"-demo", "."}, extra...)
	_, err = executeCmd(bin, withArgs(args...), withDir(DemoDir), withStream())
	return err
}
