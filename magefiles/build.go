//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

const binaryName = "batchrender"

type Build mg.Namespace

// Tidies the module and builds the batchrender binary into ./bin.
func (Build) Binary() error {
	if err := goModTidy(); err != nil {
		return err
	}
	_, err := executeCmd("go", withArgs("build", "-o", "bin/"+binaryName, "."), withStream())
	return err
}

// Runs the unit tests of every package.
func (Build) Test() error {
	_, err := executeCmd("go", withArgs("test", "./..."), withStream())
	return err
}
