//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Check runs the full test suite.
func Check() error {
	return sh.RunV("go", "test", "./...")
}

// Vet runs go vet across the module.
func Vet() error {
	return sh.RunV("go", "vet", "./...")
}

// All vets and tests the module, then builds the binary.
func All() error {
	mg.Deps(Vet, Check)
	return Build()
}
