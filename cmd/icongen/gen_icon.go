package main

// This file contains the go:generate command that builds the Windows
// application icon for icongen itself, using icongen.
// Run `go generate` in this directory to regenerate the icon resources.
//
// The icon is only rebuilt when ../../assets/logo.svg changes; the cached
// copy lives in ../../build/icongen.

//go:generate go run . --source ../../assets/logo.svg --descriptor versioninfo.json --out-dir ../../build/icongen --stamp-version git
