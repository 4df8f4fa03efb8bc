// Package configs provides embedded configuration templates.
//
// Templates are embedded at build time so they ship in every
// distribution. `theoindex config init` writes the library template to
// .theoindex.yaml; the configuration hierarchy it participates in is
// documented in internal/config.
package configs

import _ "embed"

// LibraryConfigTemplate is the commented template written by
// `theoindex config init`. Every setting is present but commented out,
// showing its default.
//
//go:embed library-config.example.yaml
var LibraryConfigTemplate string
