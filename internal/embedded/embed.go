// Package embedded carries the files compiled into the worldstat binary.
package embedded

import (
	"embed"
)

// FS embeds the built-in dataset definitions.
//
//go:embed dataset/*.yaml
var FS embed.FS

// DefaultDataset is the path of the built-in dataset inside FS.
const DefaultDataset = "dataset/default.yaml"
