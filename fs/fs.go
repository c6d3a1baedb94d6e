// Package appfs embeds the files the binaries ship with: SQL migrations, email templates and data files.
package appfs

import "embed"

//go:embed migrations/*.sql all:templates data
var FS embed.FS
