// Package assets embeds the files the binaries need at runtime: email templates,
// the common-passwords list and the SQL migrations.
package assets

import "embed"

//go:embed templates common-passwords.txt migrations
var FS embed.FS
