// Package assets holds the files shipped inside the binaries: SQL migrations and e-mail templates.
package assets

import "embed"

//go:embed migrations/*.sql templates/email/*
var FS embed.FS

const (
	MigrationsDir     = "migrations"
	EmailTemplatesDir = "templates/email"
)
