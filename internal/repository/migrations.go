package repository

import "embed"

// MigrationsFS содержит SQL-миграции схемы. Каталог внутри FS - MigrationsPath.
//
//go:embed migrations/*.sql
var MigrationsFS embed.FS

// MigrationsPath - путь к миграциям внутри MigrationsFS.
const MigrationsPath = "migrations"
