// Package migrations содержит SQL миграции схемы transactions для goose
package migrations

import "embed"

// FS встраивает *.sql файлы, чтобы бинарник не зависел от рабочей директории
//
//go:embed *.sql
var FS embed.FS
