// migrations - SQL-миграции схемы хранилища, встроенные в бинарь.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
