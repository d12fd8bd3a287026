package sqldb

// Registered database/sql drivers.
import (
	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// goDrivers maps the driver names reported by dburl, which follow the
// most common Go driver for each scheme, to the drivers registered above.
var goDrivers = map[string]string{
	"sqlite3":       "sqlite",
	"moderncsqlite": "sqlite",
	"sqlite":        "sqlite",
	"postgres":      "pgx",
	"pgx":           "pgx",
	"mysql":         "mysql",
	"sqlserver":     "sqlserver",
	"mssql":         "sqlserver",
}
