package migrations

import (
	"embed"
	"fmt"
	"io/fs"
)

//go:embed postgres/*.sql sqlite/*.sql
var Files embed.FS

// GetFS returns the migrations of one database driver
func GetFS(driver string) (fs.FS, error) {
	switch driver {
	case "postgres", "sqlite":
		return fs.Sub(Files, driver)
	default:
		return nil, fmt.Errorf("no migrations for driver %q", driver)
	}
}
