// Package db selects the embedding store driver from the runtime profile.
package db

import (
	"github.com/pkg/errors"

	"github.com/pawmatch/pawmatch/internal/profile"
	"github.com/pawmatch/pawmatch/store"
	"github.com/pawmatch/pawmatch/store/db/postgres"
	"github.com/pawmatch/pawmatch/store/db/sqlite"
)

// NewDBDriver creates a database driver based on the profile. An empty
// driver name means persistence is disabled and nil is returned.
func NewDBDriver(p *profile.Profile) (store.Driver, error) {
	switch p.Driver {
	case "":
		return nil, nil
	case "sqlite":
		return sqlite.NewDB(p.DSN)
	case "postgres":
		return postgres.NewDB(p.DSN)
	default:
		return nil, errors.Errorf("unsupported database driver %q", p.Driver)
	}
}
