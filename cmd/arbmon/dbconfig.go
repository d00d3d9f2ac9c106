package main

import "github.com/cryptoedge/arbmon/internal/infrastructure/db"

// dbConfigFromFlags builds a db.Config from the persistent --database-url
// flag, layered over the package's pool-size defaults.
func dbConfigFromFlags() db.Config {
	cfg := db.DefaultConfig()
	cfg.DSN = flagDatabaseURL
	return cfg
}
