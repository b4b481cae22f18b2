// Package migrations provides embedded SQL migration files.
package migrations

import (
	_ "embed"
)

// KVSQL creates the session store schema. It is idempotent.
//
//go:embed sql/001_kv.sql
var KVSQL string
