package httpapi

import (
	"github.com/tinoosan/tesouraria/internal/storage/memory"
	"github.com/tinoosan/tesouraria/internal/storage/postgres"
	"github.com/tinoosan/tesouraria/internal/storage/sqlite"
)

// Compile-time assertions that every backend can answer /readyz.
var (
	_ ReadyChecker = (*memory.Store)(nil)
	_ ReadyChecker = (*postgres.Store)(nil)
	_ ReadyChecker = (*sqlite.Store)(nil)
)
