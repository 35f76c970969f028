package memory

import (
	"github.com/tinoosan/tesouraria/internal/service/auth"
	"github.com/tinoosan/tesouraria/internal/service/contributor"
	"github.com/tinoosan/tesouraria/internal/service/entry"
	"github.com/tinoosan/tesouraria/internal/service/report"
)

// Compile-time interface assertions documenting which interfaces Store satisfies.
var (
	_ contributor.Repo   = (*Store)(nil)
	_ contributor.Writer = (*Store)(nil)
	_ entry.Repo         = (*Store)(nil)
	_ entry.Writer       = (*Store)(nil)
	_ report.Repo        = (*Store)(nil)
	_ report.Writer      = (*Store)(nil)
	_ auth.Repo          = (*Store)(nil)
	_ auth.Writer        = (*Store)(nil)
)
