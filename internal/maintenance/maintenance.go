// Package maintenance provides tools for cleaning the audit database.
package maintenance

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/laval/internal/config"
)

// Pruner deletes audit records older than a cutoff.
type Pruner interface {
	PruneLookups(cutoff time.Time) (int64, error)
}

// ErrNoDatabase is returned when pruning is requested without an audit database.
var ErrNoDatabase = errors.New("audit database is not configured, set --db-path")

// Run checks if any maintenance flags are set and executes the corresponding tasks.
// done reports that a maintenance task was requested and the program should exit;
// err is set when that task failed.
func Run(cfg *config.Config, store Pruner) (done bool, err error) {
	if cfg.Storage.PruneOlder <= 0 {
		return false, nil
	}

	if store == nil {
		return true, ErrNoDatabase
	}

	cutoff := time.Now().Add(-cfg.Storage.PruneOlder)
	log.Info().Time("cutoff", cutoff).Msg("Pruning old lookup records...")

	count, err := store.PruneLookups(cutoff)
	if err != nil {
		return true, fmt.Errorf("prune lookups: %w", err)
	}

	log.Info().Int64("deleted", count).Msg("Prune finished")
	return true, nil
}
