package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/Bateristico/agent-architect/internal/models"
)

// Exit codes for different failure modes
const (
	ExitSuccess     = 0 // Level cleared
	ExitLevelFailed = 1 // Level ran but stayed at tier 1
	ExitError       = 2 // Configuration or runtime error
)

// LevelFailureError indicates that the level ran successfully but the
// configuration did not clear it.
type LevelFailureError struct {
	LevelID string
	Total   int
	Tier    models.Tier
}

func (e *LevelFailureError) Error() string {
	return fmt.Sprintf("level %s not cleared: total %d (tier %d)", e.LevelID, e.Total, e.Tier)
}

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)

		var levelErr *LevelFailureError
		if errors.As(err, &levelErr) {
			os.Exit(ExitLevelFailed)
		}

		// All other errors are configuration/runtime errors
		os.Exit(ExitError)
	}
}
