package tui

import (
	"github.com/Warren2005/medical-microscopy/internal/core/ports/driving"
)

// SnapshotMsg carries a controller snapshot into the bubbletea event
// loop. The runner forwards these from its controller subscription.
type SnapshotMsg driving.Snapshot

// errMsg carries a failed controller call back into the update loop.
type errMsg struct {
	err error
}
