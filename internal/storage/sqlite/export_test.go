// ABOUTME: Tests for report snapshot assembly
// ABOUTME: Verifies limits, ordering and global security events
package sqlite

import (
	"testing"

	"github.com/sisyph/mcoder/internal/errs"
	"github.com/sisyph/mcoder/internal/models"
)

func TestSnapshot(t *testing.T) {
	store := newTestStorage(t)
	id := mustCreateProject(t, store, "report")
	other := mustCreateProject(t, store, "other")

	for _, c := range []string{"one", "two", "three"} {
		if _, err := store.AddMessage(id, "user", c, "", 0); err != nil {
			t.Fatalf("AddMessage() error = %v", err)
		}
	}
	if _, err := store.AddMessage(other, "user", "elsewhere", "", 0); err != nil {
		t.Fatalf("AddMessage() error = %v", err)
	}
	if _, err := store.SetModuleStatus(id, "core", models.ModuleDone, ""); err != nil {
		t.Fatalf("SetModuleStatus() error = %v", err)
	}

	snap, err := store.Snapshot(id, ReportLimits{Messages: 2, SecurityEvents: 3})
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}

	if snap.Project.ID != id || snap.Version != ReportVersion {
		t.Errorf("header = %+v", snap.Project)
	}
	if len(snap.Messages) != 2 || snap.Messages[0].Content != "three" {
		t.Errorf("messages = %+v, want two newest", snap.Messages)
	}
	// six ledger rows exist across both projects; the cap applies
	if len(snap.SecurityEvents) != 3 {
		t.Errorf("security events = %d, want 3", len(snap.SecurityEvents))
	}
	if snap.BuildProgress != 100 {
		t.Errorf("BuildProgress = %v, want 100", snap.BuildProgress)
	}
	if snap.Files == nil {
		t.Error("Files should be an empty slice")
	}
}

func TestSnapshot_MissingProject(t *testing.T) {
	store := newTestStorage(t)
	if _, err := store.Snapshot(77, DefaultReportLimits); !errs.Is(err, errs.CodeNotFound) {
		t.Errorf("Snapshot() error = %v, want NOT_FOUND", err)
	}
}
