package core

import (
	"github.com/signalsfoundry/ride-network-sim/kb"
)

// DispatchReport summarises one dispatch pass.
type DispatchReport struct {
	Assignments []kb.Assignment
	// Released is the number of drivers returned to the pool before
	// assignment. Always zero unless ReleaseOnTick is set.
	Released int
	// Unassigned is the number of passengers no driver references after
	// the pass.
	Unassigned int
	// Available is the number of drivers left in the pool.
	Available int
}

// DispatchService matches passengers to drivers.
type DispatchService struct {
	KB *kb.KnowledgeBase

	// ReleaseOnTick returns every busy driver to the pool at the start of
	// each pass, as if all trips completed within a tick. Off by default:
	// drivers then leave the pool for good once assigned.
	ReleaseOnTick bool

	rand kb.Rand
}

func NewDispatchService(store *kb.KnowledgeBase, r kb.Rand) *DispatchService {
	return &DispatchService{
		KB:   store,
		rand: r,
	}
}

// Dispatch runs one assignment pass.
func (ds *DispatchService) Dispatch() DispatchReport {
	var report DispatchReport
	if ds.ReleaseOnTick {
		report.Released = ds.KB.ReleaseDrivers()
	}
	report.Assignments = ds.KB.AssignDrivers(ds.rand)
	report.Unassigned = len(ds.KB.UnassignedPassengers())
	report.Available = len(ds.KB.AvailableDrivers())
	return report
}
