// Package packs opens every unopened pack in the store, one at a time.
package packs

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dami4lola/Ea-script/internal/logging"
	"github.com/Dami4lola/Ea-script/internal/pacing"
	"github.com/Dami4lola/Ea-script/internal/surface"
)

// Gate is the readiness check run before opening.
type Gate interface {
	Require(op string, kinds ...surface.Kind) error
}

// Report counts what a run did.
type Report struct {
	Opened      int
	Distributed int
	// Total is the number of packs the store reported.
	Total int
}

// Opener drains the unopened pack queue.
type Opener struct {
	services surface.Services
	gate     Gate
	sleeper  pacing.Sleeper
	step     pacing.Range
	audit    *logging.AuditLogger
}

// NewOpener builds an Opener. A nil sleeper gets a randomly seeded Pacer and a
// zero step gets pacing.PackStep.
func NewOpener(services surface.Services, gate Gate, sleeper pacing.Sleeper, step pacing.Range) *Opener {
	if sleeper == nil {
		sleeper = pacing.NewRandom()
	}
	if step == (pacing.Range{}) {
		step = pacing.PackStep
	}
	return &Opener{services: services, gate: gate, sleeper: sleeper, step: step}
}

// SetAudit routes open and distribute commands to a scoped audit logger.
// Call it before the first OpenAll.
func (o *Opener) SetAudit(a *logging.AuditLogger) {
	o.audit = a
}

func (o *Opener) auditLog() *logging.AuditLogger {
	if o.audit != nil {
		return o.audit
	}
	return logging.Audit()
}

// OpenAll opens every pack in the order the store reports them. After each
// open it hands the contents to the distributor when the host provides one.
// A failed open ends the run; the report covers what happened before it.
func (o *Opener) OpenAll(ctx context.Context) (Report, error) {
	const op = "open packs"
	timer := logging.StartTimer(logging.CategoryPacks, "OpenAll")
	defer timer.Stop()

	var rep Report
	if err := o.gate.Require(op, surface.Store); err != nil {
		return rep, err
	}
	svc, ok := o.services.Store()
	if !ok {
		return rep, surface.StoreUnavailable(op, errors.New("store service missing"))
	}
	ps, ok, err := svc.PackStore(ctx)
	if err != nil {
		return rep, surface.StoreUnavailable(op, err)
	}
	if !ok {
		return rep, surface.StoreUnavailable(op, errors.New("pack store accessor missing"))
	}
	queue, ok, err := ps.UnopenedPacks(ctx)
	if err != nil {
		return rep, surface.StoreUnavailable(op, err)
	}
	if !ok {
		return rep, surface.StoreUnavailable(op, errors.New("unopened pack list missing"))
	}

	audit := o.auditLog()
	rep.Total = len(queue)
	logging.Packs("opening %d packs", rep.Total)

	for i, p := range queue {
		err := svc.OpenPack(ctx, p.ID)
		audit.PackOpen(p.ID, err)
		if err != nil {
			logging.PacksError("open pack %s (%d/%d): %v", p.ID, i+1, rep.Total, err)
			return rep, fmt.Errorf("open pack %s: %w", p.ID, err)
		}
		rep.Opened++
		if err := o.sleeper.Sleep(ctx, o.step); err != nil {
			return rep, err
		}

		if d, ok := svc.Distributor(); ok {
			err := d.SendAllToClubOrUnassigned(ctx)
			audit.PackDistribute(p.ID, err)
			if err != nil {
				logging.PacksError("distribute after pack %s: %v", p.ID, err)
			} else {
				rep.Distributed++
			}
		} else {
			logging.PacksDebug("no distributor, pack %s contents left in place", p.ID)
		}
		if err := o.sleeper.Sleep(ctx, o.step); err != nil {
			return rep, err
		}
	}

	logging.Packs("opened %d/%d packs, distributed %d", rep.Opened, rep.Total, rep.Distributed)
	return rep, nil
}
