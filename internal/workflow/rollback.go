package workflow

import "context"

// rollback compensates completed steps, most recently completed first.
//
// Steps without a Rollback are skipped. A failing rollback is logged and
// emitted as step.rollback_failed; it neither stops the remaining
// rollbacks nor changes the workflow's recorded error.
//
// Rollbacks run on a context detached from cancellation so a propagated
// Cancel does not also abort the compensations.
func (o *Orchestrator) rollback(ctx context.Context, id string, def Definition, completed []int) {
	if len(completed) == 0 {
		return
	}
	rctx := context.WithoutCancel(ctx)

	o.logger.Info("rolling back completed steps", "workflow_id", id, "count", len(completed))
	for i := len(completed) - 1; i >= 0; i-- {
		idx := completed[i]
		step := def.Steps[idx]
		if step.Rollback == nil {
			continue
		}

		if err := safeCall(rctx, step.Rollback); err != nil {
			msg := errorMessage(err)
			o.logger.Error("rollback failed",
				"workflow_id", id,
				"step", step.ID,
				"index", idx,
				"error", msg,
			)
			ev := o.stepEvent(EventStepRollbackFailed, id, def, idx)
			ev.Error = msg
			o.emit(rctx, ev)
			continue
		}

		o.transition(id, func(wf *Workflow) {
			wf.Steps[idx].RolledBack = true
		})
		o.emit(rctx, o.stepEvent(EventStepRolledBack, id, def, idx))
	}
}
