package actions

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/Chative-core-poc-v1/actionserver/internal/action/model"
	"github.com/Chative-core-poc-v1/actionserver/internal/action/registry"
)

// Parallel cancellation policies.
const (
	CancelWaitAll   = "wait_all"
	CancelRemaining = "cancel_remaining"
)

// execParallel runs the child actions on the same tracker snapshot. Child
// replies are not dispatched; their slots merge in list order.
func (d *Deps) execParallel(ctx context.Context, inv *invocation) error {
	var cfg model.ParallelConfig
	if err := inv.load(ctx, &cfg); err != nil {
		return err
	}
	inv.dispatch = cfg.DispatchResponseText

	children := make([]registry.Action, 0, len(cfg.Actions))
	for _, name := range cfg.Actions {
		child, err := d.Registry.Instance(ctx, inv.bot, name)
		if err != nil {
			return err
		}
		children = append(children, child)
	}

	var (
		g      *errgroup.Group
		runCtx = ctx
	)
	if cfg.CancelPolicy == CancelRemaining {
		g, runCtx = errgroup.WithContext(ctx)
	} else {
		g = new(errgroup.Group)
	}

	results := make([]map[string]any, len(children))
	for i, child := range children {
		g.Go(func() error {
			slots, err := child.Execute(runCtx, model.Discard, inv.tracker, inv.domain)
			if err != nil {
				return fmt.Errorf("child action %s failed: %w", child.Name(), err)
			}
			results[i] = slots
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, slots := range results {
		for k, v := range slots {
			if k == model.ResponseSlot {
				continue
			}
			inv.slots[k] = v
		}
	}
	inv.extra("actions", cfg.Actions)
	inv.response = cfg.ResponseText
	return nil
}
