package engine

import (
	"context"
	"fmt"

	"github.com/cloudx-io/opentender/core"
)

// EvaluateBid scores a bid and stores the evaluation, replacing any earlier one.
// Bids that are already awarded or rejected keep their final evaluation.
func (e *Engine) EvaluateBid(ctx context.Context, bidID, evaluatorID string, scores core.Subscores, notes string) (core.Evaluation, error) {
	ev, err := e.evaluateBid(ctx, bidID, evaluatorID, scores, notes)
	e.metrics.evaluation(outcomeOf(err))
	if err != nil {
		return core.Evaluation{}, err
	}

	e.logger.InfoContext(ctx, "bid evaluated",
		"bid_id", bidID, "evaluator_id", evaluatorID, "overall_score", ev.OverallScore)
	return ev, nil
}

func (e *Engine) evaluateBid(ctx context.Context, bidID, evaluatorID string, scores core.Subscores, notes string) (core.Evaluation, error) {
	if evaluatorID == "" {
		return core.Evaluation{}, fmt.Errorf("%w: evaluator is required", core.ErrInvalidInput)
	}

	bid, err := e.store.LoadBid(ctx, bidID)
	if err != nil {
		return core.Evaluation{}, err
	}
	if bid.Status.IsTerminal() {
		return core.Evaluation{}, fmt.Errorf("%w: bid %s is %s and can no longer be evaluated", core.ErrIllegalTransition, bidID, bid.Status)
	}

	ev, err := e.scorer.Evaluate(bidID, evaluatorID, scores, notes, e.clock.Now())
	if err != nil {
		return core.Evaluation{}, err
	}

	bid.Evaluation = &ev
	if err := e.store.SaveBid(ctx, *bid); err != nil {
		return core.Evaluation{}, err
	}
	return ev, nil
}

// RankTender orders the tender's bids by opts.
func (e *Engine) RankTender(ctx context.Context, tenderID string, opts core.RankOptions) ([]core.Bid, error) {
	bids, _, err := e.loadTenderBids(ctx, tenderID)
	if err != nil {
		return nil, err
	}
	return core.RankBids(bids, opts)
}

// CompareTender builds the side-by-side comparison of the selected bids,
// flagging each against the tender budget.
func (e *Engine) CompareTender(ctx context.Context, tenderID string, selected []string) (*core.ComparisonTable, error) {
	bids, tender, err := e.loadTenderBids(ctx, tenderID)
	if err != nil {
		return nil, err
	}
	return core.CompareBids(bids, selected, tender.Budget)
}

// ScreenBudget splits the tender's bids into those within budget and the IDs
// of those over it. Every bid is within budget when the tender has none.
func (e *Engine) ScreenBudget(ctx context.Context, tenderID string) ([]core.Bid, []string, error) {
	bids, tender, err := e.loadTenderBids(ctx, tenderID)
	if err != nil {
		return nil, nil, err
	}
	within, over := core.PartitionByBudget(bids, tender.Budget)
	return within, over, nil
}

func (e *Engine) loadTenderBids(ctx context.Context, tenderID string) ([]core.Bid, *core.Tender, error) {
	tender, err := e.store.LoadTender(ctx, tenderID)
	if err != nil {
		return nil, nil, err
	}
	bids, err := e.store.ListBids(ctx, tenderID)
	if err != nil {
		return nil, nil, err
	}
	return bids, tender, nil
}
