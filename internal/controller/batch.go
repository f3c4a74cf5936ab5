// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package controller

import (
	"context"
	"fmt"
	"io"

	"github.com/pdiddy/rdfcsv/pkg/types"
)

// BatchResult holds the outcome of a batch conversion run.
type BatchResult struct {
	Succeeded int
	Failed    int
	Outcomes  []Outcome
}

// Total returns the number of inputs processed.
func (r BatchResult) Total() int {
	return r.Succeeded + r.Failed
}

// HasFailures reports whether any input failed.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// SubmitAll converts reqs one after another, continuing after individual
// failures, and writes a summary to w. Inputs not yet started when ctx ends
// are counted as failed.
func (c *Controller) SubmitAll(ctx context.Context, reqs []types.ConversionRequest, w io.Writer) BatchResult {
	var result BatchResult
	for _, req := range reqs {
		var out Outcome
		if err := ctx.Err(); err != nil {
			out = Outcome{State: types.StateCanceled, Level: LevelError, Err: err}
		} else {
			out = c.Submit(ctx, req)
		}
		if out.Level == LevelSuccess {
			result.Succeeded++
		} else {
			result.Failed++
		}
		result.Outcomes = append(result.Outcomes, out)
	}
	if len(reqs) > 1 {
		fmt.Fprintf(w, "\nBatch summary: %d converted, %d failed (total: %d)\n",
			result.Succeeded, result.Failed, result.Total())
	}
	return result
}
