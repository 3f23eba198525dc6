package cmd

import (
	"context"

	"coachquote/internal/modules/ratetable"
)

type staticSnapshot struct {
	snap *ratetable.Snapshot
}

func (s staticSnapshot) Snapshot(context.Context) (*ratetable.Snapshot, error) {
	return s.snap, nil
}
