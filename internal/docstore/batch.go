// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package docstore

import (
	"context"
	"fmt"
	"log/slog"
)

// Group is a set of operations that must land together.
type Group []Op

// CommitGroups packs groups into batches of at most MaxBatchOps operations,
// never splitting a group across batches, and commits each batch. The
// returned slice holds one error per group: nil when the group's batch
// committed. A failed batch leaves all of its groups unwritten.
func CommitGroups(ctx context.Context, s Store, groups []Group) []error {
	errs := make([]error, len(groups))

	var batch []Op
	var members []int

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := s.Commit(ctx, batch); err != nil {
			slog.Error("batch commit failed", "ops", len(batch), "groups", len(members), "error", err)
			for _, i := range members {
				errs[i] = err
			}
		}
		batch = nil
		members = nil
	}

	for i, g := range groups {
		if len(g) > MaxBatchOps {
			errs[i] = fmt.Errorf("%w: group of %d ops", ErrBatchTooLarge, len(g))
			continue
		}
		if len(batch)+len(g) > MaxBatchOps {
			flush()
		}
		batch = append(batch, g...)
		members = append(members, i)
	}
	flush()

	return errs
}
