// Package planner computes invite plans. It is pure and does no I/O.
// Randomized picks use an unbiased shuffle; uniformity matters,
// determinism does not.
package planner

import (
	"fmt"
	"math/rand/v2"

	"homieplanner/internal/domain"
)

// InitialSelection splits a candidate pool into immediate invites and an
// ordered backup pool according to the event's invite policy.
//
//   - exact: immediate is the preferred set verbatim and the backup pool is
//     empty. The caller is responsible for capacity matching the preferred
//     count; no reconciliation happens here.
//   - prioritized: preferred ids first (truncated to maxCount), then a
//     uniformly random fill from the rest of the pool up to maxCount. The
//     backup pool is the remainder, randomly ordered.
//   - max_only: a uniformly random maxCount pick from the pool; the backup
//     pool is the remainder, randomly ordered.
func InitialSelection(policy domain.InvitePolicy, maxCount int, pool, preferred []string) (domain.InvitePlan, error) {
	if maxCount < 0 {
		return domain.InvitePlan{}, fmt.Errorf("%w: negative capacity", domain.ErrInvalidInput)
	}

	switch policy {
	case domain.PolicyExact:
		return domain.InvitePlan{
			Immediate: append([]string(nil), preferred...),
			FollowUp:  []string{},
			Excluded:  []string{},
		}, nil

	case domain.PolicyPrioritized:
		immediate := append([]string(nil), preferred...)
		if len(immediate) > maxCount {
			immediate = immediate[:maxCount]
		}
		rest := subtract(pool, immediate)
		shuffle(rest)
		for len(immediate) < maxCount && len(rest) > 0 {
			immediate = append(immediate, rest[0])
			rest = rest[1:]
		}
		return domain.InvitePlan{
			Immediate: immediate,
			FollowUp:  rest,
			Excluded:  []string{},
		}, nil

	case domain.PolicyMaxOnly:
		shuffled := append([]string(nil), pool...)
		shuffle(shuffled)
		cut := maxCount
		if cut > len(shuffled) {
			cut = len(shuffled)
		}
		return domain.InvitePlan{
			Immediate: shuffled[:cut],
			FollowUp:  shuffled[cut:],
			Excluded:  []string{},
		}, nil
	}

	return domain.InvitePlan{}, fmt.Errorf("%w: invite policy %q", domain.ErrInvalidInput, policy)
}

func shuffle(ids []string) {
	rand.Shuffle(len(ids), func(i, j int) {
		ids[i], ids[j] = ids[j], ids[i]
	})
}

// subtract returns the ids of a that are not in b, preserving a's order.
func subtract(a, b []string) []string {
	drop := make(map[string]struct{}, len(b))
	for _, id := range b {
		drop[id] = struct{}{}
	}
	out := make([]string, 0, len(a))
	for _, id := range a {
		if _, ok := drop[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}
