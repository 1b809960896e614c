package planner

import (
	"fmt"
	"strings"

	"homieplanner/internal/domain"
)

// resolvedPatch is a PlanPatch with every name mapped to a homie id.
type resolvedPatch struct {
	bans        []string
	unbans      []string
	add         []string
	remove      []string
	swaps       []domain.SwapPair
	backupOrder []string
	bumpOnAdd   bool
}

// ApplyEditPatch applies a creator's edit intents to a locked invite plan.
// names maps homie id to display name; patch fields reference display
// names, matched case-insensitively. The transform is atomic: any
// unresolvable name returns ErrUnknownHomie and the plan unchanged.
//
// The step order below is observable behavior under combined edits (a ban
// plus a reorder in one message, for example) and must not be rearranged:
//
//  1. resolve names (fail whole patch on any miss)
//  2. unbans    3. bans    4. strip excluded from both lists
//  5. removes   6. swaps (pairs touching excluded ids are skipped)
//  7. spill immediate overflow, tail-first, to the front of the backups
//  8. adds      9. backup reorder
//  10. dedup, re-strip excluded, promote backups until immediate is full
func ApplyEditPatch(plan domain.InvitePlan, patch domain.PlanPatch, names map[string]string, maxCount int) (domain.InvitePlan, error) {
	rp, err := resolve(patch, names)
	if err != nil {
		return plan, err
	}

	out := plan.Clone()

	// Step 2: unbans.
	out.Excluded = subtract(out.Excluded, rp.unbans)

	// Step 3: bans. Sticky until explicitly unbanned.
	for _, id := range rp.bans {
		if !contains(out.Excluded, id) {
			out.Excluded = append(out.Excluded, id)
		}
	}

	// Step 4: re-enforce exclusion before positional edits.
	out.Immediate = subtract(out.Immediate, out.Excluded)
	out.FollowUp = subtract(out.FollowUp, out.Excluded)

	// Step 5: removes are non-sticky drops from both lists.
	out.Immediate = subtract(out.Immediate, rp.remove)
	out.FollowUp = subtract(out.FollowUp, rp.remove)

	// Step 6: swaps. A pair referencing an id excluded by now is skipped
	// silently; that includes bans from earlier in this same patch.
	for _, sw := range rp.swaps {
		if contains(out.Excluded, sw.In) || contains(out.Excluded, sw.Out) {
			continue
		}
		out.Immediate = subtract(out.Immediate, []string{sw.In, sw.Out})
		out.FollowUp = subtract(out.FollowUp, []string{sw.In, sw.Out})
		out.Immediate = append([]string{sw.In}, out.Immediate...)
		out.FollowUp = append([]string{sw.Out}, out.FollowUp...)
	}

	// Step 7: spill overflow tail-first into the front of the backups.
	if len(out.Immediate) > maxCount {
		overflow := append([]string(nil), out.Immediate[maxCount:]...)
		out.Immediate = out.Immediate[:maxCount]
		out.FollowUp = append(overflow, out.FollowUp...)
	}

	// Step 8: adds.
	for _, id := range rp.add {
		if contains(out.Immediate, id) {
			continue
		}
		out.FollowUp = subtract(out.FollowUp, []string{id})
		switch {
		case len(out.Immediate) < maxCount:
			out.Immediate = append(out.Immediate, id)
		case rp.bumpOnAdd && len(out.Immediate) > 0:
			bumped := out.Immediate[len(out.Immediate)-1]
			out.Immediate = append(out.Immediate[:len(out.Immediate)-1], id)
			out.FollowUp = append([]string{bumped}, out.FollowUp...)
		default:
			out.FollowUp = append([]string{id}, out.FollowUp...)
		}
	}

	// Step 9: reorder the backups. Ids not currently in the backup pool
	// are ignored; unmentioned backups keep their relative order, after
	// the mentioned ones.
	if len(rp.backupOrder) > 0 {
		reordered := make([]string, 0, len(out.FollowUp))
		for _, id := range rp.backupOrder {
			if contains(out.FollowUp, id) && !contains(reordered, id) {
				reordered = append(reordered, id)
			}
		}
		for _, id := range out.FollowUp {
			if !contains(reordered, id) {
				reordered = append(reordered, id)
			}
		}
		out.FollowUp = reordered
	}

	// Step 10: normalize and rebalance.
	out.Excluded = dedup(out.Excluded)
	out.Immediate = subtract(dedup(out.Immediate), out.Excluded)
	out.FollowUp = subtract(dedup(out.FollowUp), out.Excluded)
	out.FollowUp = subtract(out.FollowUp, out.Immediate)
	for len(out.Immediate) < maxCount && len(out.FollowUp) > 0 {
		out.Immediate = append(out.Immediate, out.FollowUp[0])
		out.FollowUp = out.FollowUp[1:]
	}

	return out, nil
}

func resolve(patch domain.PlanPatch, names map[string]string) (resolvedPatch, error) {
	byName := make(map[string]string, len(names))
	for id, name := range names {
		byName[strings.ToLower(strings.TrimSpace(name))] = id
	}
	one := func(name string) (string, error) {
		id, ok := byName[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return "", fmt.Errorf("%w: %q", domain.ErrUnknownHomie, name)
		}
		return id, nil
	}
	many := func(in []string) ([]string, error) {
		out := make([]string, 0, len(in))
		for _, name := range in {
			id, err := one(name)
			if err != nil {
				return nil, err
			}
			out = append(out, id)
		}
		return out, nil
	}

	var rp resolvedPatch
	var err error
	if rp.bans, err = many(patch.Bans); err != nil {
		return resolvedPatch{}, err
	}
	if rp.unbans, err = many(patch.Unbans); err != nil {
		return resolvedPatch{}, err
	}
	if rp.add, err = many(patch.Add); err != nil {
		return resolvedPatch{}, err
	}
	if rp.remove, err = many(patch.Remove); err != nil {
		return resolvedPatch{}, err
	}
	if rp.backupOrder, err = many(patch.BackupOrder); err != nil {
		return resolvedPatch{}, err
	}
	for _, sw := range patch.Swaps {
		in, err := one(sw.In)
		if err != nil {
			return resolvedPatch{}, err
		}
		out, err := one(sw.Out)
		if err != nil {
			return resolvedPatch{}, err
		}
		rp.swaps = append(rp.swaps, domain.SwapPair{In: in, Out: out})
	}
	rp.bumpOnAdd = patch.BumpOnAdd
	return rp, nil
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func dedup(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
