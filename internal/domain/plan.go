package domain

// InvitePlan is the computed split of a candidate pool: who gets invited
// now, who is held as backup (ordered), and who is never invited for the
// current draft. The three lists are disjoint.
type InvitePlan struct {
	Immediate []string `json:"immediate"`
	FollowUp  []string `json:"follow_up"`
	Excluded  []string `json:"excluded"`
}

// Clone returns a deep copy of the plan.
func (p InvitePlan) Clone() InvitePlan {
	return InvitePlan{
		Immediate: append([]string(nil), p.Immediate...),
		FollowUp:  append([]string(nil), p.FollowUp...),
		Excluded:  append([]string(nil), p.Excluded...),
	}
}

// SwapPair trades one homie into the immediate list for another.
type SwapPair struct {
	In  string `json:"in"`
	Out string `json:"out"`
}

// PlanPatch is a set of human edit intents against a locked invite plan,
// expressed by homie name. Application is atomic: one unresolvable name
// fails the whole patch.
type PlanPatch struct {
	Bans        []string   `json:"bans,omitempty"`
	Unbans      []string   `json:"unbans,omitempty"`
	Add         []string   `json:"add,omitempty"`
	Remove      []string   `json:"remove,omitempty"`
	Swaps       []SwapPair `json:"swaps,omitempty"`
	BackupOrder []string   `json:"backup_order,omitempty"`
	BumpOnAdd   bool       `json:"bump_on_add,omitempty"`
}

// Empty reports whether the patch carries no edit intent at all.
func (p PlanPatch) Empty() bool {
	return len(p.Bans) == 0 && len(p.Unbans) == 0 && len(p.Add) == 0 &&
		len(p.Remove) == 0 && len(p.Swaps) == 0 && len(p.BackupOrder) == 0
}
