package domain

import "context"

// InviteReply is the classification of an invitee's response.
type InviteReply string

const (
	InviteReplyAccepted InviteReply = "accepted"
	InviteReplyDeclined InviteReply = "declined"
	InviteReplyUnknown  InviteReply = "unknown"
)

// DraftReply is the classification of a creator's response while a draft
// awaits confirmation.
type DraftReply string

const (
	DraftReplyConfirm DraftReply = "confirm"
	DraftReplyEdit    DraftReply = "edit"
	DraftReplyCancel  DraftReply = "cancel"
	DraftReplyUnknown DraftReply = "unknown"
)

// DecisionClassifier is the NLU collaborator. It is treated as unreliable:
// implementations map parse failures and service errors to the unknown
// variant (or an empty patch) rather than surfacing partial data.
type DecisionClassifier interface {
	// ClassifyInviteReply decides whether an invitee's text is a yes, a
	// no, or neither.
	ClassifyInviteReply(ctx context.Context, invitation, text string) (InviteReply, error)
	// ClassifyDraftReply decides whether a creator's text confirms,
	// edits, or cancels the pending draft.
	ClassifyDraftReply(ctx context.Context, preview, text string) (DraftReply, error)
	// ExtractPlanPatch turns a creator's edit text into a PlanPatch over
	// the known homie names.
	ExtractPlanPatch(ctx context.Context, knownNames []string, text string) (PlanPatch, error)
}
