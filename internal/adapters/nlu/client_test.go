package nlu

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"homieplanner/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubServer(t *testing.T, status int, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		w.WriteHeader(status)
		fmt.Fprintf(w, `{"choices":[{"message":{"content":%q}}]}`, content)
	}))
}

func TestClassifyInviteReply(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		content string
		want    domain.InviteReply
		wantErr bool
	}{
		{
			name:    "clear yes",
			status:  http.StatusOK,
			content: `{"decision":"accepted"}`,
			want:    domain.InviteReplyAccepted,
		},
		{
			name:    "clear no",
			status:  http.StatusOK,
			content: `{"decision":"declined"}`,
			want:    domain.InviteReplyDeclined,
		},
		{
			name:    "off-whitelist decision maps to unknown",
			status:  http.StatusOK,
			content: `{"decision":"maybe"}`,
			want:    domain.InviteReplyUnknown,
		},
		{
			name:    "garbage content maps to unknown with error",
			status:  http.StatusOK,
			content: `sure thing boss`,
			want:    domain.InviteReplyUnknown,
			wantErr: true,
		},
		{
			name:    "server error maps to unknown with error",
			status:  http.StatusInternalServerError,
			content: `{}`,
			want:    domain.InviteReplyUnknown,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := stubServer(t, tt.status, tt.content)
			defer srv.Close()

			c := NewClient(Config{BaseURL: srv.URL, Model: "test"})
			got, err := c.ClassifyInviteReply(context.Background(), "pizza friday", "yes")
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifyDraftReply(t *testing.T) {
	tests := []struct {
		content string
		want    domain.DraftReply
	}{
		{`{"decision":"confirm"}`, domain.DraftReplyConfirm},
		{`{"decision":"edit"}`, domain.DraftReplyEdit},
		{`{"decision":"cancel"}`, domain.DraftReplyCancel},
		{`{"decision":"confirm_maybe"}`, domain.DraftReplyUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.content, func(t *testing.T) {
			srv := stubServer(t, http.StatusOK, tt.content)
			defer srv.Close()

			c := NewClient(Config{BaseURL: srv.URL, Model: "test"})
			got, err := c.ClassifyDraftReply(context.Background(), "plan preview", "ok")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractPlanPatch(t *testing.T) {
	srv := stubServer(t, http.StatusOK,
		`{"bans":["Dave"],"swaps":[{"in":"Ana","out":"Ben"}],"backup_order":["Col"]}`)
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, Model: "test"})
	patch, err := c.ExtractPlanPatch(context.Background(), []string{"Ana", "Ben", "Col", "Dave"}, "swap ana in for ben, and never invite dave")
	require.NoError(t, err)
	assert.Equal(t, []string{"Dave"}, patch.Bans)
	require.Len(t, patch.Swaps, 1)
	assert.Equal(t, "Ana", patch.Swaps[0].In)
	assert.Equal(t, "Ben", patch.Swaps[0].Out)
	assert.Equal(t, []string{"Col"}, patch.BackupOrder)
}

func TestExtractPlanPatch_BadJSONIsEmptyPatch(t *testing.T) {
	srv := stubServer(t, http.StatusOK, `not json at all`)
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, Model: "test"})
	patch, err := c.ExtractPlanPatch(context.Background(), nil, "whatever")
	require.Error(t, err)
	assert.True(t, patch.Empty())
}
