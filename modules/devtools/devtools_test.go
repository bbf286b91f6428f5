package devtools_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/zephyrtronium/hitori/command"
	"github.com/zephyrtronium/hitori/command/commandtest"
	"github.com/zephyrtronium/hitori/message"
	"github.com/zephyrtronium/hitori/modules/devtools"
	"github.com/zephyrtronium/hitori/perm"
)

func TestMessageInfo(t *testing.T) {
	ctx := context.Background()
	cfg := perm.Config{Owners: []string{"kikuri"}}
	h := commandtest.New(t, cfg, nil, devtools.New())
	msg := h.Group("kessoku", "kikuri", ".devtools message-info")
	msg.Elevated = true
	msg.Segments = append(msg.Segments,
		message.Segment{Kind: message.Reply, Ref: "42"},
		message.Segment{Kind: message.Other, Text: "image"},
	)
	if got := h.Send(ctx, msg); got != command.Executed {
		t.Errorf("wrong outcome: want %v, got %v", command.Executed, got)
	}
	want := []string{`id: 1
kind: group
group: kessoku
sender: kikuri (kikuri)
elevated: true
roles: owner, group_admin
segments:
1. text ".devtools message-info"
2. reply to 42
3. other (image)`}
	if diff := cmp.Diff(want, h.Replies.Take()); diff != "" {
		t.Errorf("wrong reply (-want +got):\n%s", diff)
	}
}

func TestMessageInfoDenied(t *testing.T) {
	ctx := context.Background()
	h := commandtest.New(t, perm.Config{}, nil, devtools.New())
	if got := h.Send(ctx, h.Private("futari", ".devtools message-info")); got != command.RejectedPermission {
		t.Errorf("wrong outcome: want %v, got %v", command.RejectedPermission, got)
	}
	if diff := cmp.Diff([]string{command.DeniedText}, h.Replies.Take()); diff != "" {
		t.Errorf("wrong reply (-want +got):\n%s", diff)
	}
}

func TestContexts(t *testing.T) {
	ctx := context.Background()
	cfg := perm.Config{RolePermissions: map[string][]string{"member": {"devtools.*"}}}
	h := commandtest.New(t, cfg, nil, devtools.New())
	h.Send(ctx, h.Private("seika", ".devtools contexts"))
	want := []string{"Pending contexts: 0. Collection sessions: 0."}
	if diff := cmp.Diff(want, h.Replies.Take()); diff != "" {
		t.Errorf("wrong reply (-want +got):\n%s", diff)
	}
}
