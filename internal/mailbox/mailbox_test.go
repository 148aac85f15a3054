package mailbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jpatrickfarrell/jat-sub013/internal/core"
	"github.com/jpatrickfarrell/jat-sub013/internal/storage/sqlite"
)

func newTestMailbox(t *testing.T) (*Mailbox, *sqlite.Store, core.Project) {
	t.Helper()
	st := sqlite.NewSQLiteTest(t)
	project, err := st.EnsureProject(context.Background(), "/work/orders")
	if err != nil {
		t.Fatalf("ensure project: %v", err)
	}
	return New(st, time.Hour), st, project
}

func registerAgent(t *testing.T, st *sqlite.Store, project, name string) core.Agent {
	t.Helper()
	agent, err := st.InsertAgent(context.Background(), core.Agent{
		Project: project,
		Name:    name,
	})
	if err != nil {
		t.Fatalf("insert agent %s: %v", name, err)
	}
	return agent
}

func TestSendAndInbox(t *testing.T) {
	ctx := context.Background()
	mb, st, project := newTestMailbox(t)
	registerAgent(t, st, project.ID, "Ann")
	bob := registerAgent(t, st, project.ID, "Bob")

	msg, err := mb.Send(ctx, SendInput{
		Project:    project.ID,
		From:       "Ann",
		To:         "Bob",
		Subject:    "auth refactor",
		Body:       "taking the login flow, see thread",
		ThreadID:   "task-42",
		Importance: "high",
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(msg.Recipients) != 1 || msg.Recipients[0].AgentID != bob.ID {
		t.Fatalf("recipients = %+v, want exactly Bob", msg.Recipients)
	}

	inbox, err := mb.Inbox(ctx, project.ID, "Bob", InboxOptions{})
	if err != nil {
		t.Fatalf("inbox: %v", err)
	}
	if len(inbox) != 1 || inbox[0].ID != msg.ID {
		t.Fatalf("inbox = %d messages, want the sent message", len(inbox))
	}
	if inbox[0].ThreadID != "task-42" {
		t.Errorf("thread_id = %q, want task-42", inbox[0].ThreadID)
	}

	// The sender sees their own message too.
	sent, err := mb.Inbox(ctx, project.ID, "Ann", InboxOptions{})
	if err != nil {
		t.Fatalf("sender inbox: %v", err)
	}
	if len(sent) != 1 {
		t.Fatalf("sender inbox = %d messages, want 1", len(sent))
	}

	got, err := mb.Get(ctx, msg.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Recipients) != 1 || got.Recipients[0].AgentName != "Bob" {
		t.Fatalf("get recipients = %+v, want Bob with name attached", got.Recipients)
	}
}

func TestSendValidation(t *testing.T) {
	ctx := context.Background()
	mb, st, project := newTestMailbox(t)
	registerAgent(t, st, project.ID, "Ann")

	tests := []struct {
		name string
		in   SendInput
	}{
		{name: "empty body", in: SendInput{Project: project.ID, From: "Ann", To: "Ann"}},
		{name: "bad importance", in: SendInput{Project: project.ID, From: "Ann", To: "Ann", Body: "x", Importance: "critical"}},
		{name: "empty from", in: SendInput{Project: project.ID, To: "Ann", Body: "x"}},
		{name: "empty to", in: SendInput{Project: project.ID, From: "Ann", Body: "x"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := mb.Send(ctx, tc.in)
			var verr *core.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Send error = %v, want ValidationError", err)
			}
		})
	}
}

func TestSendBroadcastEmptyProject(t *testing.T) {
	ctx := context.Background()
	mb, st, project := newTestMailbox(t)
	registerAgent(t, st, project.ID, "Ann")

	_, err := mb.Send(ctx, SendInput{
		Project: project.ID,
		From:    "Ann",
		To:      "@all",
		Body:    "anyone here?",
	})
	var empty *core.EmptyRecipientSetError
	if !errors.As(err, &empty) {
		t.Fatalf("send @all with no peers: error = %v, want EmptyRecipientSetError", err)
	}
}

func TestSendActiveWindow(t *testing.T) {
	ctx := context.Background()
	mb, st, project := newTestMailbox(t)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	st.SetNow(func() time.Time { return base.Add(-30 * time.Minute) })
	registerAgent(t, st, project.ID, "Ann")
	registerAgent(t, st, project.ID, "Stale")

	st.SetNow(func() time.Time { return base.Add(-5 * time.Minute) })
	fresh := registerAgent(t, st, project.ID, "Fresh")

	st.SetNow(func() time.Time { return base })
	mb.now = func() time.Time { return base }

	msg, err := mb.Send(ctx, SendInput{
		Project: project.ID,
		From:    "Ann",
		To:      "@active:15",
		Body:    "standup in five",
	})
	if err != nil {
		t.Fatalf("send @active:15: %v", err)
	}
	if len(msg.Recipients) != 1 || msg.Recipients[0].AgentID != fresh.ID {
		t.Fatalf("recipients = %+v, want only Fresh", msg.Recipients)
	}
}

func TestCrossProjectDelivery(t *testing.T) {
	ctx := context.Background()
	mb, st, orders := newTestMailbox(t)
	registerAgent(t, st, orders.ID, "Ann")

	docs, err := st.EnsureProject(ctx, "/work/docs")
	if err != nil {
		t.Fatalf("ensure docs project: %v", err)
	}
	dee := registerAgent(t, st, docs.ID, "Dee")

	msg, err := mb.Send(ctx, SendInput{
		Project: orders.ID,
		From:    "Ann",
		To:      "@project:" + docs.Slug,
		Subject: "heads up",
		Body:    "orders is changing the shared schema",
	})
	if err != nil {
		t.Fatalf("send @project: %v", err)
	}
	if len(msg.Recipients) != 1 || msg.Recipients[0].AgentID != dee.ID {
		t.Fatalf("recipients = %+v, want only Dee", msg.Recipients)
	}

	// Dee reads and acks from the docs project, not the sender's.
	inbox, err := mb.Inbox(ctx, docs.ID, "Dee", InboxOptions{})
	if err != nil {
		t.Fatalf("inbox: %v", err)
	}
	if len(inbox) != 1 || inbox[0].ID != msg.ID {
		t.Fatalf("cross-project inbox = %d messages, want the sent message", len(inbox))
	}

	unread, err := mb.Inbox(ctx, docs.ID, "Dee", InboxOptions{UnreadOnly: true})
	if err != nil {
		t.Fatalf("inbox unread: %v", err)
	}
	if len(unread) != 1 {
		t.Fatalf("unread before ack = %d, want 1", len(unread))
	}

	if err := mb.Ack(ctx, docs.ID, "Dee", msg.ID); err != nil {
		t.Fatalf("cross-project ack: %v", err)
	}
	unread, err = mb.Inbox(ctx, docs.ID, "Dee", InboxOptions{UnreadOnly: true})
	if err != nil {
		t.Fatalf("inbox unread after ack: %v", err)
	}
	if len(unread) != 0 {
		t.Fatalf("unread after ack = %d, want 0", len(unread))
	}

	total, unreadCount, err := mb.Counts(ctx, docs.ID, "Dee")
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if total != 1 || unreadCount != 0 {
		t.Fatalf("counts = (%d, %d), want (1, 0)", total, unreadCount)
	}
}

func TestAckAndUnreadFilter(t *testing.T) {
	ctx := context.Background()
	mb, st, project := newTestMailbox(t)
	registerAgent(t, st, project.ID, "Ann")
	registerAgent(t, st, project.ID, "Bob")

	msg, err := mb.Send(ctx, SendInput{
		Project:     project.ID,
		From:        "Ann",
		To:          "Bob",
		Body:        "please confirm",
		AckRequired: true,
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	unread, err := mb.Inbox(ctx, project.ID, "Bob", InboxOptions{UnreadOnly: true})
	if err != nil {
		t.Fatalf("inbox unread: %v", err)
	}
	if len(unread) != 1 {
		t.Fatalf("unread before ack = %d, want 1", len(unread))
	}

	if err := mb.Ack(ctx, project.ID, "Bob", msg.ID); err != nil {
		t.Fatalf("ack: %v", err)
	}
	// Second ack is a no-op success.
	if err := mb.Ack(ctx, project.ID, "Bob", msg.ID); err != nil {
		t.Fatalf("repeat ack: %v", err)
	}

	unread, err = mb.Inbox(ctx, project.ID, "Bob", InboxOptions{UnreadOnly: true})
	if err != nil {
		t.Fatalf("inbox unread after ack: %v", err)
	}
	if len(unread) != 0 {
		t.Fatalf("unread after ack = %d, want 0", len(unread))
	}

	total, unreadCount, err := mb.Counts(ctx, project.ID, "Bob")
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if total != 1 || unreadCount != 0 {
		t.Fatalf("counts = (%d, %d), want (1, 0)", total, unreadCount)
	}

	// Ann was never a recipient.
	err = mb.Ack(ctx, project.ID, "Ann", msg.ID)
	var nar *core.NotARecipientError
	if !errors.As(err, &nar) {
		t.Fatalf("sender ack error = %v, want NotARecipientError", err)
	}
}

func TestHideAcked(t *testing.T) {
	ctx := context.Background()
	mb, st, project := newTestMailbox(t)
	registerAgent(t, st, project.ID, "Ann")
	registerAgent(t, st, project.ID, "Bob")

	msg, err := mb.Send(ctx, SendInput{
		Project: project.ID,
		From:    "Ann",
		To:      "@all",
		Body:    "deploy done",
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := mb.Ack(ctx, project.ID, "Bob", msg.ID); err != nil {
		t.Fatalf("ack: %v", err)
	}

	// Without hide_acked the acked broadcast still shows.
	all, err := mb.Inbox(ctx, project.ID, "Bob", InboxOptions{})
	if err != nil {
		t.Fatalf("inbox: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("inbox = %d messages, want 1", len(all))
	}

	hidden, err := mb.Inbox(ctx, project.ID, "Bob", InboxOptions{HideAcked: true})
	if err != nil {
		t.Fatalf("inbox hide_acked: %v", err)
	}
	if len(hidden) != 0 {
		t.Fatalf("inbox with hide_acked = %d messages, want 0", len(hidden))
	}
}

func TestSearchRanking(t *testing.T) {
	ctx := context.Background()
	mb, st, project := newTestMailbox(t)
	registerAgent(t, st, project.ID, "Ann")
	registerAgent(t, st, project.ID, "Bob")

	send := func(subject, body string) {
		t.Helper()
		if _, err := mb.Send(ctx, SendInput{
			Project: project.ID, From: "Ann", To: "Bob",
			Subject: subject, Body: body,
		}); err != nil {
			t.Fatalf("send %q: %v", subject, err)
		}
	}
	send("login page", "the login flow breaks on refresh")   // exact phrase
	send("flow notes", "login is fine but the flow is slow") // all terms
	send("login only", "just the login word here")           // any term
	send("unrelated", "nothing to see")

	got, err := mb.Search(ctx, project.ID, "login flow", "", 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("search returned %d messages, want 3", len(got))
	}
	wantSubjects := []string{"login page", "flow notes", "login only"}
	for i, want := range wantSubjects {
		if got[i].Subject != want {
			t.Errorf("result[%d].Subject = %q, want %q", i, got[i].Subject, want)
		}
	}
}
