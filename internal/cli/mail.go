package cli

import (
	"github.com/spf13/cobra"

	"github.com/jpatrickfarrell/jat-sub013/internal/core"
	"github.com/jpatrickfarrell/jat-sub013/internal/mailbox"
	"github.com/jpatrickfarrell/jat-sub013/pkg/engine"
)

func newSendCmd(opts *rootOptions) *cobra.Command {
	var (
		to          string
		subject     string
		body        string
		thread      string
		importance  string
		ackRequired bool
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send a message to agents, broadcast addresses allowed",
		Long:  "Send a message. --to is a comma-separated union of agent names and the\nbroadcast addresses @all, @active[:window_minutes], and @project:SLUG.",
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := opts.requireAgent()
			if err != nil {
				return err
			}
			return withEngine(cmd, opts, func(eng *engine.Engine, project core.Project) error {
				msg, err := eng.Mailbox().Send(cmd.Context(), mailbox.SendInput{
					Project:     project.ID,
					From:        from,
					To:          to,
					Subject:     subject,
					Body:        body,
					ThreadID:    thread,
					Importance:  importance,
					AckRequired: ackRequired,
				})
				if err != nil {
					return err
				}
				return printJSON(cmd, struct {
					MessageID      string `json:"message_id"`
					RecipientCount int    `json:"recipient_count"`
				}{MessageID: msg.ID, RecipientCount: len(msg.Recipients)})
			})
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "recipient specifiers, comma-separated")
	cmd.Flags().StringVar(&subject, "subject", "", "message subject")
	cmd.Flags().StringVar(&body, "body", "", "message body")
	cmd.Flags().StringVar(&thread, "thread", "", "thread id, usually an external task id")
	cmd.Flags().StringVar(&importance, "importance", "normal", "normal, high, or urgent")
	cmd.Flags().BoolVar(&ackRequired, "ack-required", false, "ask recipients to acknowledge")
	return cmd
}

func newInboxCmd(opts *rootOptions) *cobra.Command {
	var (
		unread    bool
		hideAcked bool
		thread    string
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "inbox",
		Short: "List the acting agent's messages, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			agent, err := opts.requireAgent()
			if err != nil {
				return err
			}
			return withEngine(cmd, opts, func(eng *engine.Engine, project core.Project) error {
				msgs, err := eng.Mailbox().Inbox(cmd.Context(), project.ID, agent, mailbox.InboxOptions{
					UnreadOnly: unread,
					HideAcked:  hideAcked,
					ThreadID:   thread,
					Limit:      limit,
				})
				if err != nil {
					return err
				}
				if msgs == nil {
					msgs = []core.Message{}
				}
				return printJSON(cmd, msgs)
			})
		},
	}
	cmd.Flags().BoolVar(&unread, "unread", false, "only messages not yet acknowledged by the agent")
	cmd.Flags().BoolVar(&hideAcked, "hide-acked", false, "hide acknowledged broadcasts too")
	cmd.Flags().StringVar(&thread, "thread", "", "only messages in this thread")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of messages")
	return cmd
}

func newShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show MESSAGE_ID",
		Short: "Show one message with its recipients and ack state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, opts, func(eng *engine.Engine, project core.Project) error {
				msg, err := eng.Mailbox().Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd, msg)
			})
		},
	}
}

func newAckCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ack MESSAGE_ID",
		Short: "Acknowledge a message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			agent, err := opts.requireAgent()
			if err != nil {
				return err
			}
			return withEngine(cmd, opts, func(eng *engine.Engine, project core.Project) error {
				if err := eng.Mailbox().Ack(cmd.Context(), project.ID, agent, args[0]); err != nil {
					return err
				}
				return printJSON(cmd, struct {
					OK bool `json:"ok"`
				}{OK: true})
			})
		},
	}
}

func newSearchCmd(opts *rootOptions) *cobra.Command {
	var (
		thread string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Search messages, ranked by match quality then recency",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, opts, func(eng *engine.Engine, project core.Project) error {
				msgs, err := eng.Mailbox().Search(cmd.Context(), project.ID, args[0], thread, limit)
				if err != nil {
					return err
				}
				if msgs == nil {
					msgs = []core.Message{}
				}
				return printJSON(cmd, msgs)
			})
		},
	}
	cmd.Flags().StringVar(&thread, "thread", "", "only messages in this thread")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of results")
	return cmd
}
