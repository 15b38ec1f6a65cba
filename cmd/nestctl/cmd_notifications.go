package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/nestfeed/client/internal/model/social"
)

var (
	notificationsUnread bool
	readAll             bool
)

// notificationsCmd lists notifications
var notificationsCmd = &cobra.Command{
	Use:     "notifications",
	Aliases: []string{"notifs"},
	Short:   "List notifications",
	Args:    cobra.NoArgs,
	RunE:    runNotifications,
}

// notificationsReadCmd marks notifications checked
var notificationsReadCmd = &cobra.Command{
	Use:   "read [notificationID]",
	Short: "Mark one notification, or --all, as checked",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runNotificationsRead,
}

func init() {
	notificationsCmd.Flags().BoolVar(&notificationsUnread, "unread", false, "Only show unchecked notifications")
	notificationsReadCmd.Flags().BoolVar(&readAll, "all", false, "Mark every notification checked")
	notificationsCmd.AddCommand(notificationsReadCmd)
}

func runNotifications(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	if _, err := core.Notifications.Refresh(ctx); err != nil {
		return err
	}
	printNotifications(cmd.OutOrStdout(), core.Notifications.List(notificationsUnread), core.Notifications.UnreadCount())
	return nil
}

func runNotificationsRead(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	if readAll == (len(args) == 1) {
		return errors.New("pass either a notification id or --all")
	}

	// load first so the optimistic update has something to mark
	if _, err := core.Notifications.Refresh(ctx); err != nil {
		return err
	}

	var err error
	if readAll {
		err = core.Notifications.MarkAllChecked(ctx)
	} else {
		err = core.Notifications.MarkChecked(ctx, args[0])
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d unread\n", core.Notifications.UnreadCount())
	return nil
}

func printNotifications(out io.Writer, list []social.Notification, unread int) {
	fmt.Fprintf(out, "%d unread\n", unread)
	for _, n := range list {
		marker := " "
		if !n.Checked {
			marker = unreadMarker
		}
		fmt.Fprintf(out, "%s %s %s %s\n", marker, mutedStyle.Render(n.ID), nameStyle.Render(n.From.DisplayName()), describeNotification(n))
	}
}

func describeNotification(n social.Notification) string {
	if n.Message != "" {
		return n.Message
	}
	switch n.Type {
	case social.NotificationLike:
		return "liked your post"
	case social.NotificationComment:
		return "commented on your post"
	case social.NotificationFollow:
		return "sent you a friend request"
	default:
		return n.Type
	}
}
