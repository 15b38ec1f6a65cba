package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/nestfeed/client/internal/model/social"
)

// friendsCmd lists friends
var friendsCmd = &cobra.Command{
	Use:   "friends",
	Short: "List your friends",
	Args:  cobra.NoArgs,
	RunE:  runFriends,
}

// requestsCmd lists incoming friend requests
var requestsCmd = &cobra.Command{
	Use:   "requests",
	Short: "List incoming friend requests",
	Args:  cobra.NoArgs,
	RunE:  runRequests,
}

// requestCmd acts on friend requests
var requestCmd = &cobra.Command{
	Use:   "request",
	Short: "Send, accept or reject friend requests",
}

var requestSendCmd = &cobra.Command{
	Use:   "send <userID>",
	Short: "Send a friend request",
	Args:  cobra.ExactArgs(1),
	RunE:  runRequestSend,
}

var requestAcceptCmd = &cobra.Command{
	Use:   "accept <requestID>",
	Short: "Accept a friend request",
	Args:  cobra.ExactArgs(1),
	RunE:  respondWith(social.RequestAccepted),
}

var requestRejectCmd = &cobra.Command{
	Use:   "reject <requestID>",
	Short: "Reject a friend request",
	Args:  cobra.ExactArgs(1),
	RunE:  respondWith(social.RequestRejected),
}

func init() {
	requestCmd.AddCommand(requestSendCmd)
	requestCmd.AddCommand(requestAcceptCmd)
	requestCmd.AddCommand(requestRejectCmd)
}

func runFriends(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	list, err := core.Friends.Friends(ctx)
	if err != nil {
		return err
	}
	printUsers(cmd.OutOrStdout(), list, "No friends yet")
	return nil
}

func runRequests(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	buckets, err := core.Friends.Requests(ctx)
	if err != nil {
		return err
	}
	printRequests(cmd.OutOrStdout(), buckets)
	return nil
}

func runRequestSend(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	if err := core.Friends.Send(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Friend request sent")
	return nil
}

func respondWith(status string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		resp, err := core.Friends.Respond(ctx, args[0], status)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Request %s\n", status)
		printRequests(out, resp.Requests)
		if status == social.RequestAccepted {
			printUsers(out, resp.Friends, "No friends yet")
		}
		return nil
	}
}

func printUsers(out io.Writer, users []social.User, empty string) {
	if len(users) == 0 {
		fmt.Fprintln(out, mutedStyle.Render(empty))
		return
	}
	for _, u := range users {
		fmt.Fprintf(out, "%s %s\n", nameStyle.Render(u.DisplayName()), mutedStyle.Render(u.ID))
	}
}

func printRequests(out io.Writer, buckets social.RequestBuckets) {
	fmt.Fprintf(out, "Pending (%d)\n", len(buckets.Pending))
	for _, r := range buckets.Pending {
		fmt.Fprintf(out, "  %s %s\n", mutedStyle.Render(r.ID), nameStyle.Render(r.From.DisplayName()))
	}
	fmt.Fprintf(out, "Rejected (%d)\n", len(buckets.Rejected))
	for _, r := range buckets.Rejected {
		fmt.Fprintf(out, "  %s %s\n", mutedStyle.Render(r.ID), r.From.DisplayName())
	}
}
