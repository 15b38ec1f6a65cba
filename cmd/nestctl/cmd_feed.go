package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nestfeed/client/internal/model/social"
	"github.com/nestfeed/client/internal/service/feed"
)

var (
	feedPage    int
	feedDeleted bool
	feedMine    bool
	postImage   string
)

// feedCmd prints the home feed
var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Show the home feed",
	Long: `Loads pages 1..N of the home feed, the way scrolling to the end of the
list would, and prints every loaded post.

Examples:
  nestctl feed
  nestctl feed --page 3
  nestctl feed --deleted`,
	Args: cobra.NoArgs,
	RunE: runFeed,
}

// postCmd groups post actions
var postCmd = &cobra.Command{
	Use:   "post",
	Short: "Create, like, delete and restore posts",
}

var postCreateCmd = &cobra.Command{
	Use:   "create <text>",
	Short: "Publish a post, optionally with --image",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runPostCreate,
}

var postLikeCmd = &cobra.Command{
	Use:   "like <postID>",
	Short: "Like a post",
	Args:  cobra.ExactArgs(1),
	RunE:  runPostLike,
}

var postDeleteCmd = &cobra.Command{
	Use:   "delete <postID>",
	Short: "Move a post to the deleted list",
	Args:  cobra.ExactArgs(1),
	RunE:  runPostDelete,
}

var postRestoreCmd = &cobra.Command{
	Use:   "restore <postID>",
	Short: "Restore a deleted post",
	Args:  cobra.ExactArgs(1),
	RunE:  runPostRestore,
}

func init() {
	feedCmd.Flags().IntVar(&feedPage, "page", 1, "Load pages up to this one")
	feedCmd.Flags().BoolVar(&feedDeleted, "deleted", false, "Show deleted posts instead")
	feedCmd.Flags().BoolVar(&feedMine, "mine", false, "Show only your own posts")

	postCreateCmd.Flags().StringVar(&postImage, "image", "", "Image file to attach")

	postCmd.AddCommand(postCreateCmd)
	postCmd.AddCommand(postLikeCmd)
	postCmd.AddCommand(postDeleteCmd)
	postCmd.AddCommand(postRestoreCmd)
}

func runFeed(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	if feedPage < 1 {
		return feed.ErrInvalidPage
	}

	if feedMine {
		posts, err := core.Feed.Mine(ctx)
		if err != nil {
			return err
		}
		printPosts(cmd.OutOrStdout(), posts, false)
		return nil
	}

	loader := core.Feed.Home()
	if feedDeleted {
		loader = core.Feed.Deleted()
	}

	for page := 1; page <= feedPage; page++ {
		if page > 1 && !loader.HasMore() {
			break
		}
		if _, err := loader.LoadPage(ctx, page); err != nil {
			return err
		}
	}

	snapshot := loader.Snapshot()
	printPosts(cmd.OutOrStdout(), snapshot.Items, snapshot.HasMore)
	return nil
}

func printPosts(out io.Writer, posts []social.Post, hasMore bool) {
	if len(posts) == 0 {
		fmt.Fprintln(out, mutedStyle.Render("No posts yet"))
		return
	}

	for _, post := range posts {
		fmt.Fprintf(out, "%s %s\n", nameStyle.Render(post.User.DisplayName()), mutedStyle.Render(post.ID))
		fmt.Fprintln(out, post.Text)
		if post.Image != "" {
			fmt.Fprintln(out, mutedStyle.Render("image: "+post.Image))
		}
		fmt.Fprintln(out, mutedStyle.Render(fmt.Sprintf("%d likes · %d comments", len(post.Likes), len(post.Comments))))
		fmt.Fprintln(out)
	}
	if hasMore {
		fmt.Fprintln(out, mutedStyle.Render("more posts available: use --page"))
	}
}

func runPostCreate(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	post := social.NewPost{Text: strings.Join(args, " ")}
	if postImage != "" {
		data, err := os.ReadFile(postImage)
		if err != nil {
			return fmt.Errorf("read image: %w", err)
		}
		post.ImageName = filepath.Base(postImage)
		post.Image = data
	}

	created, err := core.Feed.Create(ctx, post)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Posted %s\n", created.ID)
	return nil
}

func runPostLike(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	if err := core.Feed.Like(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Liked")
	return nil
}

func runPostDelete(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	if err := core.Feed.Delete(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Deleted")
	return nil
}

func runPostRestore(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	if err := core.Feed.Restore(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Restored")
	return nil
}
