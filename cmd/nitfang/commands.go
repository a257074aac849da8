package main

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ramkansal/nitfang/internal/scraper"
)

const dateLayout = "2006-01-02"

func newSearchCmd(opts *options) *cobra.Command {
	var since, until string

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search for accounts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sopts, err := searchOptions(since, until)
			if err != nil {
				return err
			}

			sess, err := open(cmd, opts)
			if err != nil {
				return err
			}
			defer sess.close()

			page, err := sess.scraper.Search(cmd.Context(), strings.Join(args, " "), sopts)
			if err != nil {
				return err
			}
			return sess.writer.WriteUsers(page)
		},
	}
	cmd.Flags().StringVar(&since, "since", "", "only accounts active since this date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&until, "until", "", "only accounts active until this date (YYYY-MM-DD)")
	return cmd
}

func newProfileCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "profile <handle> [handle...]",
		Short: "Fetch profile headers with their first timeline page",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := open(cmd, opts)
			if err != nil {
				return err
			}
			defer sess.close()

			if len(args) == 1 {
				page, err := sess.scraper.GetProfile(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return sess.writer.WriteProfile(page)
			}

			results, err := sess.scraper.Lookup(cmd.Context(), args)
			if err != nil {
				return err
			}

			failed := 0
			for _, r := range results {
				if r.Err != nil {
					failed++
					slog.Error("profile failed", "handle", r.Handle, "err", r.Err)
					continue
				}
				if err := sess.writer.WriteProfile(r.Page); err != nil {
					return err
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d profiles failed", failed, len(results))
			}
			return nil
		},
	}
}

func newTweetsCmd(opts *options) *cobra.Command {
	var topts scraper.TweetOptions

	cmd := &cobra.Command{
		Use:   "tweets <handle>",
		Short: "Fetch an account's timeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if topts.Pages < 1 {
				return fmt.Errorf("pages must be at least 1, got %d", topts.Pages)
			}

			sess, err := open(cmd, opts)
			if err != nil {
				return err
			}
			defer sess.close()

			page, err := sess.scraper.GetTweets(cmd.Context(), args[0], topts)
			if err != nil {
				return err
			}
			return sess.writer.WriteTweets(page)
		},
	}
	cmd.Flags().IntVar(&topts.Pages, "pages", 1, "number of timeline pages to follow")
	cmd.Flags().BoolVar(&topts.Replies, "replies", false, "read the tweets-and-replies timeline")
	return cmd
}

func searchOptions(since, until string) (scraper.SearchOptions, error) {
	var opts scraper.SearchOptions
	var err error
	if opts.Since, err = parseDate("since", since); err != nil {
		return opts, err
	}
	if opts.Until, err = parseDate("until", until); err != nil {
		return opts, err
	}
	if !opts.Since.IsZero() && !opts.Until.IsZero() && opts.Until.Before(opts.Since) {
		return opts, fmt.Errorf("--until %s is before --since %s", until, since)
	}
	return opts, nil
}

func parseDate(name, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s: want YYYY-MM-DD, got %q", name, value)
	}
	return t, nil
}
