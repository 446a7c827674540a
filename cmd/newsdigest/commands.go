package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"NewsDigest/internal/app"
	"NewsDigest/internal/usecase"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	cyan   = color.New(color.FgCyan, color.Bold).SprintFunc()
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Fetch every configured source and store new items",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.Application) error {
			res, err := a.Collect(ctx)
			if err != nil {
				return err
			}
			printCollect(res)
			return nil
		})
	},
}

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Group recent items into topics and write the raw and digest feeds",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.Application) error {
			res, err := a.Digest(ctx)
			if err != nil {
				return err
			}
			printDigest(res)
			return nil
		})
	},
}

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Deliver digest entries that were not sent before",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.Application) error {
			res, err := a.Send(ctx)
			if err != nil {
				return err
			}
			printSend(res)
			return nil
		})
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run collect, digest and send once",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.Application) error {
			res, err := a.Run(ctx)
			fmt.Printf("%s %s\n", cyan("run"), res.RunID)
			printCollect(res.Collect)
			printDigest(res.Digest)
			printSend(res.Send)
			return err
		})
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the pipeline on the configured cron schedule until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.Application) error {
			err := a.Serve(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	},
}

func printCollect(res usecase.CollectResult) {
	fmt.Printf("%s fetched %d, saved %s\n", cyan("collect"), res.Fetched, green(res.Saved))
}

func printDigest(res usecase.DigestResult) {
	fallback := fmt.Sprint(res.Fallback)
	if res.Fallback > 0 {
		fallback = yellow(res.Fallback)
	}
	fmt.Printf("%s items %d, topics %s, uncategorized %s\n", cyan("digest"), res.Items, green(res.Topics), fallback)
}

func printSend(res usecase.SendResult) {
	fmt.Printf("%s candidates %d, new %d, delivered %s\n", cyan("send"), res.Candidates, res.New, green(res.Delivered))
}
