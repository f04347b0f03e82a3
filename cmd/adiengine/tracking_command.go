package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"adiengine/internal/config"
	"adiengine/internal/tracking"
)

func newTrackingCommand(ctx *commandContext) *cobra.Command {
	trackingCmd := &cobra.Command{
		Use:   "tracking",
		Short: "Inspect update tracking state",
	}

	trackingCmd.AddCommand(newTrackingWatermarksCommand(ctx))
	trackingCmd.AddCommand(newTrackingFlaggedCommand(ctx))

	return trackingCmd
}

func newTrackingWatermarksCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watermarks",
		Short: "Show the sweep cursor per tier",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withTrackingStore(func(_ *config.Config, store *tracking.Store) error {
				marks, err := store.Watermarks(cmd.Context())
				if err != nil {
					return err
				}
				rows := make([][]string, 0, 3)
				for _, tier := range tracking.Tiers() {
					rows = append(rows, []string{string(tier), strconv.FormatInt(marks.For(tier), 10)})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Tier", "Watermark"},
					rows,
					[]columnAlignment{alignLeft, alignRight},
				))
				if marks.InOperation {
					fmt.Fprintln(cmd.OutOrStdout(), "A sweep or generation pass is currently in operation")
				}
				return nil
			})
		},
	}
}

func newTrackingFlaggedCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "flagged",
		Short: "List assets flagged for update regeneration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withTrackingStore(func(_ *config.Config, store *tracking.Store) error {
				var rows [][]string
				for _, tier := range tracking.Tiers() {
					flagged, err := store.RowsRequiringEnrichment(cmd.Context(), tier)
					if err != nil {
						return err
					}
					for _, row := range flagged {
						rows = append(rows, []string{
							string(tier),
							row.PAID,
							row.TMSID,
							strconv.FormatInt(row.UpdateID, 10),
							row.UpdateDate.Format("2006-01-02 15:04"),
						})
					}
				}
				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No assets are flagged for regeneration")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Tier", "PAID", "TMS ID", "Update", "Update Date"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
}
