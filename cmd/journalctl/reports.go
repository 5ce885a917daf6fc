package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	reportsCmd := &cobra.Command{Use: "reports", Short: "Mood report operations"}

	var userID, start, end string
	triggerCmd := &cobra.Command{
		Use:   "trigger",
		Short: "Generate a mood report for a period",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return fmt.Errorf("--user required")
			}
			ps, err := time.Parse("2006-01-02", start)
			if err != nil {
				return fmt.Errorf("invalid --start: %w", err)
			}
			pe, err := time.Parse("2006-01-02", end)
			if err != nil {
				return fmt.Errorf("invalid --end: %w", err)
			}
			payload := map[string]interface{}{
				"periodStart": ps.UTC().Format(time.RFC3339),
				"periodEnd":   pe.UTC().Format(time.RFC3339),
			}
			resp, err := newClient().R().SetBody(payload).
				Post(fmt.Sprintf("/api/users/%s/reports", userID))
			return printResponse(resp, err)
		},
	}
	triggerCmd.Flags().StringVarP(&userID, "user", "u", "", "User ID (required)")
	triggerCmd.Flags().StringVarP(&start, "start", "s", "", "Period start, YYYY-MM-DD (required)")
	triggerCmd.Flags().StringVarP(&end, "end", "e", "", "Period end, YYYY-MM-DD (required)")
	_ = triggerCmd.MarkFlagRequired("user")
	_ = triggerCmd.MarkFlagRequired("start")
	_ = triggerCmd.MarkFlagRequired("end")
	reportsCmd.AddCommand(triggerCmd)

	var listUser string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List mood reports for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if listUser == "" {
				return fmt.Errorf("--user required")
			}
			resp, err := newClient().R().Get(fmt.Sprintf("/api/users/%s/reports", listUser))
			return printResponse(resp, err)
		},
	}
	listCmd.Flags().StringVarP(&listUser, "user", "u", "", "User ID (required)")
	_ = listCmd.MarkFlagRequired("user")
	reportsCmd.AddCommand(listCmd)

	var latestUser string
	latestCmd := &cobra.Command{
		Use:   "latest",
		Short: "Show the most recent mood report",
		RunE: func(cmd *cobra.Command, args []string) error {
			if latestUser == "" {
				return fmt.Errorf("--user required")
			}
			resp, err := newClient().R().
				Get(fmt.Sprintf("/api/users/%s/reports/latest", latestUser))
			return printResponse(resp, err)
		},
	}
	latestCmd.Flags().StringVarP(&latestUser, "user", "u", "", "User ID (required)")
	_ = latestCmd.MarkFlagRequired("user")
	reportsCmd.AddCommand(latestCmd)

	var getUser string
	getCmd := &cobra.Command{
		Use:   "get REPORT_ID",
		Short: "Get a mood report by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if getUser == "" {
				return fmt.Errorf("--user required")
			}
			resp, err := newClient().R().
				Get(fmt.Sprintf("/api/users/%s/reports/%s", getUser, args[0]))
			return printResponse(resp, err)
		},
	}
	getCmd.Flags().StringVarP(&getUser, "user", "u", "", "User ID (required)")
	_ = getCmd.MarkFlagRequired("user")
	reportsCmd.AddCommand(getCmd)

	rootCmd.AddCommand(reportsCmd)
}
