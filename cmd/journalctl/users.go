package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	usersCmd := &cobra.Command{Use: "users", Short: "User operations"}

	var email, name, tz, freq string
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				return fmt.Errorf("--email required")
			}
			payload := map[string]interface{}{"email": email}
			if name != "" {
				payload["displayName"] = name
			}
			if tz != "" {
				payload["timeZone"] = tz
			}
			if freq != "" {
				payload["reportFrequency"] = freq
			}
			resp, err := newClient().R().SetBody(payload).Post("/api/users")
			return printResponse(resp, err)
		},
	}
	createCmd.Flags().StringVarP(&email, "email", "e", "", "User email (required)")
	createCmd.Flags().StringVarP(&name, "name", "n", "", "Display name")
	createCmd.Flags().StringVarP(&tz, "tz", "t", "", "Time zone (defaults UTC)")
	createCmd.Flags().StringVarP(&freq, "frequency", "f", "", "Report frequency: WEEKLY, BIWEEKLY or MONTHLY")
	_ = createCmd.MarkFlagRequired("email")
	usersCmd.AddCommand(createCmd)

	getCmd := &cobra.Command{
		Use:   "get USER_ID",
		Short: "Get user by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := newClient().R().Get("/api/users/" + args[0])
			return printResponse(resp, err)
		},
	}
	usersCmd.AddCommand(getCmd)

	rootCmd.AddCommand(usersCmd)
}
