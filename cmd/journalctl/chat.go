package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	chatCmd := &cobra.Command{Use: "chat", Short: "Chat assistant operations"}

	var userID, sessionID string
	sendCmd := &cobra.Command{
		Use:   "send MESSAGE",
		Short: "Send a chat message (omit --session to start a new session)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return fmt.Errorf("--user required")
			}
			payload := map[string]interface{}{"message": args[0]}
			if sessionID != "" {
				payload["sessionId"] = sessionID
			}
			resp, err := newClient().R().SetBody(payload).
				Post(fmt.Sprintf("/api/users/%s/chat", userID))
			return printResponse(resp, err)
		},
	}
	sendCmd.Flags().StringVarP(&userID, "user", "u", "", "User ID (required)")
	sendCmd.Flags().StringVarP(&sessionID, "session", "s", "", "Session ID (continue an existing session)")
	_ = sendCmd.MarkFlagRequired("user")
	chatCmd.AddCommand(sendCmd)

	var sessUser string
	sessionsCmd := &cobra.Command{
		Use:   "sessions",
		Short: "List chat sessions for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if sessUser == "" {
				return fmt.Errorf("--user required")
			}
			resp, err := newClient().R().Get(fmt.Sprintf("/api/users/%s/sessions", sessUser))
			return printResponse(resp, err)
		},
	}
	sessionsCmd.Flags().StringVarP(&sessUser, "user", "u", "", "User ID (required)")
	_ = sessionsCmd.MarkFlagRequired("user")
	chatCmd.AddCommand(sessionsCmd)

	var histUser string
	historyCmd := &cobra.Command{
		Use:   "history SESSION_ID",
		Short: "Show messages of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if histUser == "" {
				return fmt.Errorf("--user required")
			}
			resp, err := newClient().R().
				Get(fmt.Sprintf("/api/users/%s/sessions/%s/messages", histUser, args[0]))
			return printResponse(resp, err)
		},
	}
	historyCmd.Flags().StringVarP(&histUser, "user", "u", "", "User ID (required)")
	_ = historyCmd.MarkFlagRequired("user")
	chatCmd.AddCommand(historyCmd)

	var delUser string
	deleteCmd := &cobra.Command{
		Use:   "delete SESSION_ID",
		Short: "Delete a session and its messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if delUser == "" {
				return fmt.Errorf("--user required")
			}
			resp, err := newClient().R().
				Delete(fmt.Sprintf("/api/users/%s/sessions/%s", delUser, args[0]))
			return printResponse(resp, err)
		},
	}
	deleteCmd.Flags().StringVarP(&delUser, "user", "u", "", "User ID (required)")
	_ = deleteCmd.MarkFlagRequired("user")
	chatCmd.AddCommand(deleteCmd)

	rootCmd.AddCommand(chatCmd)
}
