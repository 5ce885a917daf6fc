package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	journalsCmd := &cobra.Command{Use: "journals", Short: "Journal entry operations"}

	var userID, title, content string
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Add a journal entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" || content == "" {
				return fmt.Errorf("--user and --content required")
			}
			payload := map[string]interface{}{"content": content}
			if title != "" {
				payload["title"] = title
			}
			resp, err := newClient().R().SetBody(payload).
				Post(fmt.Sprintf("/api/users/%s/journals", userID))
			return printResponse(resp, err)
		},
	}
	addCmd.Flags().StringVarP(&userID, "user", "u", "", "User ID (required)")
	addCmd.Flags().StringVarP(&title, "title", "t", "", "Entry title")
	addCmd.Flags().StringVarP(&content, "content", "c", "", "Entry text (required)")
	_ = addCmd.MarkFlagRequired("user")
	_ = addCmd.MarkFlagRequired("content")
	journalsCmd.AddCommand(addCmd)

	var listUser string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List journal entries for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if listUser == "" {
				return fmt.Errorf("--user required")
			}
			resp, err := newClient().R().Get(fmt.Sprintf("/api/users/%s/journals", listUser))
			return printResponse(resp, err)
		},
	}
	listCmd.Flags().StringVarP(&listUser, "user", "u", "", "User ID (required)")
	_ = listCmd.MarkFlagRequired("user")
	journalsCmd.AddCommand(listCmd)

	var getUser string
	getCmd := &cobra.Command{
		Use:   "get JOURNAL_ID",
		Short: "Get a journal entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if getUser == "" {
				return fmt.Errorf("--user required")
			}
			resp, err := newClient().R().
				Get(fmt.Sprintf("/api/users/%s/journals/%s", getUser, args[0]))
			return printResponse(resp, err)
		},
	}
	getCmd.Flags().StringVarP(&getUser, "user", "u", "", "User ID (required)")
	_ = getCmd.MarkFlagRequired("user")
	journalsCmd.AddCommand(getCmd)

	var delUser string
	deleteCmd := &cobra.Command{
		Use:   "delete JOURNAL_ID",
		Short: "Delete a journal entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if delUser == "" {
				return fmt.Errorf("--user required")
			}
			resp, err := newClient().R().
				Delete(fmt.Sprintf("/api/users/%s/journals/%s", delUser, args[0]))
			return printResponse(resp, err)
		},
	}
	deleteCmd.Flags().StringVarP(&delUser, "user", "u", "", "User ID (required)")
	_ = deleteCmd.MarkFlagRequired("user")
	journalsCmd.AddCommand(deleteCmd)

	var searchUser, query string
	var topK int
	searchCmd := &cobra.Command{
		Use:   "search",
		Short: "Search journal entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			if searchUser == "" || query == "" {
				return fmt.Errorf("--user and --query required")
			}
			payload := map[string]interface{}{"query": query, "topK": topK}
			resp, err := newClient().R().SetBody(payload).
				Post(fmt.Sprintf("/api/users/%s/search", searchUser))
			return printResponse(resp, err)
		},
	}
	searchCmd.Flags().StringVarP(&searchUser, "user", "u", "", "User ID (required)")
	searchCmd.Flags().StringVarP(&query, "query", "q", "", "Search query text (required)")
	searchCmd.Flags().IntVarP(&topK, "topk", "k", 5, "Number of top results to return")
	_ = searchCmd.MarkFlagRequired("user")
	_ = searchCmd.MarkFlagRequired("query")
	journalsCmd.AddCommand(searchCmd)

	rootCmd.AddCommand(journalsCmd)
}
