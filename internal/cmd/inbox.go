package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gravitrone/concierge/internal/api"
	"github.com/gravitrone/concierge/internal/listsync"
	"github.com/gravitrone/concierge/internal/ui/components"
)

func isNotFound(err error) bool {
	return errors.Is(err, api.ErrNotFound)
}

// InboxCmd returns the `concierge inbox` command group.
func InboxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inbox",
		Short: "Triage the knowledge inbox",
	}
	cmd.AddCommand(inboxListCmd())
	cmd.AddCommand(inboxActionCmd("dismiss", "Dismissed", api.ActionDismiss))
	cmd.AddCommand(inboxActionCmd("save", "Saved", api.ActionSave))
	return cmd
}

func inboxListCmd() *cobra.Command {
	var (
		all   bool
		limit int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List untriaged inbox items",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, _, err := loadClient(cmd)
			if err != nil {
				return err
			}
			items, err := client.ListInbox(limit)
			if err != nil {
				return fmt.Errorf("list inbox: %w", err)
			}
			out := cmd.OutOrStdout()
			shown := 0
			for _, it := range items {
				if !all && it.Status != api.InboxUnset {
					continue
				}
				status := it.Status.Label()
				if it.Processing {
					status = "checking"
				}
				subject := components.ClampTextWidthEllipsis(components.SanitizeOneLine(it.Subject), 50)
				fmt.Fprintf(out, "  %-12s  %-9s  %s  %s  (%s)\n", it.ID, status, it.Date.Local().Format("2006-01-02"), subject, it.From)
				shown++
			}
			if shown == 0 {
				fmt.Fprintln(out, "inbox zero")
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "include triaged items")
	cmd.Flags().IntVarP(&limit, "limit", "n", 100, "fetch at most n items")
	return cmd
}

func inboxActionCmd(use, verb string, action api.InboxAction) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>...",
		Short: verb + " inbox items",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := loadClient(cmd)
			if err != nil {
				return err
			}
			result := listsync.RunBulk(verb, "item", args, func(id string) error {
				return client.ApplyInboxAction(id, action)
			})
			return reportBulk(cmd.OutOrStdout(), result)
		},
	}
}
