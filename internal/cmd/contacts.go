package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/gravitrone/concierge/internal/api"
	"github.com/gravitrone/concierge/internal/listsync"
)

// ContactsCmd returns the `concierge contacts` command group.
func ContactsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contacts",
		Short: "Manage contacts",
	}
	cmd.AddCommand(contactsListCmd())
	cmd.AddCommand(contactsDeleteCmd())
	return cmd
}

var cliContactSchema = listsync.Schema[api.Contact]{
	ID:   func(c api.Contact) string { return c.ID },
	Time: func(c api.Contact) time.Time { return c.Created },
	Search: func(c api.Contact) []string {
		return []string{c.Name, c.Email, c.Phone, c.Relation, c.Notes}
	},
	Less: func(a, b api.Contact) bool {
		return strings.ToLower(a.Name) < strings.ToLower(b.Name)
	},
}

func contactsListCmd() *cobra.Command {
	var search string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List contacts by name",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, _, err := loadClient(cmd)
			if err != nil {
				return err
			}
			contacts, err := client.ListContacts()
			if err != nil {
				return fmt.Errorf("list contacts: %w", err)
			}
			view := listsync.FilteredView(contacts, cliContactSchema, listsync.AllTab, search)
			out := cmd.OutOrStdout()
			if len(view) == 0 {
				fmt.Fprintln(out, "no contacts found")
				return nil
			}
			for _, c := range view {
				meta := strings.Join(nonEmpty(c.Relation, c.Email, c.Phone), ", ")
				if meta != "" {
					meta = " (" + meta + ")"
				}
				fmt.Fprintf(out, "  %-12s  %s%s\n", c.ID, c.Name, meta)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&search, "search", "q", "", "only show contacts matching this text")
	return cmd
}

func contactsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete contacts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := loadClient(cmd)
			if err != nil {
				return err
			}
			return reportBulk(cmd.OutOrStdout(), listsync.RunBulk("Deleted", "contact", args, client.DeleteContact))
		},
	}
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}
