package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"lte-sms-manager/internal/whitelist"
)

func (a *app) contactsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contacts",
		Short: "Edit the whitelist contact book",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List contacts",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				book, err := a.contactBook()
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "UUID\tNAME\tNUMBER")
				for _, c := range book.Contacts() {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", c.UUID, c.Name, c.Number)
				}
				return tw.Flush()
			},
		},
		&cobra.Command{
			Use:   "add NAME NUMBER",
			Short: "Add a contact",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				book, err := a.contactBook()
				if err != nil {
					return err
				}
				c, err := book.Add(args[0], args[1])
				if err != nil {
					return err
				}
				if err := a.storeBook(book); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s) as %s\n", c.Name, c.Number, c.UUID)
				return nil
			},
		},
		&cobra.Command{
			Use:   "edit UUID NAME NUMBER",
			Short: "Change the name and number of a contact",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				book, err := a.contactBook()
				if err != nil {
					return err
				}
				c, err := book.Update(args[0], args[1], args[2])
				if err != nil {
					return err
				}
				if err := a.storeBook(book); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated %s: %s (%s)\n", c.UUID, c.Name, c.Number)
				return nil
			},
		},
		&cobra.Command{
			Use:   "remove UUID",
			Short: "Remove a contact",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				book, err := a.contactBook()
				if err != nil {
					return err
				}
				if err := book.Remove(args[0]); err != nil {
					return err
				}
				if err := a.storeBook(book); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
				return nil
			},
		},
	)
	return cmd
}

func (a *app) contactBook() (*whitelist.ContactBook, error) {
	raw, err := contactsSetting(a.v.Get(whitelist.KeyContacts))
	if err != nil {
		return nil, err
	}
	return whitelist.LoadContactBook(raw), nil
}

func (a *app) storeBook(book *whitelist.ContactBook) error {
	encoded, err := book.Encode()
	if err != nil {
		return err
	}
	path, err := a.saveContacts(encoded)
	if err != nil {
		return err
	}
	a.logger.Debug("saved contacts", "path", path)
	return nil
}
