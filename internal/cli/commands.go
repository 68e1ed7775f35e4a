package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"lte-sms-manager/internal/domain"
	"lte-sms-manager/internal/usecase"
)

func (a *app) listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the inbox and print it as an inbox listed event",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.service(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			_, err = svc.ListInbox(cmd.Context(), a.v.GetString("host"))
			return err
		},
	}
}

func (a *app) jsonCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "json",
		Short: "Print the inbox as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.service(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			out, err := svc.GetInboxJSON(cmd.Context(), a.v.GetString("host"))
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
}

func (a *app) deleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete SMS_ID...",
		Short: "Delete messages by id",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int, 0, len(args))
			for _, arg := range args {
				id, err := strconv.Atoi(arg)
				if err != nil {
					return fmt.Errorf("invalid SMS id %q", arg)
				}
				ids = append(ids, id)
			}

			svc, err := a.service(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			out, err := svc.DeleteSMS(cmd.Context(), usecase.DeleteSMSInput{Host: a.v.GetString("host"), IDs: ids})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d of %d SMS on %s\n", out.Deleted, out.Requested, out.Host)
			return nil
		},
	}
}

func (a *app) cleanupCommand() *cobra.Command {
	var (
		retainCount int
		retainDays  int
		allow       []string
		dryRun      bool
	)
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Apply the retention policy to the inbox",
		Long: "Keeps the newest --retain-count messages and every whitelisted sender, and deletes the rest.\n" +
			"Runs as a dry run unless --dry-run=false is given.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in := usecase.CleanupInput{Host: a.v.GetString("host"), Whitelist: allow}
			if cmd.Flags().Changed("retain-count") {
				in.RetainCount = &retainCount
			}
			if cmd.Flags().Changed("retain-days") {
				in.RetainDays = &retainDays
			}
			if cmd.Flags().Changed("dry-run") {
				in.DryRun = &dryRun
			}

			svc, err := a.service(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			_, err = svc.CleanupInbox(cmd.Context(), in)
			return err
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&retainCount, "retain-count", domain.DefaultRetainCount, "number of newest non-whitelisted messages to keep")
	flags.IntVar(&retainDays, "retain-days", domain.DefaultRetainDays, "also expire messages older than this many days (0 disables)")
	flags.StringSliceVar(&allow, "whitelist", nil, "extra senders to keep for this run")
	flags.BoolVar(&dryRun, "dry-run", domain.DefaultDryRun, "only report what would be deleted")
	return cmd
}

func (a *app) modemsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "modems",
		Short: "List configured modems that are available",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.service(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "HOST\tTITLE")
			for _, m := range svc.Modems() {
				fmt.Fprintf(tw, "%s\t%s\n", m.Host, m.Title)
			}
			return tw.Flush()
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
