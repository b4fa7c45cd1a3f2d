package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func (a *App) adminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Operate the server through the admin service",
	}

	var events int
	license := &cobra.Command{
		Use:   "license <username>",
		Short: "Show a license and its recent events",
		Args:  cobra.ExactArgs(1),
		RunE: a.withAdmin(func(cmd *cobra.Command, adm adminAPI, args []string) error {
			out, err := adm.GetLicense(cmd.Context(), args[0], events)
			if err != nil {
				return err
			}
			return a.printJSON(out)
		}),
	}
	license.Flags().IntVar(&events, "events", 10, "number of events to show")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "ping",
			Short: "Check the admin service is up",
			Args:  cobra.NoArgs,
			RunE: a.withAdmin(func(cmd *cobra.Command, adm adminAPI, args []string) error {
				if err := adm.Ping(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(a.out, "OK")
				return nil
			}),
		},
		&cobra.Command{
			Use:   "stats",
			Short: "Show live sessions and uptime",
			Args:  cobra.NoArgs,
			RunE: a.withAdmin(func(cmd *cobra.Command, adm adminAPI, args []string) error {
				out, err := adm.Stats(cmd.Context())
				if err != nil {
					return err
				}
				return a.printJSON(out)
			}),
		},
		license,
		&cobra.Command{
			Use:   "renew <username>",
			Short: "Restart a user's license",
			Args:  cobra.ExactArgs(1),
			RunE: a.withAdmin(func(cmd *cobra.Command, adm adminAPI, args []string) error {
				out, err := adm.RenewLicense(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return a.printJSON(out)
			}),
		},
		&cobra.Command{
			Use:   "evict <session-id>",
			Short: "Drop a session",
			Args:  cobra.ExactArgs(1),
			RunE: a.withAdmin(func(cmd *cobra.Command, adm adminAPI, args []string) error {
				evicted, err := adm.EvictSession(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if evicted {
					fmt.Fprintln(a.out, "session evicted")
				} else {
					fmt.Fprintln(a.out, "no such session")
				}
				return nil
			}),
		},
	)
	return cmd
}

type adminRunE func(cmd *cobra.Command, adm adminAPI, args []string) error

func (a *App) withAdmin(fn adminRunE) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		adm, err := a.dialAdmin(a.config)
		if err != nil {
			return err
		}
		defer func() { _ = adm.Close() }()
		return fn(cmd, adm, args)
	}
}

func (a *App) printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, string(b))
	return nil
}
