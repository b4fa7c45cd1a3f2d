package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/dmitrijs2005/gophstream/internal/api"
	"github.com/dmitrijs2005/gophstream/internal/common"
	"github.com/dmitrijs2005/gophstream/internal/filex"
	"github.com/spf13/cobra"
)

func (a *App) protocolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "protocols",
		Short: "List the algorithms the server offers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := a.newClient().Protocols(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "ciphers: %s\n", join(cat.Ciphers))
			fmt.Fprintf(a.out, "digests: %s\n", join(cat.Digests))
			fmt.Fprintf(a.out, "modes:   %s\n", join(cat.Modes))
			return nil
		},
	}
}

func join[T ~string](vs []T) string {
	ss := make([]string, len(vs))
	for i, v := range vs {
		ss[i] = string(v)
	}
	return strings.Join(ss, ", ")
}

func (a *App) registerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register",
		Short: "Request a new license",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			username, password, id, err := a.credentials()
			if err != nil {
				return err
			}
			defer common.WipeByteArray(password)

			c, err := a.connect(ctx)
			if err != nil {
				return err
			}
			defer a.logout(ctx, c)

			lic, err := c.Register(ctx, username, password, id)
			if err != nil {
				return err
			}
			a.printLicense(lic)
			return nil
		},
	}
}

func (a *App) loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Check credentials and show the license",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, lic, err := a.login(cmd.Context())
			if err != nil {
				return err
			}
			defer a.logout(cmd.Context(), c)

			a.printLicense(lic)
			return nil
		},
	}
}

func (a *App) renewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "renew",
		Short: "Restart the license",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, _, err := a.login(ctx)
			if err != nil {
				return err
			}
			defer a.logout(ctx, c)

			lic, err := c.Renew(ctx)
			if err != nil {
				return err
			}
			a.printLicense(lic)
			return nil
		},
	}
}

func (a *App) catalogCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "catalog",
		Aliases: []string{"list"},
		Short:   "List the media catalog",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := a.connect(ctx)
			if err != nil {
				return err
			}
			defer a.logout(ctx, c)

			items, err := c.List(ctx)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tALBUM\tDURATION\tCHUNKS")
			for _, it := range items {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d:%02d\t%d\n", it.ID, it.Name, it.Album, it.Duration/60, it.Duration%60, it.Chunks)
			}
			return tw.Flush()
		},
	}
}

func (a *App) downloadCmd() *cobra.Command {
	var (
		out  string
		from int64
		to   int64
	)

	cmd := &cobra.Command{
		Use:     "download <media-id>",
		Aliases: []string{"play"},
		Short:   "Fetch media chunks; every chunk spends one view",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			mediaID := args[0]

			c, _, err := a.login(ctx)
			if err != nil {
				return err
			}
			defer a.logout(ctx, c)

			items, err := c.List(ctx)
			if err != nil {
				return err
			}
			item, ok := findMedia(items, mediaID)
			if !ok {
				return fmt.Errorf("%w: %s", common.ErrMediaNotFound, mediaID)
			}
			if to <= 0 || to > item.Chunks {
				to = item.Chunks
			}
			if from < 0 || from >= to {
				return fmt.Errorf("%w: empty chunk range [%d, %d)", common.ErrInvalidChunkIndex, from, to)
			}

			w, closeFn, err := a.openOutput(out, mediaID)
			if err != nil {
				return err
			}

			n, err := c.DownloadRange(ctx, mediaID, from, to, w, func(i int64) {
				fmt.Fprintf(a.errOut, "\rchunk %d/%d", i+1, to)
			})
			fmt.Fprintln(a.errOut)
			if cerr := closeFn(); err == nil {
				err = cerr
			}
			fmt.Fprintf(a.out, "downloaded %d of %d chunks of %s\n", n, to-from, item.Name)
			return err
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "output file, - for stdout (default <media-id>.mp3)")
	cmd.Flags().Int64Var(&from, "from", 0, "first chunk")
	cmd.Flags().Int64Var(&to, "to", 0, "chunk to stop before (default all)")
	return cmd
}

func findMedia(items []api.MediaSummary, id string) (api.MediaSummary, bool) {
	for _, it := range items {
		if it.ID == id {
			return it, true
		}
	}
	return api.MediaSummary{}, false
}

func (a *App) openOutput(path, mediaID string) (io.Writer, func() error, error) {
	if path == "-" {
		return a.out, func() error { return nil }, nil
	}
	if path == "" {
		path = mediaID + ".mp3"
	}
	path, err := filex.EnsureParentDir(path)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}
