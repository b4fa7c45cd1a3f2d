package cli

import (
	"github.com/spf13/cobra"
)

func (a *App) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "gophstream",
		Short:         "Licensed media streaming client",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	c := a.config
	pf := root.PersistentFlags()

	// consumed by config.LoadConfig before cobra runs
	pf.StringP("config", "c", "", "JSON config file")

	pf.StringVar(&c.ServerURL, "server", c.ServerURL, "streaming server base URL")
	pf.StringVar(&c.AdminAddr, "admin-addr", c.AdminAddr, "admin gRPC address")
	pf.StringVar(&c.AdminToken, "token", c.AdminToken, "admin access token")
	pf.IntVar(&c.RetryMax, "retries", c.RetryMax, "HTTP retries per request")
	pf.DurationVar(&c.Timeout, "timeout", c.Timeout, "HTTP request timeout")
	pf.StringVar(&c.Cipher, "cipher", c.Cipher, "cipher: AES or 3DES")
	pf.StringVar(&c.Digest, "digest", c.Digest, "digest: SHA512 or BLAKE2")
	pf.StringVar(&c.Mode, "mode", c.Mode, "cipher mode: CBC or OFB")
	pf.StringVarP(&c.Username, "user", "u", c.Username, "account name")
	pf.StringVar(&c.CertFile, "cert", c.CertFile, "PEM certificate")
	pf.StringVar(&c.KeyFile, "key", c.KeyFile, "PEM private key")
	pf.StringVar(&c.ChainFile, "chain", c.ChainFile, "PEM intermediates")

	root.AddCommand(
		a.protocolsCmd(),
		a.registerCmd(),
		a.loginCmd(),
		a.catalogCmd(),
		a.downloadCmd(),
		a.renewCmd(),
		a.adminCmd(),
	)
	return root
}
