package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/gophstream/internal/api"
	"github.com/dmitrijs2005/gophstream/internal/client/client"
	"github.com/dmitrijs2005/gophstream/internal/client/config"
	"github.com/dmitrijs2005/gophstream/internal/common"
	"github.com/dmitrijs2005/gophstream/internal/logging"
)

// adminAPI is the part of client.AdminClient the admin commands use.
type adminAPI interface {
	Ping(ctx context.Context) error
	GetLicense(ctx context.Context, username string, limit int) (map[string]any, error)
	RenewLicense(ctx context.Context, username string) (map[string]any, error)
	EvictSession(ctx context.Context, sessionID string) (bool, error)
	Stats(ctx context.Context) (map[string]any, error)
	Close() error
}

type App struct {
	config *config.Config
	logger logging.Logger
	in     *bufio.Reader
	out    io.Writer
	errOut io.Writer

	dialAdmin func(c *config.Config) (adminAPI, error)
}

func NewApp(c *config.Config, logger logging.Logger) *App {
	return &App{
		config: c,
		logger: logger,
		in:     bufio.NewReader(os.Stdin),
		out:    os.Stdout,
		errOut: os.Stderr,
		dialAdmin: func(c *config.Config) (adminAPI, error) {
			return client.NewAdminClient(c.AdminAddr, c.AdminToken)
		},
	}
}

// Run executes the command line args (without the program name).
func (a *App) Run(ctx context.Context, args []string) error {
	root := a.rootCommand()
	root.SetArgs(args)
	root.SetIn(a.in)
	root.SetOut(a.out)
	root.SetErr(a.errOut)
	return root.ExecuteContext(ctx)
}

func (a *App) newClient() *client.Client {
	return client.New(client.Options{
		BaseURL:      a.config.ServerURL,
		RetryMax:     a.config.RetryMax,
		RetryWaitMin: a.config.RetryWaitMin,
		RetryWaitMax: a.config.RetryWaitMax,
		Timeout:      a.config.Timeout,
		Logger:       a.logger,
	})
}

// connect opens a session and negotiates the configured suite.
func (a *App) connect(ctx context.Context) (*client.Client, error) {
	s, err := a.config.Suite()
	if err != nil {
		return nil, err
	}
	c := a.newClient()
	if err := c.Handshake(ctx, s); err != nil {
		return nil, err
	}
	return c, nil
}

// login is connect followed by authentication of the configured user.
func (a *App) login(ctx context.Context) (*client.Client, *api.LicenseSummary, error) {
	username, password, id, err := a.credentials()
	if err != nil {
		return nil, nil, err
	}
	defer common.WipeByteArray(password)

	c, err := a.connect(ctx)
	if err != nil {
		return nil, nil, err
	}
	lic, err := c.Authenticate(ctx, username, password, id)
	if err != nil {
		a.logout(ctx, c)
		return nil, nil, err
	}
	return c, lic, nil
}

func (a *App) logout(ctx context.Context, c *client.Client) {
	if err := c.Logout(ctx); err != nil {
		a.logger.Debug(ctx, "Logout failed", "error", err)
	}
}

// credentials resolves the username, prompting when it is not configured,
// reads the password and loads the signing identity.
func (a *App) credentials() (string, []byte, *client.Identity, error) {
	username := a.config.Username
	if username == "" {
		var err error
		username, err = GetSimpleText(a.in, "Username:", a.errOut)
		if err != nil {
			return "", nil, nil, err
		}
	}
	if username == "" {
		return "", nil, nil, fmt.Errorf("username is required")
	}

	id, err := client.LoadIdentity(a.config.CertFile, a.config.KeyFile, a.config.ChainFile)
	if err != nil {
		return "", nil, nil, fmt.Errorf("loading identity: %w", err)
	}

	password, err := readSecret(a.in, a.errOut)
	if err != nil {
		return "", nil, nil, err
	}
	return username, password, id, nil
}

func (a *App) printLicense(lic *api.LicenseSummary) {
	state := "valid"
	if !lic.Valid {
		state = "not valid"
	}
	fmt.Fprintf(a.out, "license of %s: %s, %d views left, expires %s\n",
		lic.Username, state, lic.ViewsRemaining, lic.ExpiresAt.Local().Format("2006-01-02 15:04:05"))
}
