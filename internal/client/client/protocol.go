package client

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dmitrijs2005/gophstream/internal/api"
	"github.com/dmitrijs2005/gophstream/internal/channel"
	"github.com/dmitrijs2005/gophstream/internal/common"
	"github.com/dmitrijs2005/gophstream/internal/dh"
	"github.com/dmitrijs2005/gophstream/internal/pki"
	"github.com/dmitrijs2005/gophstream/internal/suite"
)

// Parameters fetches and decodes the server's DH domain parameters.
func (c *Client) Parameters(ctx context.Context) (*dh.Parameters, error) {
	var resp api.ParametersResponse
	if err := c.getJSON(ctx, api.PathParameters, &resp); err != nil {
		return nil, err
	}
	params, err := dh.DecodeParameters([]byte(resp.Parameters))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrKeyExchange, err)
	}
	return params, nil
}

// Protocols fetches the catalog of algorithms the server offers.
func (c *Client) Protocols(ctx context.Context) (suite.Catalog, error) {
	var cat suite.Catalog
	if err := c.getJSON(ctx, api.PathProtocols, &cat); err != nil {
		return suite.Catalog{}, err
	}
	return cat, nil
}

// Connect runs the key exchange and opens a new session. Any previous
// session of this client is forgotten, not logged out.
func (c *Client) Connect(ctx context.Context) error {
	params, err := c.Parameters(ctx)
	if err != nil {
		return err
	}

	priv, err := dh.GenerateKey(rand.Reader, params)
	if err != nil {
		return err
	}
	pub, err := dh.MarshalPublicKey(&priv.PublicKey)
	if err != nil {
		return err
	}

	var reply api.PublicKeyMessage
	resp, err := c.postJSON(ctx, api.PathPublicKey, nil, api.PublicKeyMessage{PublicKey: string(pub)}, &reply)
	if err != nil {
		return err
	}

	sessionID := resp.header.Get(common.SessionIDHeaderName)
	if sessionID == "" {
		return fmt.Errorf("%w: server did not assign a session", common.ErrKeyExchange)
	}

	peer, err := dh.ParsePublicKey([]byte(reply.PublicKey), params)
	if err != nil {
		return err
	}
	secret, err := dh.SharedSecret(priv, peer)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.secret != nil {
		common.WipeByteArray(c.secret)
	}
	c.params = params
	c.sessionID = sessionID
	c.secret = secret
	c.channel = nil

	c.logger.Debug(ctx, "Session opened", "session_id", sessionID)
	return nil
}

// Negotiate selects s for the current session.
func (c *Client) Negotiate(ctx context.Context, s suite.Suite) error {
	if err := s.Validate(); err != nil {
		return err
	}

	id := c.SessionID()
	if id == "" {
		return ErrNotConnected
	}

	header := http.Header{}
	header.Set(common.SessionIDHeaderName, id)

	var status api.StatusResponse
	if _, err := c.postJSON(ctx, api.PathSuite, header, s, &status); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.channel = channel.New(c.secret, &s)
	return nil
}

// Handshake is Connect followed by Negotiate.
func (c *Client) Handshake(ctx context.Context, s suite.Suite) error {
	if err := c.Connect(ctx); err != nil {
		return err
	}
	return c.Negotiate(ctx, s)
}

// Register asks for a new license for username. The password is signed
// with id's key together with the username.
func (c *Client) Register(ctx context.Context, username string, password []byte, id *Identity) (*api.LicenseSummary, error) {
	if id == nil {
		return nil, fmt.Errorf("%w: identity required", common.ErrBadRequest)
	}
	sig, err := pki.Sign(id.Signer, pki.CredentialMessage(username, password))
	if err != nil {
		return nil, err
	}

	req := api.RegisterRequest{
		Username:    username,
		Password:    password,
		Signature:   sig,
		Certificate: id.Certificate,
		Chain:       id.Chain,
	}

	var out api.LicenseSummary
	if err := c.sealedCall(ctx, http.MethodPost, api.PathRegister, nil, "", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Authenticate binds an existing license to the session. The password is
// sent only as a digest under the negotiated digest algorithm.
func (c *Client) Authenticate(ctx context.Context, username string, password []byte, id *Identity) (*api.LicenseSummary, error) {
	if id == nil {
		return nil, fmt.Errorf("%w: identity required", common.ErrBadRequest)
	}
	s := c.Suite()
	if s == nil {
		return nil, ErrNotNegotiated
	}

	digest, err := s.Digest.Sum(password)
	if err != nil {
		return nil, err
	}
	sig, err := pki.Sign(id.Signer, pki.CredentialMessage(username, digest))
	if err != nil {
		return nil, err
	}

	req := api.AuthRequest{Username: username, PasswordDigest: digest, Signature: sig}

	var out api.LicenseSummary
	if err := c.sealedCall(ctx, http.MethodPost, api.PathAuth, nil, "", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Renew restarts the license of the user bound to the session.
func (c *Client) Renew(ctx context.Context) (*api.LicenseSummary, error) {
	var out api.LicenseSummary
	if err := c.sealedCall(ctx, http.MethodPost, api.PathRenew, nil, "", struct{}{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// List returns the media catalog.
func (c *Client) List(ctx context.Context) ([]api.MediaSummary, error) {
	var out []api.MediaSummary
	if err := c.sealedCall(ctx, http.MethodGet, api.PathList, nil, "", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Download fetches one chunk. Each successful call consumes one view.
func (c *Client) Download(ctx context.Context, mediaID string, chunk int64) (*api.ChunkResponse, error) {
	tag := strconv.FormatInt(chunk, 10)
	q := url.Values{}
	q.Set("id", mediaID)
	q.Set("chunk", tag)

	var out api.ChunkResponse
	if err := c.sealedCall(ctx, http.MethodGet, api.PathDownload, q, tag, nil, &out); err != nil {
		return nil, err
	}
	if out.MediaID != mediaID || out.Chunk != chunk {
		return nil, fmt.Errorf("%w: got %s/%d, asked for %s/%d", common.ErrIntegrity, out.MediaID, out.Chunk, mediaID, chunk)
	}
	return &out, nil
}

// DownloadRange writes chunks [from, to) of mediaID to w in order and
// calls progress after each one when it is not nil. It stops at the first
// failure and reports how many chunks were written.
func (c *Client) DownloadRange(ctx context.Context, mediaID string, from, to int64, w io.Writer, progress func(chunk int64)) (int64, error) {
	var written int64
	for i := from; i < to; i++ {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		resp, err := c.Download(ctx, mediaID, i)
		if err != nil {
			return written, err
		}
		if _, err := w.Write(resp.Data); err != nil {
			return written, err
		}
		written++
		if progress != nil {
			progress(i)
		}
	}
	return written, nil
}

// Logout ends the session on the server and drops local key material.
func (c *Client) Logout(ctx context.Context) error {
	id := c.SessionID()
	if id == "" {
		return ErrNotConnected
	}

	header := http.Header{}
	header.Set(common.SessionIDHeaderName, id)

	var status api.StatusResponse
	if _, err := c.postJSON(ctx, api.PathLogout, header, struct{}{}, &status); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	common.WipeByteArray(c.secret)
	c.sessionID = ""
	c.secret = nil
	c.channel = nil
	return nil
}
