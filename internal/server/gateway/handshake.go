package gateway

import (
	"context"
	"crypto/rand"
	"fmt"

	"github.com/dmitrijs2005/gophstream/internal/api"
	"github.com/dmitrijs2005/gophstream/internal/common"
	"github.com/dmitrijs2005/gophstream/internal/dh"
	"github.com/dmitrijs2005/gophstream/internal/suite"
	"github.com/google/uuid"
)

func (g *Gateway) Parameters() api.ParametersResponse {
	return api.ParametersResponse{Parameters: g.paramsPEM}
}

func (g *Gateway) Protocols() suite.Catalog {
	return suite.Supported()
}

// ExchangeKeys validates the client's public key, answers with a fresh
// server key and opens a session over the shared secret.
func (g *Gateway) ExchangeKeys(ctx context.Context, req api.PublicKeyMessage) (api.PublicKeyMessage, uuid.UUID, error) {
	resp, id, err := g.exchangeKeys(req)
	g.metrics.Handshake(err == nil)
	if err != nil {
		g.logger.Warn(ctx, "Key exchange failed", "error", err)
		return api.PublicKeyMessage{}, uuid.Nil, err
	}
	g.logger.Info(ctx, "Session opened", "session_id", id)
	return resp, id, nil
}

func (g *Gateway) exchangeKeys(req api.PublicKeyMessage) (api.PublicKeyMessage, uuid.UUID, error) {
	if req.PublicKey == "" {
		return api.PublicKeyMessage{}, uuid.Nil, fmt.Errorf("%w: missing public key", common.ErrBadRequest)
	}
	peer, err := dh.ParsePublicKey([]byte(req.PublicKey), g.params)
	if err != nil {
		return api.PublicKeyMessage{}, uuid.Nil, err
	}

	priv, err := dh.GenerateKey(rand.Reader, g.params)
	if err != nil {
		return api.PublicKeyMessage{}, uuid.Nil, err
	}
	secret, err := dh.SharedSecret(priv, peer)
	if err != nil {
		return api.PublicKeyMessage{}, uuid.Nil, err
	}
	defer common.WipeByteArray(secret)

	pub, err := dh.MarshalPublicKey(&priv.PublicKey)
	if err != nil {
		return api.PublicKeyMessage{}, uuid.Nil, err
	}

	id, err := g.sessions.Create(priv, peer, secret)
	if err != nil {
		return api.PublicKeyMessage{}, uuid.Nil, err
	}
	return api.PublicKeyMessage{PublicKey: string(pub)}, id, nil
}

// Negotiate attaches the requested suite to the session. Unknown cipher,
// digest or mode names are rejected.
func (g *Gateway) Negotiate(ctx context.Context, rawID string, req api.SuiteRequest) error {
	sess, err := g.session(rawID)
	if err != nil {
		return err
	}
	s, err := suite.Parse(string(req.Cipher), string(req.Digest), string(req.Mode))
	if err != nil {
		return err
	}
	if err := g.sessions.AttachCipherSuite(sess.ID, s); err != nil {
		return err
	}
	g.logger.Info(ctx, "Suite negotiated", "session_id", sess.ID, "suite", s.String())
	return nil
}

// Logout drops the session and its key material.
func (g *Gateway) Logout(ctx context.Context, rawID string) error {
	sess, err := g.session(rawID)
	if err != nil {
		return err
	}
	g.sessions.Delete(sess.ID)
	g.logger.Info(ctx, "Session closed", "session_id", sess.ID, "username", sess.Username)
	return nil
}
