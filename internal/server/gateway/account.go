package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/gophstream/internal/api"
	"github.com/dmitrijs2005/gophstream/internal/common"
	"github.com/dmitrijs2005/gophstream/internal/server/licenses"
	"github.com/dmitrijs2005/gophstream/internal/server/models"
	"github.com/dmitrijs2005/gophstream/internal/server/sessions"
)

// Register opens a sealed api.RegisterRequest, creates the license and
// binds the user to the session.
func (g *Gateway) Register(ctx context.Context, rawID string, body []byte, mic string) Envelope {
	return g.sealedCall(ctx, rawID, func(sess *sessions.Session) (*models.License, error) {
		var req api.RegisterRequest
		if err := g.openRequest(sess, body, mic, &req); err != nil {
			return nil, err
		}
		return g.ledger.Register(ctx, licenses.RegisterRequest{
			Username:    req.Username,
			Password:    req.Password,
			Signature:   req.Signature,
			Certificate: req.Certificate,
			Chain:       req.Chain,
		})
	})
}

// Authenticate opens a sealed api.AuthRequest and checks it against the
// stored license using the session's negotiated digest.
func (g *Gateway) Authenticate(ctx context.Context, rawID string, body []byte, mic string) Envelope {
	return g.sealedCall(ctx, rawID, func(sess *sessions.Session) (*models.License, error) {
		var req api.AuthRequest
		if err := g.openRequest(sess, body, mic, &req); err != nil {
			return nil, err
		}
		return g.ledger.Authenticate(ctx, req.Username, sess.Suite.Digest, req.PasswordDigest, req.Signature)
	})
}

// Renew restarts the license of the user bound to the session.
func (g *Gateway) Renew(ctx context.Context, rawID string, body []byte, mic string) Envelope {
	return g.sealedCall(ctx, rawID, func(sess *sessions.Session) (*models.License, error) {
		var req struct{}
		if err := g.openRequest(sess, body, mic, &req); err != nil {
			return nil, err
		}
		if sess.Username == "" {
			return nil, fmt.Errorf("%w: no user bound to session", common.ErrorUnauthorized)
		}
		return g.ledger.Renew(ctx, sess.Username)
	})
}

// sealedCall resolves the session, requires a negotiated suite, runs fn and
// binds the resulting license's user to the session.
func (g *Gateway) sealedCall(ctx context.Context, rawID string, fn func(*sessions.Session) (*models.License, error)) Envelope {
	sess, err := g.session(rawID)
	if err != nil {
		return g.fail(ctx, nil, "", err)
	}
	if sess.Suite == nil {
		return g.fail(ctx, sess, "", common.ErrSuiteNotNegotiated)
	}

	lic, err := fn(sess)
	if err != nil {
		return g.fail(ctx, sess, "", err)
	}

	if err := g.sessions.BindUser(sess.ID, lic.Username); err != nil {
		return g.fail(ctx, sess, "", err)
	}
	return g.respond(sess, "", http.StatusOK, licenseSummary(lic, lic.Valid(g.now())))
}
