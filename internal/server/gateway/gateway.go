// Package gateway implements the streaming protocol on top of the session
// store, the secure channel and the license ledger. Every method works on
// raw request material (session id string, sealed body, MIC header) so the
// transport layer stays a thin adapter.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophstream/internal/api"
	"github.com/dmitrijs2005/gophstream/internal/channel"
	"github.com/dmitrijs2005/gophstream/internal/common"
	"github.com/dmitrijs2005/gophstream/internal/dh"
	"github.com/dmitrijs2005/gophstream/internal/logging"
	"github.com/dmitrijs2005/gophstream/internal/server/assets"
	"github.com/dmitrijs2005/gophstream/internal/server/catalog"
	"github.com/dmitrijs2005/gophstream/internal/server/licenses"
	"github.com/dmitrijs2005/gophstream/internal/server/metrics"
	"github.com/dmitrijs2005/gophstream/internal/server/models"
	"github.com/dmitrijs2005/gophstream/internal/server/sessions"
	"github.com/dmitrijs2005/gophstream/internal/suite"
	"github.com/google/uuid"
)

// Ledger is the part of licenses.Ledger the gateway depends on.
type Ledger interface {
	Register(ctx context.Context, req licenses.RegisterRequest) (*models.License, error)
	Authenticate(ctx context.Context, username string, digest suite.Digest, passwordDigest, signature []byte) (*models.License, error)
	Renew(ctx context.Context, username string) (*models.License, error)
	IsValid(ctx context.Context, username string) (bool, error)
	ConsumeIfValid(ctx context.Context, username string) (*models.License, error)
}

// Envelope is a response ready for the wire. When MIC is set, Body is the
// base64 ciphertext of a JSON document; otherwise Body is plain JSON.
type Envelope struct {
	Status int
	Body   []byte
	MIC    string
}

func (e Envelope) Sealed() bool {
	return e.MIC != ""
}

type Gateway struct {
	params    *dh.Parameters
	paramsPEM string
	sessions  *sessions.Store
	ledger    Ledger
	catalog   *catalog.Catalog
	assets    assets.Source
	metrics   *metrics.Metrics
	now       func() time.Time
	logger    logging.Logger
}

// New wires the gateway. m may be nil.
func New(params *dh.Parameters, store *sessions.Store, ledger Ledger, cat *catalog.Catalog,
	src assets.Source, m *metrics.Metrics, logger logging.Logger) (*Gateway, error) {

	pemBytes, err := dh.EncodeParameters(params)
	if err != nil {
		return nil, fmt.Errorf("encode parameters: %w", err)
	}

	return &Gateway{
		params:    params,
		paramsPEM: string(pemBytes),
		sessions:  store,
		ledger:    ledger,
		catalog:   cat,
		assets:    src,
		metrics:   m,
		now:       time.Now,
		logger:    logger.With("module", "gateway"),
	}, nil
}

func (g *Gateway) session(rawID string) (*sessions.Session, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed session id", common.ErrSessionNotFound)
	}
	sess, err := g.sessions.Get(id)
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// respond seals v under tag when sess has a negotiated suite and renders it
// as plain JSON otherwise.
func (g *Gateway) respond(sess *sessions.Session, tag string, status int, v any) Envelope {
	if sess == nil || sess.Suite == nil {
		b, err := json.Marshal(v)
		if err != nil {
			g.logger.Error(context.Background(), "Response encoding failed", "error", err)
			return internalEnvelope()
		}
		return Envelope{Status: status, Body: b}
	}

	ct, mic, err := sess.Channel().SealJSON(v, tag)
	if err != nil {
		g.logger.Error(context.Background(), "Sealing response failed", "session_id", sess.ID, "error", err)
		return internalEnvelope()
	}
	body, micHeader := channel.Encode(ct, mic)
	return Envelope{Status: status, Body: body, MIC: micHeader}
}

func (g *Gateway) fail(ctx context.Context, sess *sessions.Session, tag string, err error) Envelope {
	status := api.HTTPStatus(err)
	code := common.ErrorCode(err)

	switch {
	case status == http.StatusInternalServerError:
		g.logger.Error(ctx, "Request failed", "error", err)
	default:
		g.logger.Debug(ctx, "Request rejected", "code", code, "error", err)
	}
	switch code {
	case common.CodeLicenseInvalid, common.CodeInvalidCredentials, common.CodeInvalidSignature, common.CodeInvalidCertificate:
		g.metrics.LicenseRejected(code)
	}

	return g.respond(sess, tag, status, api.NewErrorResponse(err))
}

func (g *Gateway) openRequest(sess *sessions.Session, body []byte, mic string, v any) error {
	ct, m, err := channel.Decode(body, mic)
	if err != nil {
		return err
	}
	return sess.Channel().OpenJSON(ct, m, "", v)
}

func internalEnvelope() Envelope {
	b, _ := json.Marshal(api.NewErrorResponse(common.ErrorInternal))
	return Envelope{Status: http.StatusInternalServerError, Body: b}
}

func licenseSummary(lic *models.License, valid bool) api.LicenseSummary {
	return api.LicenseSummary{
		Username:       lic.Username,
		ViewsRemaining: lic.ViewsRemaining,
		ExpiresAt:      lic.ExpiresAt,
		Valid:          valid,
	}
}
