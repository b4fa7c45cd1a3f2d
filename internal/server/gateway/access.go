package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/gophstream/internal/api"
	"github.com/dmitrijs2005/gophstream/internal/common"
)

// ListCatalog summarizes every catalog item.
func (g *Gateway) ListCatalog() []api.MediaSummary {
	items := g.catalog.Items()
	out := make([]api.MediaSummary, 0, len(items))
	for _, it := range items {
		out = append(out, api.MediaSummary{
			ID:          it.ID,
			Name:        it.Name,
			Album:       it.Album,
			Description: it.Description,
			Chunks:      it.Chunks(),
			Duration:    it.DurationSeconds,
		})
	}
	return out
}

// GetChunk returns chunk index of mediaID and spends one view of username's
// license. Nothing is spent when the chunk cannot be served.
func (g *Gateway) GetChunk(ctx context.Context, username, mediaID string, index int64) ([]byte, error) {
	item, err := g.catalog.Lookup(mediaID)
	if err != nil {
		return nil, err
	}
	offset, length, err := item.ChunkRange(index)
	if err != nil {
		return nil, err
	}

	valid, err := g.ledger.IsValid(ctx, username)
	if err != nil {
		return nil, err
	}
	if !valid {
		return nil, common.ErrLicenseInvalid
	}

	data, err := g.assets.ReadAt(ctx, item.FileName, offset, length)
	if err != nil {
		return nil, err
	}

	// the check above is advisory; this is the authoritative one
	lic, err := g.ledger.ConsumeIfValid(ctx, username)
	if err != nil {
		return nil, err
	}

	g.metrics.ChunkServed(mediaID)
	g.logger.Debug(ctx, "Chunk served", "username", username, "media_id", mediaID,
		"chunk", index, "views_remaining", lic.ViewsRemaining)
	return data, nil
}

// List returns the sealed catalog for a session with a negotiated suite.
func (g *Gateway) List(ctx context.Context, rawID string) Envelope {
	sess, err := g.session(rawID)
	if err != nil {
		return g.fail(ctx, nil, "", err)
	}
	if sess.Suite == nil {
		return g.fail(ctx, sess, "", common.ErrSuiteNotNegotiated)
	}
	return g.respond(sess, "", http.StatusOK, g.ListCatalog())
}

// Download serves one chunk to the user bound to the session. The response,
// error or not, is sealed with rawChunk as the binding tag.
func (g *Gateway) Download(ctx context.Context, rawID, mediaID, rawChunk string) Envelope {
	sess, err := g.session(rawID)
	if err != nil {
		return g.fail(ctx, nil, "", err)
	}
	tag := rawChunk
	if sess.Suite == nil {
		return g.fail(ctx, sess, tag, common.ErrSuiteNotNegotiated)
	}
	if sess.Username == "" {
		return g.fail(ctx, sess, tag, fmt.Errorf("%w: no user bound to session", common.ErrorUnauthorized))
	}
	if mediaID == "" {
		return g.fail(ctx, sess, tag, fmt.Errorf("%w: missing media id", common.ErrBadRequest))
	}

	index, err := strconv.ParseInt(rawChunk, 10, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return g.fail(ctx, sess, tag, fmt.Errorf("%w: %s", common.ErrInvalidChunkIndex, rawChunk))
		}
		return g.fail(ctx, sess, tag, fmt.Errorf("%w: chunk %q is not a number", common.ErrBadRequest, rawChunk))
	}

	data, err := g.GetChunk(ctx, sess.Username, mediaID, index)
	if err != nil {
		return g.fail(ctx, sess, tag, err)
	}

	return g.respond(sess, tag, http.StatusOK, api.ChunkResponse{
		MediaID: mediaID,
		Chunk:   index,
		Data:    data,
	})
}
