package api

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/pv/sensapp/internal/ingest"
	"github.com/pv/sensapp/internal/ingest/compress"
	"github.com/pv/sensapp/internal/storage"
)

// readBody reads r.Body bounded by the configured HTTP body limit, then
// decompresses it per the content-encoding header (or autodetected gzip
// magic when the header is absent and autodetect is true).
func (s *Server) readBody(r *http.Request, autodetectGzip bool) ([]byte, error) {
	limited := io.LimitReader(r.Body, s.cfg.HTTPBodyLimit+1)
	raw, err := io.ReadAll(limited)
	if err != nil {
		return nil, storage.BadRequest("reading body: %v", err)
	}
	if int64(len(raw)) > s.cfg.HTTPBodyLimit {
		return nil, storage.BadRequest("request body exceeds configured limit")
	}

	header := r.Header.Get("Content-Encoding")
	if header == "" && autodetectGzip && compress.IsGzipMagic(raw) {
		header = "gzip"
	}
	enc, err := compress.ParseEncoding(header)
	if err != nil {
		return nil, storage.BadRequest("%v", err)
	}
	out, err := compress.Decompress(enc, raw)
	if err != nil {
		return nil, storage.BadRequest("%v", err)
	}
	return out, nil
}

// ingestPayload runs parser over data, drains whatever the BatchBuilder
// accumulated onto the bus, and waits for every subscriber's sync
// acknowledgement within the configured timeout.
func (s *Server) ingestPayload(ctx context.Context, parser ingest.Parser, data []byte, labelContext map[string]string) error {
	builder := s.newBuilder()
	if err := parser.Parse(ctx, data, labelContext, builder); err != nil {
		return storage.BadRequest("%v", err)
	}

	wf, err := builder.SendWhatIsLeft(ctx, s.bus)
	if err != nil {
		return storage.Internal(err)
	}
	if wf == nil {
		return nil
	}

	waitCtx, cancel := context.WithTimeout(ctx, s.cfg.StorageSyncTimeout)
	defer cancel()
	if err := wf.Wait(waitCtx); err != nil {
		return storage.SyncTimeout(fmt.Sprintf("ingest (%d/%d backends acked)", wf.Finished(), wf.Started()))
	}
	return nil
}
