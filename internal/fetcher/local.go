package fetcher

import (
	"context"
	"mime"
	"net/url"
	"os"
	"path/filepath"

	"github.com/purc-go/purc/internal/perr"
)

// LocalBackend implements Backend for file: URIs, the mandatory backend of
// spec.md §4.F ("Local: accepts file: URIs").
type LocalBackend struct{}

func (b *LocalBackend) path(uri string) (string, *perr.Error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", perr.New(perr.InvalidValue)
	}
	p := u.Path
	if u.Host != "" {
		p = filepath.Join(u.Host, p)
	}
	if p == "" {
		return "", perr.New(perr.InvalidValue)
	}
	return p, nil
}

// FetchSync opens and fully reads the file, per spec.md §4.F "Synchronous
// path opens the file and returns a read stream with a status header".
func (b *LocalBackend) FetchSync(ctx context.Context, req *Request) ([]byte, Header, *perr.Error) {
	p, perr2 := b.path(req.URI)
	if perr2 != nil {
		return nil, Header{}, perr2
	}
	data, rerr := os.ReadFile(p)
	if rerr != nil {
		return nil, Header{Code: 404}, perr.New(perr.EntityNotFound)
	}
	return data, Header{Code: 200, MimeType: mimeFor(p), Size: int64(len(data))}, nil
}

// FetchAsync does the identical read but calls progress at 0.1 before
// starting and 1.0 once the whole file is buffered, matching the
// two-call contract `fetcher-local.cpp`'s progress tracker uses for a
// file completed in a single read (spec.md §4.F).
func (b *LocalBackend) FetchAsync(ctx context.Context, req *Request, progress func(float64)) ([]byte, Header, *perr.Error) {
	progress(0.1)
	select {
	case <-ctx.Done():
		return nil, Header{Code: RespCode(499)}, perr.New(perr.RequestFailed)
	default:
	}

	data, hdr, err := b.FetchSync(ctx, req)
	if err != nil {
		return nil, hdr, err
	}

	select {
	case <-ctx.Done():
		return nil, Header{Code: RespCode(499)}, perr.New(perr.RequestFailed)
	default:
	}
	progress(1.0)
	return data, hdr, nil
}

func mimeFor(path string) string {
	t := mime.TypeByExtension(filepath.Ext(path))
	if t == "" {
		return "application/octet-stream"
	}
	return t
}
