// Package dav serves the virtual share namespace over a read-only WebDAV
// subset: OPTIONS, PROPFIND (depth 0 and 1), and GET answered with a
// temporary redirect to the upstream download URL.
package dav

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/panshare/sharedav/internal/logging"
	"github.com/panshare/sharedav/internal/sharecode"
	"github.com/panshare/sharedav/internal/vfs"
)

const allowedMethods = "OPTIONS, GET, PROPFIND"

// URLResolver turns a file's identity into a direct download URL.
type URLResolver interface {
	ResolveURL(ctx context.Context, name, etag string, size int64) (string, error)
}

// Handler is the WebDAV protocol adapter over the VFS resolver.
type Handler struct {
	resolver       *vfs.Resolver
	urls           URLResolver
	resolveTimeout time.Duration
}

// NewHandler builds the protocol adapter. resolveTimeout bounds each upstream
// URL resolution.
func NewHandler(resolver *vfs.Resolver, urls URLResolver, resolveTimeout time.Duration) *Handler {
	return &Handler{resolver: resolver, urls: urls, resolveTimeout: resolveTimeout}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodOptions:
		w.Header().Set("Allow", allowedMethods)
		w.Header().Set("DAV", "1")
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		h.serveGet(w, r)
	case "PROPFIND":
		h.servePropfind(w, r)
	default:
		w.Header().Set("Allow", allowedMethods)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) serveGet(w http.ResponseWriter, r *http.Request) {
	node, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if node.IsDir() {
		w.Header().Set("Allow", "OPTIONS, PROPFIND")
		http.Error(w, "directories cannot be downloaded", http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.resolveTimeout)
	defer cancel()
	target, err := h.urls.ResolveURL(ctx, node.Name(), node.ETag(), node.Size())
	if err != nil {
		logging.Error("upstream URL resolution failed",
			zap.String("name", node.Name()),
			zap.String("etag", node.ETag()),
			zap.Error(err))
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
		return
	}
	http.Redirect(w, r, target, http.StatusTemporaryRedirect)
}

func (h *Handler) servePropfind(w http.ResponseWriter, r *http.Request) {
	node, ok := h.lookup(w, r)
	if !ok {
		return
	}

	depth := r.Header.Get("Depth")
	if depth == "" {
		depth = "1"
	}
	body, err := propfindBody(node, r.URL.Path, depth == "1")
	if err != nil {
		logging.Error("propfind render failed", zap.String("path", r.URL.Path), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.WriteHeader(http.StatusMultiStatus)
	w.Write(body)
}

// lookup resolves the request path, writing the error response itself when
// the path does not map to a node.
func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (vfs.NodeRef, bool) {
	node, err := h.resolver.Resolve(r.URL.Path)
	switch {
	case err == nil:
		return node, true
	case errors.Is(err, vfs.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, sharecode.ErrMalformedShareCode):
		// The share is indexed but its stored encoding is broken; to the
		// client that is indistinguishable from an absent resource.
		logging.Warn("malformed share code behind path",
			zap.String("path", r.URL.Path), zap.Error(err))
		http.Error(w, "not found", http.StatusNotFound)
	default:
		logging.Error("path resolution failed", zap.String("path", r.URL.Path), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
	return vfs.NodeRef{}, false
}
