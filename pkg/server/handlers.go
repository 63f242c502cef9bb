package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	vderrors "github.com/vango-dev/viewdiff/internal/errors"
	"github.com/vango-dev/viewdiff/pkg/mounting"
	"github.com/vango-dev/viewdiff/pkg/mutation"
	"github.com/vango-dev/viewdiff/pkg/shadow"
	"github.com/vango-dev/viewdiff/pkg/treedoc"
	"github.com/vango-dev/viewdiff/pkg/treestore"
)

// SurfaceInfo describes a running surface.
type SurfaceInfo struct {
	ID          string     `json:"id"`
	Root        shadow.Tag `json:"root"`
	Number      uint64     `json:"number"`
	Subscribers int        `json:"subscribers"`
}

// CommitResult is the response to a commit.
type CommitResult struct {
	Surface     string        `json:"surface"`
	Number      uint64        `json:"number"`
	Mutations   mutation.List `json:"mutations"`
	DiffSeconds float64       `json:"diffSeconds"`
	CommittedAt time.Time     `json:"committedAt"`
}

func surfaceInfo(c *mounting.Coordinator) SurfaceInfo {
	return SurfaceInfo{
		ID:          c.ID(),
		Root:        c.Root().View().Tag,
		Number:      c.Number(),
		Subscribers: c.Subscribers(),
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"surfaces": len(s.surfaces.IDs()),
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	list := []SurfaceInfo{}
	for _, id := range s.surfaces.IDs() {
		c, err := s.surfaces.Get(id)
		if err != nil {
			continue // stopped meanwhile
		}
		list = append(list, surfaceInfo(c))
	}
	writeJSON(w, http.StatusOK, map[string]any{"surfaces": list})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	root, err := s.readTree(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	c, err := s.surfaces.Start(id, root)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, surfaceInfo(c))
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if err := s.surfaces.Stop(chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	c, err := s.surfaces.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	f := treedoc.FormatJSON
	contentType := "application/json"
	switch format := r.URL.Query().Get("format"); format {
	case "", "json":
	case "yaml", "yml":
		f = treedoc.FormatYAML
		contentType = "application/yaml"
	default:
		s.writeError(w, r, vderrors.New("E203").WithDetailf("unknown format %q", format))
		return
	}

	data, err := treedoc.Encode(c.Root(), f)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	_, _ = w.Write(data)
}

func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	c, err := s.surfaces.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	root, err := s.readTree(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	tx, err := c.Commit(r.Context(), root)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	mutations := tx.Mutations
	if mutations == nil {
		mutations = mutation.List{}
	}
	writeJSON(w, http.StatusOK, CommitResult{
		Surface:     tx.Surface,
		Number:      tx.Number,
		Mutations:   mutations,
		DiffSeconds: tx.DiffDuration.Seconds(),
		CommittedAt: tx.CommittedAt,
	})
}

// readTree reads the tree of a start or commit request. The tree is
// either the request body (JSON, or YAML when the content type says so)
// or the document named by the source query parameter.
func (s *Server) readTree(w http.ResponseWriter, r *http.Request) (*shadow.Element, error) {
	if source := r.URL.Query().Get("source"); source != "" {
		return s.loadSource(r.Context(), source)
	}

	f := treedoc.FormatJSON
	if mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type")); err == nil && strings.HasSuffix(mt, "yaml") {
		f = treedoc.FormatYAML
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.config.MaxTreeBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, vderrors.New("E204").WithDetailf("limit is %d bytes", tooLarge.Limit)
		}
		return nil, vderrors.New("E200").Wrap(err)
	}
	return treedoc.Decode(data, f, "")
}

// loadSource reads a tree document from S3 or from the source directory.
func (s *Server) loadSource(ctx context.Context, source string) (*shadow.Element, error) {
	ref, err := treestore.ParseRef(source)
	if err != nil {
		return nil, err
	}
	if ref.IsS3() {
		return treestore.LoadTree(ctx, source, s.config.Storage)
	}
	if s.config.SourceDir == "" {
		return nil, vderrors.New("E221").WithDetail("file sources are disabled")
	}

	data, err := treestore.NewFileStore(s.config.SourceDir, s.config.MaxTreeBytes).Get(ctx, ref.Key)
	switch {
	case err == nil:
		return treedoc.DecodeFile(ref.Key, data)
	case errors.Is(err, treestore.ErrNotFound):
		return nil, vderrors.New("E220").WithDetail(source)
	case errors.Is(err, treestore.ErrInvalidKey):
		return nil, vderrors.New("E221").WithDetailf("%q leaves the source directory", source)
	case errors.Is(err, treestore.ErrTooLarge):
		return nil, vderrors.New("E204").WithDetailf("limit is %d bytes", s.config.MaxTreeBytes)
	default:
		return nil, vderrors.New("E222").WithDetail(source).Wrap(err)
	}
}

// statusFor maps an error code to an HTTP status.
func statusFor(code string) int {
	switch code {
	case "E312", "E220":
		return http.StatusNotFound
	case "E313", "E310", "E311":
		return http.StatusConflict
	case "E200", "E201", "E202", "E203", "E221":
		return http.StatusBadRequest
	case "E204":
		return http.StatusRequestEntityTooLarge
	case "E222":
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(vderrors.Code(err))
	e := vderrors.FromError(err, "E122")
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
	} else {
		s.logger.Debug("request rejected", "path", r.URL.Path, "code", e.Code, "error", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, `{"error":`+e.FormatJSON()+"}\n")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
