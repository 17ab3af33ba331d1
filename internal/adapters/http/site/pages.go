package site

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/signupdesk/internal/app"
	"github.com/okian/signupdesk/pkg/logger"
)

// handleIndex serves GET /: a freshly loaded page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.servePage(w, r, nil)
}

// handleSignup serves POST /: a loaded page with the posted form submitted.
// The activity list is the one loaded before the signup.
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	email := r.PostForm.Get("email")
	activity := r.PostForm.Get("activity")
	s.servePage(w, r, func(ctx context.Context, p *app.Page) {
		if err := p.Submit(ctx, email, activity); err != nil {
			s.logger.Debug(ctx, "signup not completed", logger.String("page_id", p.ID()), logger.Error(err))
		}
	})
}

func (s *Server) servePage(w http.ResponseWriter, r *http.Request, interact func(context.Context, *app.Page)) {
	ctx := r.Context()
	p, err := s.newPage(ctx)
	if err != nil {
		s.logger.Error(ctx, "open page", logger.Error(fmt.Errorf("%w: %w", ErrNewPage, err)))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	defer s.closePage(ctx, p)

	// A failed load is already rendered into the list.
	if err := p.Ready(ctx); err != nil {
		s.logger.Debug(ctx, "activities not loaded", logger.String("page_id", p.ID()), logger.Error(err))
	}
	if interact != nil {
		interact(ctx, p)
	}

	var buf bytes.Buffer
	if err := p.Render(ctx, &buf); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		s.logger.Error(ctx, "render page", logger.Error(fmt.Errorf("%w: %w", ErrRender, err)))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) closePage(ctx context.Context, p *app.Page) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.closeTimeout)
	defer cancel()
	if err := p.Close(ctx); err != nil {
		s.logger.Warn(ctx, "close page", logger.String("page_id", p.ID()), logger.Error(err))
	}
}
