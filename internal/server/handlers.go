package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/goliatone/go-autoquote/pkg/cascade"
	"github.com/goliatone/go-autoquote/pkg/render"
	"github.com/goliatone/go-autoquote/pkg/vinfill"
	"github.com/goliatone/go-autoquote/pkg/wizard"
)

type statusError struct {
	status int
	msg    string
}

func (e statusError) Error() string { return e.msg }

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": s.sessions.Len()})
}

// session returns the caller's session, starting one and setting the cookie
// when the cookie is missing or stale.
func (s *Server) session(w http.ResponseWriter, r *http.Request) *Session {
	if cookie, err := r.Cookie(s.opts.CookieName); err == nil {
		if sess, ok := s.sessions.Get(cookie.Value); ok {
			return sess
		}
	}
	sess := s.sessions.Create()
	http.SetCookie(w, &http.Cookie{
		Name:     s.opts.CookieName,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
	})
	s.opts.Logger.DebugContext(r.Context(), "server: session started", "session", sess.ID)
	return sess
}

func (s *Server) renderOptions(step string) render.RenderOptions {
	opts := render.RenderOptions{Action: s.opts.BasePath, BasePath: s.opts.BasePath}
	if step != "" {
		opts.Hidden = map[string]string{StepField: step}
	}
	return opts
}

// renderView writes vm with the renderer the Accept header asks for.
func (s *Server) renderView(w http.ResponseWriter, r *http.Request, status int, vm wizard.ViewModel) {
	renderer, err := s.renderers.Negotiate(r.Header.Get("Accept"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	body, err := renderer.Render(r.Context(), vm, s.renderOptions(vm.Step))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", renderer.ContentType())
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func (s *Server) handleShow(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	sess.mu.Lock()
	vm := sess.seq.View(sess.snapshots())
	sess.mu.Unlock()
	s.renderView(w, r, http.StatusOK, vm)
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	sess.mu.Lock()
	vm := sess.seq.View(sess.snapshots())
	sess.mu.Unlock()
	writeJSON(w, http.StatusOK, vm)
}

// handleSubmit validates the posted step. Success redirects back to the
// wizard, except on the final step, which hands the flattened quote to the
// submitter and renders its form.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, statusError{http.StatusBadRequest, "malformed form"})
		return
	}
	values := formValues(r)
	sess := s.session(w, r)

	sess.mu.Lock()
	step, ok := sess.seq.Current()
	if !ok {
		sess.mu.Unlock()
		http.Redirect(w, r, s.opts.BasePath, http.StatusSeeOther)
		return
	}
	if posted, has := values[StepField]; has && posted != step.ID {
		sess.mu.Unlock()
		s.opts.Logger.DebugContext(r.Context(), "server: stale step posted", "posted", posted, "current", step.ID)
		http.Redirect(w, r, s.opts.BasePath, http.StatusSeeOther)
		return
	}
	delete(values, StepField)

	err := sess.seq.Submit(values)
	var verr *wizard.ValidationError
	switch {
	case errors.As(err, &verr):
		vm := sess.seq.View(sess.snapshots())
		sess.mu.Unlock()
		s.renderView(w, r, http.StatusUnprocessableEntity, vm)
		return
	case err != nil:
		sess.mu.Unlock()
		s.fail(w, r, err)
		return
	}

	if !sess.seq.Done() {
		sess.mu.Unlock()
		http.Redirect(w, r, s.opts.BasePath, http.StatusSeeOther)
		return
	}
	record := sess.seq.Record()
	vm := sess.seq.View(nil)
	sess.mu.Unlock()

	sub, err := s.opts.Submitter.Submit(r.Context(), record)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.opts.Logger.InfoContext(r.Context(), "server: quote submitted", "session", sess.ID, "fields", len(sub.Flat))

	renderer, err := s.renderers.Negotiate(r.Header.Get("Accept"))
	if err == nil && renderer.Name() == s.opts.HTML.Name() && sub.Form.Action != "" {
		body, err := s.opts.HTML.RenderSubmit(r.Context(), sub.Form, render.RenderOptions{BasePath: s.opts.BasePath})
		if err != nil {
			s.fail(w, r, err)
			return
		}
		w.Header().Set("Content-Type", s.opts.HTML.ContentType())
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
		return
	}
	s.renderView(w, r, http.StatusOK, vm)
}

// handleResize changes a group count. JSON clients get the new view model;
// others are redirected back to the wizard.
func (s *Server) handleResize(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, statusError{http.StatusBadRequest, "malformed form"})
		return
	}
	group := strings.TrimSpace(r.PostForm.Get("group"))
	count, err := strconv.Atoi(strings.TrimSpace(r.PostForm.Get("count")))
	if group == "" || err != nil {
		writeError(w, statusError{http.StatusBadRequest, "group and a numeric count are required"})
		return
	}

	sess := s.session(w, r)
	sess.mu.Lock()
	if err := sess.seq.Resize(group, count); err != nil {
		sess.mu.Unlock()
		switch {
		case errors.Is(err, wizard.ErrCompleted):
			writeError(w, statusError{http.StatusConflict, err.Error()})
		case errors.Is(err, wizard.ErrUnknownGroup), errors.Is(err, wizard.ErrCountOutOfRange):
			writeError(w, statusError{http.StatusBadRequest, err.Error()})
		default:
			s.fail(w, r, err)
		}
		return
	}
	if _, ok := cascadeGroup(sess.seq, group); ok {
		sess.resetSelectors()
	}
	vm := sess.seq.View(sess.snapshots())
	sess.mu.Unlock()

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, vm)
		return
	}
	http.Redirect(w, r, s.opts.BasePath, http.StatusSeeOther)
}

// handleSelect applies a year, make or model change to one vehicle and
// answers with the selector state once the dependent fetch has settled.
func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, statusError{http.StatusBadRequest, "malformed form"})
		return
	}
	sel, ok := s.vehicleSelector(w, r)
	if !ok {
		return
	}

	field := strings.TrimSpace(r.PostForm.Get("field"))
	value := strings.TrimSpace(r.PostForm.Get("value"))
	// Fetches outlive the request so a slow answer still lands in the
	// selector for the next render.
	fetchCtx := context.WithoutCancel(r.Context())

	var (
		pending <-chan struct{}
		err     error
	)
	switch field {
	case cascade.FieldYear:
		if value == "" {
			sel.Reset()
			break
		}
		year, convErr := strconv.Atoi(value)
		if convErr != nil {
			writeError(w, statusError{http.StatusBadRequest, "year must be a number"})
			return
		}
		pending, err = sel.SelectYear(fetchCtx, year)
	case cascade.FieldMake:
		if value != "" {
			pending, err = sel.SelectMake(fetchCtx, value)
		}
	case cascade.FieldModel:
		if value != "" {
			err = sel.SelectModel(value)
		}
	default:
		writeError(w, statusError{http.StatusBadRequest, "field must be year, make or model"})
		return
	}
	switch {
	case errors.Is(err, cascade.ErrUnknownOption):
		writeError(w, statusError{http.StatusUnprocessableEntity, err.Error()})
		return
	case errors.Is(err, cascade.ErrNotReady):
		writeError(w, statusError{http.StatusConflict, err.Error()})
		return
	case err != nil:
		s.fail(w, r, err)
		return
	}

	if pending != nil {
		ctx, cancel := context.WithTimeout(r.Context(), s.opts.SelectWait)
		select {
		case <-pending:
		case <-ctx.Done():
		}
		cancel()
	}
	writeJSON(w, http.StatusOK, sel.Snapshot())
}

type vinResponse struct {
	cascade.Snapshot
	Fill vinfill.Result `json:"fill"`
}

// handleVIN decodes a VIN into one vehicle's selector. A failed decode is
// not an error; the response just shows what got applied.
func (s *Server) handleVIN(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, statusError{http.StatusBadRequest, "malformed form"})
		return
	}
	if s.filler == nil {
		writeError(w, statusError{http.StatusNotImplemented, "vin decoding is not configured"})
		return
	}
	sel, ok := s.vehicleSelector(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.opts.SelectWait)
	defer cancel()
	result := s.filler.Fill(ctx, sel, r.PostForm.Get("vin"))
	writeJSON(w, http.StatusOK, vinResponse{Snapshot: sel.Snapshot(), Fill: result})
}

// vehicleSelector resolves the {index} route parameter against the current
// step's cascading group. It writes the error response itself.
func (s *Server) vehicleSelector(w http.ResponseWriter, r *http.Request) (*cascade.Selector, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 {
		writeError(w, statusError{http.StatusBadRequest, "index must be a non-negative number"})
		return nil, false
	}

	sess := s.session(w, r)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	group, ok := cascadeGroup(sess.seq, "")
	if !ok {
		writeError(w, statusError{http.StatusConflict, "the current step has no vehicle selectors"})
		return nil, false
	}
	if index >= sess.seq.Count(group) {
		writeError(w, statusError{http.StatusNotFound, "no vehicle at index " + strconv.Itoa(index)})
		return nil, false
	}
	return sess.selector(index), true
}

// cascadeGroup finds the group of the current step whose fields cascade.
// A non-empty name restricts the search to that group.
func cascadeGroup(seq *wizard.Sequencer, name string) (string, bool) {
	step, ok := seq.Current()
	if !ok {
		return "", false
	}
	for _, g := range step.Groups {
		if name != "" && g.Name != name {
			continue
		}
		for _, field := range g.Fields {
			if field.Cascade != "" {
				return g.Name, true
			}
		}
	}
	return "", false
}

func formValues(r *http.Request) map[string]string {
	values := make(map[string]string, len(r.PostForm))
	for key, list := range r.PostForm {
		if len(list) > 0 {
			values[key] = list[0]
		}
	}
	return values
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	s.opts.Logger.ErrorContext(r.Context(), "server: request failed", "path", r.URL.Path, "error", err)
	writeError(w, statusError{http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)})
}

func writeError(w http.ResponseWriter, err statusError) {
	writeJSON(w, err.status, map[string]string{"error": err.msg})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
