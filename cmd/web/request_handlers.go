package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"storeframe.app/storeframe-web/internal/httpx"
	mw "storeframe.app/storeframe-web/internal/middleware"
	"storeframe.app/storeframe-web/internal/observability"
	"storeframe.app/storeframe-web/internal/request"
	"storeframe.app/storeframe-web/internal/webhook"
)

const maxUploadBytes = 32 << 20

// RequestDialogFrag opens a fresh request form for the selected template and
// renders the dialog fragment. Any previously open form for the session is
// discarded.
func (app *application) RequestDialogFrag(w http.ResponseWriter, r *http.Request) {
	sess := mw.GetSession(r)
	if sess == nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("session_required", "session could not be established", http.StatusBadRequest))
		return
	}
	templateID := strings.TrimSpace(r.URL.Query().Get("template"))
	if templateID == "" {
		httpx.WriteError(r.Context(), w, httpx.NewError("template_required", "select a template before opening the request form", http.StatusBadRequest))
		return
	}
	preview := r.URL.Query().Get("preview")

	form := app.forms.Open(sess.ID, templateID, preview)
	view := buildRequestDialogView(form.Snapshot(), app.loadGuidelines(), nil)
	renderTemplate(w, r, "frag_request_dialog", view)
}

// RequestURLAdd appends an empty URL field and re-renders the URL list.
func (app *application) RequestURLAdd(w http.ResponseWriter, r *http.Request) {
	form, ok := app.openForm(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("invalid_form", "could not parse form data", http.StatusBadRequest))
		return
	}
	syncFormFields(form, r.PostForm)
	form.AddURLField()
	renderTemplate(w, r, "frag_request_urls", RequestURLListView{URLs: buildURLFieldViews(form.Snapshot().URLs)})
}

// RequestURLRemove deletes the URL field at the posted index. An index that no
// longer exists is ignored and the current list is rendered unchanged.
func (app *application) RequestURLRemove(w http.ResponseWriter, r *http.Request) {
	form, ok := app.openForm(w, r)
	if !ok {
		return
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("invalid_index", "url index must be a number", http.StatusBadRequest))
		return
	}
	if err := r.ParseForm(); err != nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("invalid_form", "could not parse form data", http.StatusBadRequest))
		return
	}
	syncFormFields(form, r.PostForm)
	form.RemoveURLField(index)
	renderTemplate(w, r, "frag_request_urls", RequestURLListView{URLs: buildURLFieldViews(form.Snapshot().URLs)})
}

// RequestFilesAdd appends the uploaded files to the form. Uploads accumulate
// across requests; picking more files never replaces the ones already added.
func (app *application) RequestFilesAdd(w http.ResponseWriter, r *http.Request) {
	form, ok := app.openForm(w, r)
	if !ok {
		return
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("invalid_upload", "could not parse upload", http.StatusBadRequest))
		return
	}
	syncFormFields(form, url.Values(r.MultipartForm.Value))

	var files []request.File
	for _, header := range r.MultipartForm.File["file"] {
		f, err := header.Open()
		if err != nil {
			observability.FromContext(r.Context()).Warn("open upload", zap.String("name", header.Filename), zap.Error(err))
			continue
		}
		content, readErr := io.ReadAll(f)
		f.Close()
		if readErr != nil {
			observability.FromContext(r.Context()).Warn("read upload", zap.String("name", header.Filename), zap.Error(readErr))
			continue
		}
		files = append(files, request.File{Name: header.Filename, Content: content})
	}

	added := form.AddFiles(files)
	if added > 0 {
		setToast(w, fileCountMessage(added), "success")
	}
	renderTemplate(w, r, "frag_request_files", RequestFileListView{Files: buildFileViews(form.Snapshot().FileNames)})
}

// RequestFileRemove deletes the upload at the posted index.
func (app *application) RequestFileRemove(w http.ResponseWriter, r *http.Request) {
	form, ok := app.openForm(w, r)
	if !ok {
		return
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("invalid_index", "file index must be a number", http.StatusBadRequest))
		return
	}
	form.RemoveFile(index)
	renderTemplate(w, r, "frag_request_files", RequestFileListView{Files: buildFileViews(form.Snapshot().FileNames)})
}

// RequestSubmit validates the form and relays it to the fulfilment webhook.
// Validation failures and relay failures re-render the dialog with an inline
// alert and the entered values intact.
func (app *application) RequestSubmit(w http.ResponseWriter, r *http.Request) {
	form, ok := app.openForm(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("invalid_form", "could not parse form data", http.StatusBadRequest))
		return
	}
	syncFormFields(form, r.PostForm)

	err := form.Submit(r.Context(), time.Now(), app.webhook)
	if err != nil {
		app.renderSubmitError(w, r, form, err)
		return
	}

	snap := form.Snapshot()
	setToast(w, "Request submitted.", "success")
	renderTemplate(w, r, "frag_request_success", RequestSuccessView{
		Reference: snap.Reference,
		Email:     snap.Email,
	})
}

// RequestDismiss closes the acknowledgement dialog and resets the session's
// form so the next template starts from a blank slate.
func (app *application) RequestDismiss(w http.ResponseWriter, r *http.Request) {
	sess := mw.GetSession(r)
	if sess == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if form, ok := app.forms.Get(sess.ID); ok {
		form.DismissAcknowledgement()
	}
	app.forms.Close(sess.ID)
	w.WriteHeader(http.StatusOK)
}

func (app *application) renderSubmitError(w http.ResponseWriter, r *http.Request, form *request.Form, err error) {
	logger := observability.FromContext(r.Context())

	var alert RequestAlertView
	status := http.StatusUnprocessableEntity

	var vErr *request.ValidationError
	var sErr *webhook.StatusError
	switch {
	case errors.As(err, &vErr):
		alert = RequestAlertView{Tone: "error", Message: vErr.Message}
	case errors.Is(err, request.ErrSubmitInFlight):
		status = http.StatusConflict
		alert = RequestAlertView{Tone: "info", Message: "Your request is already being submitted."}
	case errors.As(err, &sErr):
		logger.Error("webhook rejected submission", zap.Int("status", sErr.Code))
		status = http.StatusBadGateway
		alert = RequestAlertView{Tone: "error", Message: "We could not submit your request. Please try again."}
	default:
		logger.Error("webhook relay failed", zap.Error(err))
		status = http.StatusBadGateway
		alert = RequestAlertView{Tone: "error", Message: "We could not submit your request. Please try again."}
	}

	w.WriteHeader(status)
	renderTemplate(w, r, "frag_request_dialog", buildRequestDialogView(form.Snapshot(), app.loadGuidelines(), &alert))
}

// openForm resolves the session's in-flight request form. It writes a 404
// envelope when no form is open, which happens when the session expired or the
// dialog was never opened.
func (app *application) openForm(w http.ResponseWriter, r *http.Request) (*request.Form, bool) {
	sess := mw.GetSession(r)
	if sess == nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("session_required", "session could not be established", http.StatusBadRequest))
		return nil, false
	}
	form, ok := app.forms.Get(sess.ID)
	if !ok {
		httpx.WriteError(r.Context(), w, httpx.NewError("no_open_request", "open a template before editing the request form", http.StatusNotFound))
		return nil, false
	}
	return form, true
}

// syncFormFields copies the posted scalar fields and positional URL values
// into the form before the requested mutation is applied, so edits made since
// the last round trip are not lost.
func syncFormFields(form *request.Form, values url.Values) {
	if _, ok := values["storeName"]; ok {
		form.SetStoreName(values.Get("storeName"))
	}
	if _, ok := values["email"]; ok {
		form.SetEmail(values.Get("email"))
	}
	if _, ok := values["criteria"]; ok {
		form.SetCriteria(values.Get("criteria"))
	}
	for i, v := range values["url"] {
		form.UpdateURLField(i, v)
	}
}

func fileCountMessage(added int) string {
	if added == 1 {
		return "Added 1 file."
	}
	return fmt.Sprintf("Added %d files.", added)
}

func setToast(w http.ResponseWriter, message, tone string) {
	payload, err := json.Marshal(map[string]any{
		"toast": map[string]string{"message": message, "tone": tone},
	})
	if err != nil {
		return
	}
	w.Header().Set("HX-Trigger", string(payload))
}
