package main

import (
	"errors"

	"storeframe.app/storeframe-web/internal/content"
	"storeframe.app/storeframe-web/internal/request"
)

// RequestAlertView carries an inline alert shown inside the dialog.
type RequestAlertView struct {
	Tone    string
	Message string
}

// RequestURLFieldView renders one editable URL entry.
type RequestURLFieldView struct {
	Index int
	Value string
}

// RequestFileView renders one accumulated upload.
type RequestFileView struct {
	Index int
	Name  string
}

// RequestURLListView is the standalone view model for the URL list fragment.
type RequestURLListView struct {
	URLs []RequestURLFieldView
}

// RequestFileListView is the standalone view model for the file list fragment.
type RequestFileListView struct {
	Files []RequestFileView
}

// RequestDialogView is the view model for the full request dialog fragment.
type RequestDialogView struct {
	TemplateID string
	Preview    string
	StoreName  string
	Email      string
	Criteria   string
	URLs       []RequestURLFieldView
	Files      []RequestFileView
	Status     string
	Alert      *RequestAlertView
	Guidelines *content.Page
}

// RequestSuccessView is the view model for the acknowledgement dialog.
type RequestSuccessView struct {
	Reference string
	Email     string
}

func buildRequestDialogView(snap request.Snapshot, guidelines *content.Page, alert *RequestAlertView) RequestDialogView {
	view := RequestDialogView{
		TemplateID: snap.TemplateID,
		Preview:    snap.Preview,
		StoreName:  snap.StoreName,
		Email:      snap.Email,
		Criteria:   snap.Criteria,
		URLs:       buildURLFieldViews(snap.URLs),
		Files:      buildFileViews(snap.FileNames),
		Status:     string(snap.Status),
		Alert:      alert,
		Guidelines: guidelines,
	}
	return view
}

func buildURLFieldViews(urls []string) []RequestURLFieldView {
	out := make([]RequestURLFieldView, 0, len(urls))
	for i, u := range urls {
		out = append(out, RequestURLFieldView{Index: i, Value: u})
	}
	return out
}

func buildFileViews(names []string) []RequestFileView {
	out := make([]RequestFileView, 0, len(names))
	for i, name := range names {
		out = append(out, RequestFileView{Index: i, Name: name})
	}
	return out
}

func (app *application) loadGuidelines() *content.Page {
	if app.content == nil {
		return nil
	}
	page, err := app.content.Load("guidelines")
	if err != nil {
		if !errors.Is(err, content.ErrNotFound) {
			app.logger.Warn("load guidelines: " + err.Error())
		}
		return nil
	}
	return &page
}
