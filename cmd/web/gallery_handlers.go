package main

import (
	"net/http"

	"go.uber.org/zap"

	"storeframe.app/storeframe-web/internal/catalog"
	"storeframe.app/storeframe-web/internal/gallery"
	"storeframe.app/storeframe-web/internal/observability"
)

// GalleryView is the view model for the template gallery.
type GalleryView struct {
	Templates  []GalleryCardView
	Total      int
	HasMore    bool
	FetchError bool
}

// GalleryCardView renders one selectable template card.
type GalleryCardView struct {
	ID           string
	ThumbnailURL string
	Preview      string
}

// GalleryPageData is the view model for the gallery page.
type GalleryPageData struct {
	Title   string
	Gallery GalleryView
}

// GalleryHandler renders the gallery page. The template fetch happens exactly
// once per page load; a failed fetch logs the cause and renders an empty
// gallery with no retry.
func (app *application) GalleryHandler(w http.ResponseWriter, r *http.Request) {
	view := app.buildGalleryView(r, false)
	vm := GalleryPageData{
		Title:   "Storeframe",
		Gallery: view,
	}
	renderPage(w, r, vm)
}

// GalleryGridFrag re-renders the gallery grid fragment. With all=1 every
// remaining template is revealed at once.
func (app *application) GalleryGridFrag(w http.ResponseWriter, r *http.Request) {
	revealAll := r.URL.Query().Get("all") == "1"
	view := app.buildGalleryView(r, revealAll)
	renderTemplate(w, r, "frag_gallery_grid", view)
}

func (app *application) buildGalleryView(r *http.Request, revealAll bool) GalleryView {
	list := gallery.NewList()
	gen := list.BeginFetch()

	templates, err := app.catalog.FetchTemplates(r.Context(), catalog.Query{
		RequestingUserID: app.cfg.TemplateAPI.RequestingUserID,
		Page:             app.cfg.TemplateAPI.Page,
		Limit:            app.cfg.TemplateAPI.Limit,
		Filter:           app.cfg.TemplateAPI.Filter,
		SortBy:           app.cfg.TemplateAPI.SortBy,
		SortOrder:        app.cfg.TemplateAPI.SortOrder,
	})
	if err != nil {
		observability.FromContext(r.Context()).Error("fetch templates", zap.Error(err))
		return GalleryView{FetchError: true}
	}
	list.Replace(gen, templates)
	if revealAll {
		list.RevealMore()
	}

	visible := list.Visible()
	cards := make([]GalleryCardView, 0, len(visible))
	for _, t := range visible {
		cards = append(cards, GalleryCardView{
			ID:           t.ID,
			ThumbnailURL: t.ThumbnailURL,
			Preview:      t.Preview,
		})
	}
	return GalleryView{
		Templates: cards,
		Total:     list.Len(),
		HasMore:   list.HasMore(),
	}
}
