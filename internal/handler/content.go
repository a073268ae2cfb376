// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/olegiv/folio-go/internal/apperr"
	"github.com/olegiv/folio-go/internal/cache"
	"github.com/olegiv/folio-go/internal/content"
	"github.com/olegiv/folio-go/internal/markup"
	"github.com/olegiv/folio-go/internal/model"
)

// Cache keys of the public content API.
const (
	ContentKeyPrefix = "content:"
	contentKey       = ContentKeyPrefix + "public"
)

// PublicSettings is the public part of the site settings.
type PublicSettings struct {
	IntroLines         []string           `json:"intro_lines"`
	GradientTitles     []string           `json:"gradient_titles"`
	ProfileDescription string             `json:"profile_description"`
	ProfilePhotoURL    string             `json:"profile_photo_url"`
	AboutDescription   template.HTML      `json:"about_description"`
	AboutPhotoURL      string             `json:"about_photo_url"`
	CVURL              string             `json:"cv_url"`
	SocialLinks        []model.SocialLink `json:"social_links"`
}

// PublicProject is a project as shown by the portfolio page.
type PublicProject struct {
	ID               string          `json:"id"`
	Title            string          `json:"title"`
	ShortDescription string          `json:"description"`
	LongDescHTML     template.HTML   `json:"long_desc_html"`
	Tools            model.ToolList  `json:"tools"`
	Media            model.MediaList `json:"media"`
	Thumbnail        string          `json:"thumbnail"`
}

// PublicContent is the payload of GET /api/content.
type PublicContent struct {
	Settings    PublicSettings     `json:"settings"`
	Experiences []model.Experience `json:"experiences"`
	Projects    []PublicProject    `json:"projects"`
	Skills      []model.Skill      `json:"skills"`
	GeneratedAt time.Time          `json:"generated_at"`
}

// ContentHandler serves the public, cached site content.
type ContentHandler struct {
	repo     *content.Repository
	cache    cache.Cache
	payload  *cache.Typed[PublicContent]
	renderer *markup.Renderer
	logger   *slog.Logger
}

// NewContentHandler creates a new ContentHandler.
func NewContentHandler(repo *content.Repository, c cache.Cache, ttl time.Duration, renderer *markup.Renderer, logger *slog.Logger) *ContentHandler {
	return &ContentHandler{
		repo:     repo,
		cache:    c,
		payload:  cache.NewTyped[PublicContent](c, ttl),
		renderer: renderer,
		logger:   logger,
	}
}

// Content handles GET /api/content.
func (h *ContentHandler) Content(w http.ResponseWriter, r *http.Request) {
	pc, err := h.payload.GetOrLoad(r.Context(), contentKey, h.load)
	if err != nil {
		h.logger.Warn("public content unavailable", "category", model.EventCategoryContent, "error", err)
		writeJSONError(w, apperr.KindFetch.HTTPStatus(), "content is temporarily unavailable")
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=60")
	writeJSON(w, http.StatusOK, pc)
}

// Invalidate drops the cached content. It is called after every change
// made in the admin workspace.
func (h *ContentHandler) Invalidate(ctx context.Context) {
	if err := h.cache.DeleteByPrefix(ctx, ContentKeyPrefix); err != nil {
		h.logger.Warn("failed to invalidate content cache", "error", err)
	}
}

func (h *ContentHandler) load(ctx context.Context) (PublicContent, error) {
	settings, err := h.repo.Settings.List(ctx)
	if err != nil {
		return PublicContent{}, err
	}
	experiences, err := h.repo.Experiences.List(ctx)
	if err != nil {
		return PublicContent{}, err
	}
	projects, err := h.repo.Projects.List(ctx)
	if err != nil {
		return PublicContent{}, err
	}
	skills, err := h.repo.Skills.List(ctx)
	if err != nil {
		return PublicContent{}, err
	}

	pc := PublicContent{
		Experiences: experiences,
		Projects:    make([]PublicProject, 0, len(projects)),
		Skills:      skills,
		GeneratedAt: time.Now().UTC(),
	}
	if len(settings) > 0 {
		pc.Settings = h.publicSettings(settings[0])
	} else {
		pc.Settings = PublicSettings{SocialLinks: []model.SocialLink{}}
	}
	for _, p := range projects {
		pc.Projects = append(pc.Projects, h.publicProject(p))
	}
	return pc, nil
}

func (h *ContentHandler) publicSettings(s model.SiteSettings) PublicSettings {
	links := make([]model.SocialLink, 0, len(s.SocialLinks))
	for _, l := range s.SocialLinks {
		if l.URL != "" {
			links = append(links, l)
		}
	}
	return PublicSettings{
		IntroLines:         s.IntroLines(),
		GradientTitles:     s.GradientTitleLines(),
		ProfileDescription: markup.PlainText(s.ProfileDescription),
		ProfilePhotoURL:    s.ProfilePhotoURL,
		AboutDescription:   h.renderer.Sanitize(s.AboutDescription),
		AboutPhotoURL:      s.AboutPhotoURL,
		CVURL:              s.CVURL,
		SocialLinks:        links,
	}
}

func (h *ContentHandler) publicProject(p model.Project) PublicProject {
	long, err := h.renderer.Markdown(p.LongDescription)
	if err != nil {
		h.logger.Warn("failed to render project description", "id", p.ID, "error", err)
		long = template.HTML(template.HTMLEscapeString(p.LongDescription))
	}
	return PublicProject{
		ID:               p.ID,
		Title:            p.Title,
		ShortDescription: p.ShortDescription,
		LongDescHTML:     long,
		Tools:            p.Tools,
		Media:            p.Media,
		Thumbnail:        p.Thumbnail(),
	}
}
