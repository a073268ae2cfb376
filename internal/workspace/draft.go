// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package workspace

import (
	"encoding/json"
	"fmt"

	"github.com/olegiv/folio-go/internal/apperr"
	"github.com/olegiv/folio-go/internal/model"
)

// ProjectDraft is the project form as the admin edits it: tools are a
// single comma-delimited string.
type ProjectDraft struct {
	Title            string          `json:"title"`
	ShortDescription string          `json:"description"`
	LongDescription  string          `json:"longDesc"`
	Tools            string          `json:"tools"`
	Media            model.MediaList `json:"media"`
}

// ProjectDraftFrom fills a draft from a stored project.
func ProjectDraftFrom(p model.Project) ProjectDraft {
	return ProjectDraft{
		Title:            p.Title,
		ShortDescription: p.ShortDescription,
		LongDescription:  p.LongDescription,
		Tools:            p.Tools.String(),
		Media:            append(model.MediaList{}, p.Media...),
	}
}

// Project converts the draft into a record with the given id.
func (d ProjectDraft) Project(id string) model.Project {
	return model.Project{
		ID:               id,
		Title:            d.Title,
		ShortDescription: d.ShortDescription,
		LongDescription:  d.LongDescription,
		Tools:            model.ParseTools(d.Tools),
		Media:            append(model.MediaList{}, d.Media...),
	}
}

// newDraft returns the empty draft of a collection form.
func newDraft(c model.Collection) (any, error) {
	switch c {
	case model.CollectionExperiences:
		return model.Experience{}, nil
	case model.CollectionProjects:
		return ProjectDraft{Media: model.MediaList{}}, nil
	case model.CollectionSkills:
		return model.Skill{Level: model.DefaultSkillLevel}, nil
	default:
		return nil, apperr.Validation("workspace.form", fmt.Errorf("%q has no collection form", c))
	}
}

// DecodeDraft parses a JSON form body for collection c.
func DecodeDraft(c model.Collection, data []byte) (any, error) {
	var (
		draft any
		err   error
	)
	switch c {
	case model.CollectionExperiences:
		var e model.Experience
		err = json.Unmarshal(data, &e)
		draft = e
	case model.CollectionProjects:
		var p ProjectDraft
		err = json.Unmarshal(data, &p)
		draft = p
	case model.CollectionSkills:
		var s model.Skill
		err = json.Unmarshal(data, &s)
		draft = s
	default:
		return nil, apperr.Validation("workspace.decode", fmt.Errorf("%q has no collection form", c))
	}
	if err != nil {
		return nil, apperr.Validation("workspace.decode", fmt.Errorf("malformed form body: %w", err))
	}
	return draft, nil
}

// toRecord normalizes a draft into the record stored for collection c.
func toRecord(c model.Collection, draft any, id string) (model.Record, error) {
	switch d := draft.(type) {
	case model.Experience:
		if c == model.CollectionExperiences {
			d.ID = id
			return d, nil
		}
	case ProjectDraft:
		if c == model.CollectionProjects {
			return d.Project(id), nil
		}
	case model.Skill:
		if c == model.CollectionSkills {
			d.ID = id
			return d, nil
		}
	}
	return nil, apperr.Validation("workspace.submit", fmt.Errorf("draft of type %T does not belong to %q", draft, c))
}

// draftFrom fills a draft from a stored record of collection c.
func draftFrom(rec model.Record) any {
	switch r := rec.(type) {
	case model.Project:
		return ProjectDraftFrom(r)
	case model.Experience:
		r.ID = ""
		return r
	case model.Skill:
		r.ID = ""
		return r
	default:
		return rec
	}
}
