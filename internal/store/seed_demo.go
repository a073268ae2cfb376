// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/olegiv/folio-go/internal/model"
)

// SeedDemo fills an empty portfolio with sample content so a fresh
// installation has something to show. Collections that already hold rows
// are left alone.
func SeedDemo(ctx context.Context, q *Queries) error {
	slog.Info("seeding demo content")

	if err := seedDemoSettings(ctx, q); err != nil {
		return fmt.Errorf("seeding demo settings: %w", err)
	}
	if err := seedDemoExperiences(ctx, q); err != nil {
		return fmt.Errorf("seeding demo experiences: %w", err)
	}
	if err := seedDemoProjects(ctx, q); err != nil {
		return fmt.Errorf("seeding demo projects: %w", err)
	}
	if err := seedDemoSkills(ctx, q); err != nil {
		return fmt.Errorf("seeding demo skills: %w", err)
	}

	slog.Info("demo content seeded successfully")
	return nil
}

func seedDemoSettings(ctx context.Context, q *Queries) error {
	current, err := q.GetSettings(ctx)
	if err != nil {
		return err
	}
	if current.IntroText != "" {
		slog.Info("settings already filled, skipping demo settings")
		return nil
	}

	_, err = q.PutSettings(ctx, model.SiteSettings{
		IntroText:          "Hi, I'm Ari\nI build things for the web",
		GradientTitles:     "Developer\nDesigner\nPhotographer",
		ProfileDescription: "Full-stack developer working on small, fast web products.",
		AboutDescription:   "Ten years of shipping backends, design systems and the occasional photo book.",
		CVURL:              "https://example.com/cv.pdf",
		SocialLinks: []model.SocialLink{
			{Name: "GitHub", URL: "https://github.com/example"},
			{Name: "LinkedIn", URL: "https://linkedin.com/in/example"},
		},
	})
	return err
}

func seedDemoExperiences(ctx context.Context, q *Queries) error {
	existing, err := q.ListExperiences(ctx, DefaultOrder)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		slog.Info("experiences already exist, skipping demo experiences")
		return nil
	}

	experiences := []model.Experience{
		{Title: "Junior Developer", Company: "Studio Satu", YearStart: "2016", YearEnd: "2018", Description: "Built marketing sites and internal tools."},
		{Title: "Backend Engineer", Company: "Kopi Labs", YearStart: "2018", YearEnd: "2022", Description: "Owned the payments and notification services."},
		{Title: "Lead Engineer", Company: "Nusa Digital", YearStart: "2022", YearEnd: "Present", Description: "Leading a team of six across web and mobile."},
	}
	for _, e := range experiences {
		if _, err := q.CreateExperience(ctx, e); err != nil {
			return fmt.Errorf("creating experience %q: %w", e.Title, err)
		}
	}

	slog.Info("seeded demo experiences", "count", len(experiences))
	return nil
}

func seedDemoProjects(ctx context.Context, q *Queries) error {
	existing, err := q.ListProjects(ctx, DefaultOrder)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		slog.Info("projects already exist, skipping demo projects")
		return nil
	}

	projects := []model.Project{
		{
			Title:            "Warung Finder",
			ShortDescription: "Map of street food stalls with live opening hours.",
			LongDescription:  "A **progressive web app** backed by a small Go API.\n\n- offline map tiles\n- push notifications",
			Tools:            model.ToolList{"Go", "PostgreSQL", "Leaflet"},
			Media: model.MediaList{
				{Kind: model.MediaImage, URL: "https://picsum.photos/seed/warung/900/1200"},
				{Kind: model.MediaVideo, URL: "https://www.youtube.com/embed/dQw4w9WgXcQ"},
			},
		},
		{
			Title:            "Batik Pattern Generator",
			ShortDescription: "Procedural batik motifs rendered in the browser.",
			Tools:            model.ToolList{"TypeScript", "WebGL"},
			Media: model.MediaList{
				{Kind: model.MediaImage, URL: "https://picsum.photos/seed/batik/900/1200"},
			},
		},
	}
	for _, p := range projects {
		if _, err := q.CreateProject(ctx, p); err != nil {
			return fmt.Errorf("creating project %q: %w", p.Title, err)
		}
	}

	slog.Info("seeded demo projects", "count", len(projects))
	return nil
}

func seedDemoSkills(ctx context.Context, q *Queries) error {
	existing, err := q.ListSkills(ctx, DefaultOrder)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		slog.Info("skills already exist, skipping demo skills")
		return nil
	}

	skills := []model.Skill{
		{Name: "Go", Level: 90},
		{Name: "SQL", Level: 85},
		{Name: "TypeScript", Level: 75},
		{Name: "Photography", Level: 60},
	}
	for _, s := range skills {
		if _, err := q.CreateSkill(ctx, s); err != nil {
			return fmt.Errorf("creating skill %q: %w", s.Name, err)
		}
	}

	slog.Info("seeded demo skills", "count", len(skills))
	return nil
}
