// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"time"

	"github.com/olegiv/bsr-go/internal/model"
)

// SystemAuthorID is the author of seeded records.
const SystemAuthorID = "system"

// Seed record ids.
const (
	SeedPostEnglish     = "seed-en-1"
	SeedPostKinyarwanda = "seed-rw-1"
	SeedPostFrench      = "seed-fr-1"
	SeedGalleryImage    = "g-seed-1"
)

// SeedPosts returns one sample reflection per supported language.
func SeedPosts() []model.Post {
	now := time.Now().UTC()
	return []model.Post{
		{
			ID:         SeedPostEnglish,
			Title:      "The Light of the World",
			Verse:      "John 8:12",
			Reflection: "Jesus is the guiding light for the people of Rwanda. In times of darkness, His word brings clarity and hope to our nation. We are called to walk in this light and share it with our neighbors.",
			AuthorID:   SystemAuthorID,
			CreatedAt:  now,
			ImageURL:   "https://images.unsplash.com/photo-1490730141103-6ac277a5bf17?auto=format&fit=crop&q=80&w=800",
			Tags:       []string{"Hope", "Faith"},
			Language:   model.LanguageEnglish,
		},
		{
			ID:         SeedPostKinyarwanda,
			Title:      "Urumuri rw'Isi",
			Verse:      "Yohana 8:12",
			Reflection: "Yezu ni urumuri ruyobora abanyarwanda. Mu bihe by'umwijima, ijambo rye rizura icyizere n'ukwemera mu gihugu cyacu. Turahamagarirwa kugendera muri urwo rumuri.",
			AuthorID:   SystemAuthorID,
			CreatedAt:  now,
			ImageURL:   "https://images.unsplash.com/photo-1544427928-c49cdfebf194?auto=format&fit=crop&q=80&w=1200",
			Tags:       []string{"Icyizere", "Ukwemera"},
			Language:   model.LanguageKinyarwanda,
		},
		{
			ID:         SeedPostFrench,
			Title:      "La Lumière du Monde",
			Verse:      "Jean 8:12",
			Reflection: "Jésus est la lumière qui guide le peuple rwandais. Dans les moments d'obscurité, sa parole apporte clarté et espoir à notre nation. Nous sommes appelés à marcher dans cette lumière.",
			AuthorID:   SystemAuthorID,
			CreatedAt:  now,
			ImageURL:   "https://images.unsplash.com/photo-1504052434569-70ad5836ab65?auto=format&fit=crop&q=80&w=800",
			Tags:       []string{"Espoir", "Foi"},
			Language:   model.LanguageFrench,
		},
	}
}

// SeedGallery returns the sample gallery.
func SeedGallery() []model.GalleryImage {
	return []model.GalleryImage{
		{
			ID:        SeedGalleryImage,
			URL:       "https://images.unsplash.com/photo-1544427928-c49cdfebf194?auto=format&fit=crop&q=80&w=1200",
			Caption:   "Sacred moments in Kigali",
			CreatedAt: time.Now().UTC(),
		},
	}
}
