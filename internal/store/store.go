// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package store is the local store: four JSON-array collections kept
// under fixed keys of a key-value medium.
package store

import (
	"context"
	"log/slog"

	"github.com/olegiv/bsr-go/internal/kv"
	"github.com/olegiv/bsr-go/internal/model"
)

// Fixed storage keys.
const (
	PostsKey    = "bsr_bible_posts"
	UsersKey    = "bsr_users"
	MessagesKey = "bsr_contact_messages"
	GalleryKey  = "bsr_gallery_images"
)

// Store bundles the four collections.
type Store struct {
	Posts    *Collection[model.Post]
	Users    *Collection[model.User]
	Messages *Collection[model.ContactMessage]
	Gallery  *Collection[model.GalleryImage]

	storage kv.Storage
}

// New creates a store over storage.
func New(storage kv.Storage, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "store")

	return &Store{
		Posts: NewCollection(storage, CollectionOptions[model.Post]{
			Key:      PostsKey,
			ID:       func(p model.Post) string { return p.ID },
			Seed:     SeedPosts,
			Validate: model.Post.Validate,
		}, logger),
		Users: NewCollection(storage, CollectionOptions[model.User]{
			Key:      UsersKey,
			ID:       func(u model.User) string { return u.ID },
			Identity: func(u model.User) string { return u.NormalizedEmail() },
			Append:   true,
		}, logger),
		Messages: NewCollection(storage, CollectionOptions[model.ContactMessage]{
			Key: MessagesKey,
			ID:  func(m model.ContactMessage) string { return m.ID },
		}, logger),
		Gallery: NewCollection(storage, CollectionOptions[model.GalleryImage]{
			Key:  GalleryKey,
			ID:   func(g model.GalleryImage) string { return g.ID },
			Seed: SeedGallery,
		}, logger),
		storage: storage,
	}
}

// Ping checks the underlying medium when it supports health checks.
func (s *Store) Ping(ctx context.Context) error {
	if p, ok := s.storage.(kv.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// GetPosts returns all posts, newest first.
func (s *Store) GetPosts(ctx context.Context) ([]model.Post, error) {
	return s.Posts.All(ctx)
}

// FindPost returns the post with the given id.
func (s *Store) FindPost(ctx context.Context, id string) (model.Post, bool, error) {
	return s.Posts.Find(ctx, id)
}

// SavePost prepends a post unless its id already exists. Posts failing
// model.Post.Validate are rejected with a *ValidationError.
func (s *Store) SavePost(ctx context.Context, p model.Post) error {
	return s.Posts.Save(ctx, p)
}

// UpdatePost replaces an existing post.
func (s *Store) UpdatePost(ctx context.Context, p model.Post) error {
	return s.Posts.Update(ctx, p)
}

// DeletePost removes a post.
func (s *Store) DeletePost(ctx context.Context, id string) error {
	return s.Posts.Delete(ctx, id)
}

// GetUsers returns all users in signup order.
func (s *Store) GetUsers(ctx context.Context) ([]model.User, error) {
	return s.Users.All(ctx)
}

// SaveUser appends a user unless the email is already registered.
func (s *Store) SaveUser(ctx context.Context, u model.User) error {
	return s.Users.Save(ctx, u)
}

// CreateUser is SaveUser that reports whether the user was stored. It
// returns false when the email is already registered, including when a
// concurrent signup won the race.
func (s *Store) CreateUser(ctx context.Context, u model.User) (bool, error) {
	return s.Users.Insert(ctx, u)
}

// FindUserByEmail looks a user up by case-insensitive email.
func (s *Store) FindUserByEmail(ctx context.Context, email string) (model.User, bool, error) {
	users, err := s.Users.All(ctx)
	if err != nil {
		return model.User{}, false, err
	}

	email = model.NormalizeEmail(email)
	for _, u := range users {
		if u.NormalizedEmail() == email {
			return u, true, nil
		}
	}
	return model.User{}, false, nil
}

// GetMessages returns all contact messages, newest first.
func (s *Store) GetMessages(ctx context.Context) ([]model.ContactMessage, error) {
	return s.Messages.All(ctx)
}

// SaveMessage prepends a contact message.
func (s *Store) SaveMessage(ctx context.Context, m model.ContactMessage) error {
	return s.Messages.Save(ctx, m)
}

// DeleteMessage removes a contact message.
func (s *Store) DeleteMessage(ctx context.Context, id string) error {
	return s.Messages.Delete(ctx, id)
}

// GetGallery returns all gallery images, newest first.
func (s *Store) GetGallery(ctx context.Context) ([]model.GalleryImage, error) {
	return s.Gallery.All(ctx)
}

// SaveGalleryImage prepends an image unless its id already exists.
func (s *Store) SaveGalleryImage(ctx context.Context, g model.GalleryImage) error {
	return s.Gallery.Save(ctx, g)
}

// UpdateGalleryImage replaces an existing image.
func (s *Store) UpdateGalleryImage(ctx context.Context, g model.GalleryImage) error {
	return s.Gallery.Update(ctx, g)
}

// DeleteGalleryImage removes an image.
func (s *Store) DeleteGalleryImage(ctx context.Context, id string) error {
	return s.Gallery.Delete(ctx, id)
}
