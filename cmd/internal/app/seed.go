package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"leadadmin/cmd/identity"
)

// SeedInput describes one admin account to create or update.
type SeedInput struct {
	Username    string
	DisplayName string
	Password    string
	Now         time.Time
}

// SeedAdmin hashes the password under the configured policy and upserts the
// account. created is false when an existing account was updated.
func SeedAdmin(ctx context.Context, st identity.Store, hasher *identity.PasswordHasher, in SeedInput) (admin identity.Admin, created bool, err error) {
	if strings.TrimSpace(in.Username) == "" {
		return identity.Admin{}, false, fmt.Errorf("seed: username is required")
	}
	hash, err := hasher.Hash(in.Password)
	if err != nil {
		return identity.Admin{}, false, fmt.Errorf("seed: %w", err)
	}
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}
	return st.UpsertAdmin(ctx, identity.UpsertAdminInput{
		Username:     in.Username,
		DisplayName:  in.DisplayName,
		PasswordHash: hash,
		Now:          now,
	})
}
