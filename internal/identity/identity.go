// Package identity resolves users by their public profile slug. The
// slug is derived from the display name rather than being a stable key,
// so lookups go through a Redis slug index; a miss falls back to a scan
// over the role's rows and repopulates the index.
package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/uptrace/bun"

	"ms-marketplace/internal/logger"
	"ms-marketplace/internal/models"
	"ms-marketplace/internal/order"
)

const slugCacheTTL = 15 * time.Minute

type Identity struct {
	Bun    *bun.DB
	Cache  *redis.Client
	Logger *logger.Logger
}

func New(db *bun.DB, cache *redis.Client, log *logger.Logger) *Identity {
	return &Identity{Bun: db, Cache: cache, Logger: log}
}

func slugKey(role, slug string) string {
	return fmt.Sprintf("profile_slug:%s:%s", role, slug)
}

// ResolveByProfileSlug returns the first user of the given role whose
// derived slug matches. Slugs are not globally unique, so the index is
// advisory: a cached hit is re-verified against the stored row before
// being trusted.
func (i *Identity) ResolveByProfileSlug(ctx context.Context, slug, role string) (*models.User, error) {
	if i.Cache != nil {
		if id, err := i.Cache.Get(ctx, slugKey(role, slug)).Result(); err == nil {
			user, err := i.userByID(ctx, id)
			if err == nil && user.Role == role && user.ProfileSlug() == slug {
				return user, nil
			}
			// Stale index entry (renamed or deleted user); rebuild below.
			i.Logger.Debug("IDENTITY", fmt.Sprintf("stale slug index entry for %s/%s", role, slug))
		}
	}

	var users []models.User
	err := i.Bun.NewSelect().
		Model(&users).
		Where("role = ?", role).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan %s profiles: %w", role, err)
	}

	for idx := range users {
		if users[idx].ProfileSlug() != slug {
			continue
		}
		if i.Cache != nil {
			if err := i.Cache.Set(ctx, slugKey(role, slug), users[idx].ID, slugCacheTTL).Err(); err != nil {
				i.Logger.Warn("IDENTITY", fmt.Sprintf("populate slug index for %s/%s: %v", role, slug, err))
			}
		}
		return &users[idx], nil
	}

	return nil, fmt.Errorf("%s profile %q: %w", role, slug, order.ErrNotFound)
}

func (i *Identity) userByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := i.Bun.NewSelect().
		Model(&user).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", id, order.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
