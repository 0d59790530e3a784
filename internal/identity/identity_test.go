package identity_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"ms-marketplace/internal/identity"
	"ms-marketplace/internal/logger"
	"ms-marketplace/internal/models"
	"ms-marketplace/internal/order"
)

type identityFixture struct {
	identity *identity.Identity
	db       *bun.DB
	redis    *miniredis.Miniredis
	client   *goredis.Client
}

func setupIdentity(t *testing.T) *identityFixture {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:?cache=shared")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	_, err = bunDB.NewCreateTable().Model((*models.User)(nil)).IfNotExists().Exec(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = bunDB.Close() })

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return &identityFixture{
		identity: identity.New(bunDB, client, logger.NewLogger()),
		db:       bunDB,
		redis:    mr,
		client:   client,
	}
}

func (f *identityFixture) addUser(t *testing.T, id, name, role string, createdAt time.Time) {
	t.Helper()
	user := models.User{
		ID:        id,
		Email:     id + "@example.com",
		FullName:  name,
		Role:      role,
		CreatedAt: createdAt,
	}
	_, err := f.db.NewInsert().Model(&user).Exec(context.Background())
	require.NoError(t, err)
}

func TestResolveByProfileSlug(t *testing.T) {
	f := setupIdentity(t)
	f.addUser(t, "buyer-1", "Amina Rahman", models.RoleCustomer, time.Now().UTC())

	user, err := f.identity.ResolveByProfileSlug(context.Background(), "amina-rahman", models.RoleCustomer)
	require.NoError(t, err)
	assert.Equal(t, "buyer-1", user.ID)

	// The lookup populates the slug index.
	cached, err := f.client.Get(context.Background(), "profile_slug:customer:amina-rahman").Result()
	require.NoError(t, err)
	assert.Equal(t, "buyer-1", cached)
}

func TestResolveByProfileSlugUnknown(t *testing.T) {
	f := setupIdentity(t)

	_, err := f.identity.ResolveByProfileSlug(context.Background(), "nobody-here", models.RoleCustomer)
	assert.ErrorIs(t, err, order.ErrNotFound)
}

func TestResolveByProfileSlugRoleScoped(t *testing.T) {
	f := setupIdentity(t)
	f.addUser(t, "buyer-1", "Amina Rahman", models.RoleCustomer, time.Now().UTC())

	// Same slug, wrong role.
	_, err := f.identity.ResolveByProfileSlug(context.Background(), "amina-rahman", models.RoleSeller)
	assert.ErrorIs(t, err, order.ErrNotFound)
}

func TestResolveByProfileSlugOldestWinsOnDuplicate(t *testing.T) {
	f := setupIdentity(t)
	base := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	f.addUser(t, "buyer-2", "Amina Rahman", models.RoleCustomer, base.Add(time.Hour))
	f.addUser(t, "buyer-1", "Amina Rahman", models.RoleCustomer, base)

	user, err := f.identity.ResolveByProfileSlug(context.Background(), "amina-rahman", models.RoleCustomer)
	require.NoError(t, err)
	assert.Equal(t, "buyer-1", user.ID)
}

func TestResolveByProfileSlugCacheHitSkipsScan(t *testing.T) {
	f := setupIdentity(t)
	f.addUser(t, "buyer-1", "Amina Rahman", models.RoleCustomer, time.Now().UTC())
	ctx := context.Background()

	_, err := f.identity.ResolveByProfileSlug(ctx, "amina-rahman", models.RoleCustomer)
	require.NoError(t, err)

	// A cached hit is verified against the stored row, so it still
	// resolves after a second user with the same slug appears.
	f.addUser(t, "buyer-9", "Amina Rahman", models.RoleCustomer, time.Now().UTC())
	user, err := f.identity.ResolveByProfileSlug(ctx, "amina-rahman", models.RoleCustomer)
	require.NoError(t, err)
	assert.Equal(t, "buyer-1", user.ID)
}

func TestResolveByProfileSlugStaleCacheFallsBack(t *testing.T) {
	f := setupIdentity(t)
	f.addUser(t, "buyer-1", "Amina Rahman", models.RoleCustomer, time.Now().UTC())
	ctx := context.Background()

	// Point the index at a user whose name no longer matches the slug.
	f.addUser(t, "buyer-2", "Renamed Person", models.RoleCustomer, time.Now().UTC())
	require.NoError(t, f.client.Set(ctx, "profile_slug:customer:amina-rahman", "buyer-2", 0).Err())

	user, err := f.identity.ResolveByProfileSlug(ctx, "amina-rahman", models.RoleCustomer)
	require.NoError(t, err)
	assert.Equal(t, "buyer-1", user.ID)

	// The stale entry is replaced.
	cached, err := f.client.Get(ctx, "profile_slug:customer:amina-rahman").Result()
	require.NoError(t, err)
	assert.Equal(t, "buyer-1", cached)
}

func TestResolveByProfileSlugDeletedUserInCache(t *testing.T) {
	f := setupIdentity(t)
	f.addUser(t, "buyer-1", "Amina Rahman", models.RoleCustomer, time.Now().UTC())
	ctx := context.Background()

	require.NoError(t, f.client.Set(ctx, "profile_slug:customer:amina-rahman", "gone-user", 0).Err())

	user, err := f.identity.ResolveByProfileSlug(ctx, "amina-rahman", models.RoleCustomer)
	require.NoError(t, err)
	assert.Equal(t, "buyer-1", user.ID)
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Amina Rahman":     "amina-rahman",
		"  Farid  Studio ": "farid-studio",
		"O'Brien & Sons":   "o-brien-sons",
		"Caterer No. 9":    "caterer-no-9",
	}
	for input, want := range cases {
		assert.Equal(t, want, models.Slugify(input), "input %q", input)
	}
}
