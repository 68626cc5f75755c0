package directory

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"friend-service/internal/cache"
	"friend-service/internal/models"
)

var ErrUserNotFound = errors.New("user not found")

// Directory resolves account ids owned by the account service.
type Directory interface {
	Resolve(ctx context.Context, userID int) (models.User, error)
	BulkUsers(ctx context.Context, ids []int) ([]models.User, error)
}

// SQLDirectory reads the shared users table.
type SQLDirectory struct {
	db *sqlx.DB
}

// NewSQLDirectory constructs a SQLDirectory.
func NewSQLDirectory(db *sqlx.DB) *SQLDirectory {
	return &SQLDirectory{db: db}
}

// Resolve fetches a single user by id.
func (d *SQLDirectory) Resolve(ctx context.Context, userID int) (models.User, error) {
	var user models.User
	err := d.db.GetContext(ctx, &user, `SELECT id, username, email FROM users WHERE id=$1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// BulkUsers fetches the users that exist among ids. Unknown ids are skipped.
func (d *SQLDirectory) BulkUsers(ctx context.Context, ids []int) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	query, args, err := sqlx.In(`SELECT id, username, email FROM users WHERE id IN (?) ORDER BY id`, ids)
	if err != nil {
		return nil, err
	}
	users := []models.User{}
	err = d.db.SelectContext(ctx, &users, d.db.Rebind(query), args...)
	return users, err
}

// CachedDirectory is a read-through cache in front of another Directory.
// Cache failures degrade to the underlying lookup.
type CachedDirectory struct {
	next  Directory
	cache cache.Cache
	ttl   time.Duration
}

// NewCachedDirectory wraps next with c.
func NewCachedDirectory(next Directory, c cache.Cache, ttl time.Duration) *CachedDirectory {
	return &CachedDirectory{next: next, cache: c, ttl: ttl}
}

// Resolve returns the cached user or loads and caches it.
func (d *CachedDirectory) Resolve(ctx context.Context, userID int) (models.User, error) {
	if user, ok := d.lookup(ctx, userID); ok {
		return user, nil
	}
	user, err := d.next.Resolve(ctx, userID)
	if err != nil {
		return models.User{}, err
	}
	d.store(ctx, user)
	return user, nil
}

// BulkUsers serves cached users and loads the rest in one call.
func (d *CachedDirectory) BulkUsers(ctx context.Context, ids []int) ([]models.User, error) {
	found := make(map[int]models.User, len(ids))
	missing := make([]int, 0)
	seen := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if user, ok := d.lookup(ctx, id); ok {
			found[id] = user
			continue
		}
		missing = append(missing, id)
	}

	if len(missing) > 0 {
		loaded, err := d.next.BulkUsers(ctx, missing)
		if err != nil {
			return nil, err
		}
		for _, user := range loaded {
			found[user.ID] = user
			d.store(ctx, user)
		}
	}

	users := make([]models.User, 0, len(found))
	emitted := make(map[int]struct{}, len(found))
	for _, id := range ids {
		user, ok := found[id]
		if !ok {
			continue
		}
		if _, dup := emitted[id]; dup {
			continue
		}
		emitted[id] = struct{}{}
		users = append(users, user)
	}
	return users, nil
}

func (d *CachedDirectory) lookup(ctx context.Context, userID int) (models.User, bool) {
	raw, err := d.cache.Get(ctx, cacheKey(userID))
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			logrus.WithError(err).WithField("user_id", userID).Warn("directory cache read failed")
		}
		return models.User{}, false
	}
	var user models.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		logrus.WithError(err).WithField("user_id", userID).Warn("directory cache entry corrupt")
		return models.User{}, false
	}
	return user, true
}

func (d *CachedDirectory) store(ctx context.Context, user models.User) {
	body, err := json.Marshal(user)
	if err != nil {
		return
	}
	if err := d.cache.Set(ctx, cacheKey(user.ID), string(body), d.ttl); err != nil {
		logrus.WithError(err).WithField("user_id", user.ID).Warn("directory cache write failed")
	}
}

func cacheKey(userID int) string {
	return fmt.Sprintf("friend-service:user:%d", userID)
}
