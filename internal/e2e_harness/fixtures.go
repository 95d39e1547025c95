package e2e_harness

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SeedStoreHierarchy inserts the two-website layout the E2E tests assume:
// store views 10 and 11 belong to website 1, store view 20 to website 2.
func SeedStoreHierarchy(ctx context.Context, pool *pgxpool.Pool) error {
	rows := [][2]int64{
		{10, 1},
		{11, 1},
		{20, 2},
	}
	for _, row := range rows {
		_, err := pool.Exec(ctx,
			`INSERT INTO store_views (store_view_id, website_id) VALUES ($1, $2)
			 ON CONFLICT (store_view_id) DO UPDATE SET website_id = EXCLUDED.website_id`,
			row[0], row[1])
		if err != nil {
			return err
		}
	}
	return nil
}

// SeedBackendUser inserts a user with a permission row and returns its id.
func SeedBackendUser(ctx context.Context, pool *pgxpool.Pool, email string) (int64, error) {
	var userID int64
	err := pool.QueryRow(ctx,
		`INSERT INTO users (email, password) VALUES ($1, 'not-a-real-hash') RETURNING user_id`,
		email).Scan(&userID)
	if err != nil {
		return 0, err
	}
	_, err = pool.Exec(ctx,
		`INSERT INTO backend_permissions (user_id, product_content) VALUES ($1, 'read-write')`,
		userID)
	if err != nil {
		return 0, err
	}
	return userID, nil
}
