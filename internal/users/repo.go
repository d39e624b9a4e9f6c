package users

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{db: db}
}

type UpsertUser struct {
	UID   string
	Email string
}

// EnsureUser upserts the user row on every authenticated request.
func (r *Repo) EnsureUser(ctx context.Context, u UpsertUser) (string, error) {
	if u.UID == "" {
		return "", fmt.Errorf("uid required")
	}

	const q = `
insert into users (uid, email, updated_at)
values ($1, nullif($2,''), now())
on conflict (uid) do update
set
  email = coalesce(excluded.email, users.email),
  updated_at = now()
returning id::text;
`
	var id string
	if err := r.db.QueryRow(ctx, q, u.UID, u.Email).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}
