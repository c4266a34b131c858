package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type User struct {
	ID           uuid.UUID
	Username     string
	PasswordHash pgtype.Text
	SteamID      pgtype.Text
	CreatedAt    pgtype.Timestamptz
	LastLoginAt  pgtype.Timestamptz
}

const createUser = `
INSERT INTO users (username, password_hash, steam_id)
VALUES ($1, $2, $3)
RETURNING id, username, password_hash, steam_id, created_at, last_login_at
`

type CreateUserParams struct {
	Username     string
	PasswordHash pgtype.Text
	SteamID      pgtype.Text
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRow(ctx, createUser, arg.Username, arg.PasswordHash, arg.SteamID)
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.SteamID, &u.CreatedAt, &u.LastLoginAt)
	return u, err
}

const getUserByUsername = `
SELECT id, username, password_hash, steam_id, created_at, last_login_at
FROM users WHERE username = $1
`

func (q *Queries) GetUserByUsername(ctx context.Context, username string) (User, error) {
	row := q.db.QueryRow(ctx, getUserByUsername, username)
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.SteamID, &u.CreatedAt, &u.LastLoginAt)
	return u, err
}

const getUserByID = `
SELECT id, username, password_hash, steam_id, created_at, last_login_at
FROM users WHERE id = $1
`

func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	row := q.db.QueryRow(ctx, getUserByID, id)
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.SteamID, &u.CreatedAt, &u.LastLoginAt)
	return u, err
}

const getUserBySteamID = `
SELECT id, username, password_hash, steam_id, created_at, last_login_at
FROM users WHERE steam_id = $1
`

func (q *Queries) GetUserBySteamID(ctx context.Context, steamID pgtype.Text) (User, error) {
	row := q.db.QueryRow(ctx, getUserBySteamID, steamID)
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.SteamID, &u.CreatedAt, &u.LastLoginAt)
	return u, err
}

const linkSteamID = `
UPDATE users SET steam_id = $2 WHERE id = $1
`

type LinkSteamIDParams struct {
	ID      uuid.UUID
	SteamID pgtype.Text
}

func (q *Queries) LinkSteamID(ctx context.Context, arg LinkSteamIDParams) error {
	_, err := q.db.Exec(ctx, linkSteamID, arg.ID, arg.SteamID)
	return err
}

const touchLastLogin = `
UPDATE users SET last_login_at = now() WHERE id = $1
`

func (q *Queries) TouchLastLogin(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, touchLastLogin, id)
	return err
}
