package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"leavelite/internal/platform/querier"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

func (s *Store) CreateUser(ctx context.Context, user User) (User, error) {
	err := s.DB.QueryRow(ctx, `
    INSERT INTO users (name, email, password_hash, role, available_leave)
    VALUES ($1,$2,$3,$4,$5)
    RETURNING id, created_at
  `, user.Name, user.Email, user.PasswordHash, user.Role, user.AvailableLeave).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return User{}, ErrEmailTaken
		}
		return User{}, err
	}
	return user, nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (User, error) {
	return s.scanUser(s.DB.QueryRow(ctx, `
    SELECT id, name, email, role, available_leave, created_at, password_hash
    FROM users
    WHERE email = $1
  `, email))
}

func (s *Store) UserByID(ctx context.Context, userID string) (User, error) {
	return s.scanUser(s.DB.QueryRow(ctx, `
    SELECT id, name, email, role, available_leave, created_at, password_hash
    FROM users
    WHERE id = $1
  `, userID))
}

func (s *Store) PendingRequestCount(ctx context.Context, userID string) (int, error) {
	var count int
	if err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1)
    FROM leave_requests
    WHERE user_id = $1 AND status = 'Pending'
  `, userID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// EnsureUser inserts user unless the email already exists. The bool reports whether a row was created.
func (s *Store) EnsureUser(ctx context.Context, user User) (User, bool, error) {
	err := s.DB.QueryRow(ctx, `
    INSERT INTO users (name, email, password_hash, role, available_leave)
    VALUES ($1,$2,$3,$4,$5)
    ON CONFLICT (email) DO NOTHING
    RETURNING id, created_at
  `, user.Name, user.Email, user.PasswordHash, user.Role, user.AvailableLeave).Scan(&user.ID, &user.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		existing, err := s.UserByEmail(ctx, user.Email)
		return existing, false, err
	}
	if err != nil {
		return User{}, false, err
	}
	return user, true, nil
}

func (s *Store) scanUser(row pgx.Row) (User, error) {
	var user User
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.Role, &user.AvailableLeave, &user.CreatedAt, &user.PasswordHash)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.InvalidTextRepresentation {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, err
	}
	return user, nil
}
