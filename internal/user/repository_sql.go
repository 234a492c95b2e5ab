package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// SQLRepository runs parameterized statements against the users table. The
// statements are portable across the pgx, lib/pq and sqlite3 drivers.
type SQLRepository struct {
	db *sql.DB
}

type rowScanner interface {
	Scan(dest ...any) error
}

const (
	listUsersQuery = `
		SELECT id, name, email, phone, profile_picture, created_at
		FROM users
		ORDER BY created_at DESC, id DESC
	`
	getUserByIDQuery = `
		SELECT id, name, email, phone, profile_picture, created_at
		FROM users
		WHERE id = $1
	`
	insertUserQuery = `
		INSERT INTO users (name, email, phone, profile_picture)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	updateUserQuery = `
		UPDATE users
		SET name = $1,
			email = $2,
			phone = $3,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $4
	`
	updateUserWithPictureQuery = `
		UPDATE users
		SET name = $1,
			email = $2,
			phone = $3,
			profile_picture = $4,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $5
	`
	deleteUserQuery = `DELETE FROM users WHERE id = $1`
)

// NewSQLRepository uses db for every statement; it never closes it.
func NewSQLRepository(db *sql.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

func (r *SQLRepository) List(ctx context.Context) ([]User, error) {
	rows, err := r.db.QueryContext(ctx, listUsersQuery)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	users := make([]User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return users, nil
}

func (r *SQLRepository) GetByID(ctx context.Context, id int) (User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, getUserByIDQuery, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *SQLRepository) Create(ctx context.Context, user User) (User, error) {
	err := r.db.QueryRowContext(ctx, insertUserQuery,
		user.Name,
		user.Email,
		user.Phone,
		nullablePicture(user.ProfilePicture),
	).Scan(&user.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, ErrEmailExists
		}
		return User{}, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *SQLRepository) Update(ctx context.Context, id int, user User) error {
	var (
		result sql.Result
		err    error
	)
	if user.ProfilePicture != nil {
		result, err = r.db.ExecContext(ctx, updateUserWithPictureQuery,
			user.Name, user.Email, user.Phone, *user.ProfilePicture, id)
	} else {
		result, err = r.db.ExecContext(ctx, updateUserQuery,
			user.Name, user.Email, user.Phone, id)
	}
	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailExists
		}
		return fmt.Errorf("db error: %w", err)
	}

	return expectAffected(result)
}

func (r *SQLRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, deleteUserQuery, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return expectAffected(result)
}

func expectAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func scanUser(scanner rowScanner) (User, error) {
	var (
		user      User
		picture   sql.NullString
		createdAt time.Time
	)
	if err := scanner.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Phone,
		&picture,
		&createdAt,
	); err != nil {
		return User{}, err
	}

	if picture.Valid {
		user.ProfilePicture = &picture.String
	}
	user.CreatedAt = createdAt
	return user, nil
}

func nullablePicture(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// isUniqueViolation recognises a duplicate key from any supported driver.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
