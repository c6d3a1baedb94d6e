package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/jamii/core"
	"github.com/trezcool/jamii/core/user"
)

const usersTable = "users"

var userColumns = []string{
	"id", "name", "username", "email", "is_active", "roles", "password_hash", "created_at", "updated_at", "last_login",
}

// userRow is the users table row.
type userRow struct {
	ID           string         `db:"id"`
	Name         string         `db:"name"`
	Username     null.String    `db:"username"`
	Email        null.String    `db:"email"`
	IsActive     bool           `db:"is_active"`
	Roles        pq.StringArray `db:"roles"`
	PasswordHash []byte         `db:"password_hash"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
	LastLogin    null.Time      `db:"last_login"`
}

func toRow(usr user.User) userRow {
	roles := usr.Roles
	if roles == nil {
		roles = []string{}
	}
	return userRow{
		ID:           usr.ID,
		Name:         usr.Name,
		Username:     null.NewString(usr.Username, usr.Username != ""),
		Email:        null.NewString(usr.Email, usr.Email != ""),
		IsActive:     usr.IsActive,
		Roles:        roles,
		PasswordHash: usr.PasswordHash,
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
		LastLogin:    null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
}

func (row userRow) toUser() user.User {
	return user.User{
		ID:           row.ID,
		Name:         row.Name,
		Username:     row.Username.String,
		Email:        row.Email.String,
		IsActive:     row.IsActive,
		Roles:        row.Roles,
		PasswordHash: row.PasswordHash,
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
		LastLogin:    row.LastLogin.Time.UTC(),
	}
}

func (row userRow) values() map[string]interface{} {
	return map[string]interface{}{
		"id":            row.ID,
		"name":          row.Name,
		"username":      row.Username,
		"email":         row.Email,
		"is_active":     row.IsActive,
		"roles":         row.Roles,
		"password_hash": row.PasswordHash,
		"created_at":    row.CreatedAt,
		"updated_at":    row.UpdatedAt,
		"last_login":    row.LastLogin,
	}
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

// trapNoRowsErr maps psql "no rows" err to user.ErrNotFound
func (repo *userRepository) trapNoRowsErr(err error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return user.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo *userRepository) getOne(ctx context.Context, where sq.Sqlizer, msg string) (user.User, error) {
	query, args, err := psql.Select(userColumns...).From(usersTable).Where(where).Limit(1).ToSql()
	if err != nil {
		return user.User{}, errors.Wrap(err, "building query")
	}
	var row userRow
	if err := repo.db.GetContext(ctx, &row, query, args...); err != nil {
		return user.User{}, repo.trapNoRowsErr(err, msg)
	}
	return row.toUser(), nil
}

func (repo *userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	or := sq.Or{}
	if username != "" {
		or = append(or, sq.Eq{"username": username})
	}
	if email != "" {
		or = append(or, sq.Eq{"email": email})
	}
	if len(or) == 0 {
		return nil
	}

	qb := psql.Select("username", "email").From(usersTable).Where(or)
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		qb = qb.Where(sq.NotEq{"id": ids})
	}
	query, args, err := qb.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}

	var taken []struct {
		Username null.String `db:"username"`
		Email    null.String `db:"email"`
	}
	if err := repo.db.SelectContext(ctx, &taken, query, args...); err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	for _, t := range taken {
		if username != "" && t.Username.String == username {
			return user.ErrUsernameExists
		}
		if email != "" && t.Email.String == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.NewString()
	query, args, err := psql.Insert(usersTable).SetMap(toRow(usr).values()).ToSql()
	if err != nil {
		return user.User{}, errors.Wrap(err, "building query")
	}
	if _, err := repo.db.ExecContext(ctx, query, args...); err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter user.QueryFilter, ordering ...core.DBOrdering) ([]user.User, error) {
	qb := psql.Select(userColumns...).From(usersTable)

	// users with Name, Username or Email matching the search keyword
	if filter.Search != "" {
		val := "%" + likeEscaper.Replace(filter.Search) + "%"
		qb = qb.Where(sq.Or{
			sq.ILike{"name": val},
			sq.ILike{"username": val},
			sq.ILike{"email": val},
		})
	}
	if len(filter.Roles) > 0 {
		qb = qb.Where("roles && ?", pq.StringArray(filter.Roles))
	}
	if filter.IsActive != nil {
		qb = qb.Where(sq.Eq{"is_active": *filter.IsActive})
	}
	if !filter.CreatedFrom.IsZero() {
		qb = qb.Where(sq.GtOrEq{"created_at": filter.CreatedFrom.UTC()})
	}
	if !filter.CreatedTo.IsZero() {
		qb = qb.Where(sq.LtOrEq{"created_at": filter.CreatedTo.UTC()})
	}

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "created_at", Ascending: true}}
	}
	for _, ord := range ordering {
		col, err := ident(ord.Field)
		if err != nil {
			return nil, err
		}
		qb = qb.OrderBy(core.DBOrdering{Field: col, Ascending: ord.Ascending}.String())
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.toUser())
	}
	return users, nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return user.User{}, user.ErrNotFound
	}
	return repo.getOne(ctx, sq.Eq{"id": id}, "finding user by ID")
}

func (repo *userRepository) GetUserByUsername(ctx context.Context, username string) (user.User, error) {
	return repo.getOne(ctx, sq.Eq{"username": username}, "finding user by username")
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	return repo.getOne(ctx, sq.Eq{"email": email}, "finding user by email")
}

func (repo *userRepository) GetUserByUsernameOrEmail(ctx context.Context, username string) (user.User, error) {
	if username == "" {
		return user.User{}, user.ErrNotFound
	}
	return repo.getOne(ctx, sq.Or{sq.Eq{"username": username}, sq.Eq{"email": username}}, "finding user")
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	values := toRow(usr).values()
	delete(values, "id")
	delete(values, "created_at")

	query, args, err := psql.Update(usersTable).SetMap(values).Where(sq.Eq{"id": usr.ID}).ToSql()
	if err != nil {
		return user.User{}, errors.Wrap(err, "building query")
	}
	res, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := psql.Delete(usersTable).Where(sq.Eq{"id": ids}).ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	if _, err := repo.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrap(err, "deleting users")
	}
	return nil
}
