package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/hilthontt/encore/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	return gdb, mock
}

func TestUserRepositoryGetByID(t *testing.T) {
	gdb, mock := newMockDB(t)
	repo := NewUserRepository(gdb)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE "users"."id" = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name_user", "email"}).AddRow(7, "ana", "ana@encore.fm"))

	user, err := repo.GetByID(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, &domain.User{ID: 7, NameUser: "ana", Email: "ana@encore.fm"}, user)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryNotFound(t *testing.T) {
	gdb, mock := newMockDB(t)
	repo := NewUserRepository(gdb)

	mock.ExpectQuery(`SELECT \* FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name_user", "email"}))

	_, err := repo.GetByID(context.Background(), 404)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestSongRepositoryPreloadsOwner(t *testing.T) {
	gdb, mock := newMockDB(t)
	repo := NewSongRepository(gdb)

	mock.ExpectQuery(`SELECT \* FROM "songs"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "owner_id"}).AddRow(9, "Intro", 3))
	mock.ExpectQuery(`SELECT \* FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name_user", "email"}).AddRow(3, "lena", ""))

	song, err := repo.GetByID(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, "Intro", song.Name)
	assert.Equal(t, "lena", song.OwnerName())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSongRepositoryNotFound(t *testing.T) {
	gdb, mock := newMockDB(t)
	repo := NewSongRepository(gdb)

	mock.ExpectQuery(`SELECT \* FROM "songs"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "owner_id"}))

	_, err := repo.GetByID(context.Background(), 9)
	assert.ErrorIs(t, err, domain.ErrSongNotFound)
}

func TestVisualizationRepositoryReturnsEveryPeriod(t *testing.T) {
	gdb, mock := newMockDB(t)
	repo := NewVisualizationRepository(gdb)

	jan := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT \* FROM "visualizations" WHERE song_id = \$1`).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "song_id", "play_count", "period"}).
			AddRow(1, 9, 3, jan).
			AddRow(2, 9, 2, feb))

	records, err := repo.GetBySongID(context.Background(), 9)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, int64(5), domain.TotalPlays(records))
}

func TestCommentRepositoryGetRawByID(t *testing.T) {
	gdb, mock := newMockDB(t)
	repo := NewCommentRepository(gdb)

	mock.ExpectQuery(`SELECT \* FROM "comments"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "author_id", "content", "parent_id"}).AddRow(5, 2, "first!", nil))
	mock.ExpectQuery(`SELECT \* FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name_user", "email"}).AddRow(2, "ana", ""))

	c, err := repo.GetRawByID(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, int64(2), c.AuthorID)
	assert.Equal(t, "ana", c.AuthorName())
	assert.Nil(t, c.ParentID)
}

func TestCommentRepositoryMissingIsNil(t *testing.T) {
	gdb, mock := newMockDB(t)
	repo := NewCommentRepository(gdb)

	mock.ExpectQuery(`SELECT \* FROM "comments"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "author_id", "content", "parent_id"}))

	c, err := repo.GetRawByID(context.Background(), 5)
	assert.NoError(t, err)
	assert.Nil(t, c)
}
