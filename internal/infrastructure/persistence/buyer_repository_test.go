package persistence

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markethub/backend/internal/domain/channel"
)

func TestGormBuyerRepository_ResolveOrCreate(t *testing.T) {
	t.Run("returns the existing buyer", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "buyers" WHERE login = `).
			WillReturnRows(sqlmock.NewRows([]string{"id", "login", "email"}).
				AddRow(55, "79211234567", "79211234567@ozon-email.com"))

		repo := NewGormBuyerRepository(db.DB)
		id, err := repo.ResolveOrCreate(context.Background(), "79211234567", "79211234567@ozon-email.com", channel.BuyerInfo{})
		require.NoError(t, err)
		assert.Equal(t, int64(55), id)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("creates a buyer when the login is new", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "buyers" WHERE login = `).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectQuery(`INSERT INTO "buyers"`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(56))

		repo := NewGormBuyerRepository(db.DB)
		id, err := repo.ResolveOrCreate(context.Background(), "79211234567", "MiXeD@Example.COM", channel.BuyerInfo{
			Name:  "Анна Иванова",
			Phone: "+79211234567",
		})
		require.NoError(t, err)
		assert.Equal(t, int64(56), id)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("login is normalized before the lookup", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "buyers" WHERE login = `).
			WillReturnRows(sqlmock.NewRows([]string{"id", "login"}).AddRow(55, "79211234567"))

		repo := NewGormBuyerRepository(db.DB)
		id, err := repo.ResolveOrCreate(context.Background(), "  79211234567  ", "x@y.z", channel.BuyerInfo{})
		require.NoError(t, err)
		assert.Equal(t, int64(55), id)
	})

	t.Run("empty login is rejected without touching the database", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		repo := NewGormBuyerRepository(db.DB)
		_, err := repo.ResolveOrCreate(context.Background(), "   ", "x@y.z", channel.BuyerInfo{})
		assert.Error(t, err)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("lookup failure is surfaced", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "buyers" WHERE login = `).
			WillReturnError(assert.AnError)

		repo := NewGormBuyerRepository(db.DB)
		_, err := repo.ResolveOrCreate(context.Background(), "79211234567", "x@y.z", channel.BuyerInfo{})
		assert.Error(t, err)
	})
}
