package persistence

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormOrderStore_BasketLines(t *testing.T) {
	t.Run("basket rows become shipment lines in insertion order", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "basket_items"`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "product_id", "quantity"}).
				AddRow(1, 900, 11, 2).
				AddRow(2, 900, 22, 1))

		store := NewGormOrderStore(db.DB)
		lines, err := store.BasketLines(context.Background(), 900)
		require.NoError(t, err)

		require.Len(t, lines, 2)
		assert.Equal(t, int64(11), lines[0].ProductID)
		assert.Equal(t, 2, lines[0].Quantity)
		assert.Equal(t, int64(22), lines[1].ProductID)
		assert.Equal(t, 1, lines[1].Quantity)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("order without basket rows yields no lines", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "basket_items"`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "product_id", "quantity"}))

		store := NewGormOrderStore(db.DB)
		lines, err := store.BasketLines(context.Background(), 901)
		require.NoError(t, err)
		assert.Empty(t, lines)
	})

	t.Run("database failure is surfaced", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "basket_items"`).
			WillReturnError(assert.AnError)

		store := NewGormOrderStore(db.DB)
		lines, err := store.BasketLines(context.Background(), 900)
		assert.Error(t, err)
		assert.Nil(t, lines)
	})
}
