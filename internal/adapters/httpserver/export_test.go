package httpserver

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phenrril/costeo/internal/domain"
)

func TestSalesWorkbook_TotalsLineUpWithHeaders(t *testing.T) {
	pizza := &domain.Product{ID: uuid.New(), Name: "Pizza"}
	sale := domain.Sale{
		ID:          uuid.New(),
		DateTime:    time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC),
		TotalAmount: 15,
		Items: []domain.SaleItem{
			{ProductID: pizza.ID, Product: pizza, Quantity: 3, UnitPrice: 5, UnitCost: 0.6},
		},
	}

	f, err := salesWorkbook([]domain.Sale{sale})
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(salesSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	header, line, totals := rows[0], rows[1], rows[2]
	require.Len(t, header, 9)
	assert.Equal(t, []string{"Subtotal", "Costo", "Ganancia"}, header[6:9])
	assert.Equal(t, []string{"Pizza", "3"}, line[2:4])
	assert.Equal(t, []string{"15", "1.8", "13.2"}, line[6:9])
	assert.Equal(t, "Total", totals[0])
	assert.Equal(t, []string{"15", "1.8", "13.2"}, totals[6:9])
}
