package cart_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shashiranjanraj/beanleaf/app/cart"
	"github.com/shashiranjanraj/beanleaf/app/models"
)

func TestStore_AddKeepsFirstAddedOrder(t *testing.T) {
	s := cart.NewStore()
	s.Add(1, 5, 1)
	s.Add(1, 2, 2)
	assert.Equal(t, 3, s.Add(1, 5, 2))

	assert.Equal(t, []models.OrderLine{
		{ProductID: 5, Quantity: 3},
		{ProductID: 2, Quantity: 2},
	}, s.Lines(1))
	assert.Equal(t, 3, s.Quantity(1, 5))
	assert.Zero(t, s.Quantity(1, 99))
}

func TestStore_IgnoresNonPositive(t *testing.T) {
	s := cart.NewStore()
	assert.Zero(t, s.Add(1, 5, 0))
	assert.Empty(t, s.Lines(1))
}

func TestStore_CartsArePerUser(t *testing.T) {
	s := cart.NewStore()
	s.Add(1, 5, 1)
	s.Add(2, 6, 1)

	s.Clear(1)
	assert.Empty(t, s.Lines(1))
	assert.Len(t, s.Lines(2), 1)
}

func TestStore_RemoveAndCopy(t *testing.T) {
	s := cart.NewStore()
	s.Add(1, 5, 1)
	s.Add(1, 6, 1)
	s.Add(1, 7, 1)

	lines := s.Lines(1)
	lines[0].Quantity = 100
	assert.Equal(t, 1, s.Quantity(1, 5))

	s.Remove(1, 6)
	assert.Equal(t, []models.OrderLine{
		{ProductID: 5, Quantity: 1},
		{ProductID: 7, Quantity: 1},
	}, s.Lines(1))
}
