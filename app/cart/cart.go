// Package cart keeps each customer's basket in memory until checkout.
// Carts are lost on restart, as they were never part of the persisted
// layout.
package cart

import (
	"sync"

	"github.com/shashiranjanraj/beanleaf/app/models"
)

// Store holds one cart per Telegram user.
type Store struct {
	mu    sync.Mutex
	carts map[int64][]models.OrderLine
}

func NewStore() *Store {
	return &Store{carts: make(map[int64][]models.OrderLine)}
}

// Add puts qty more units of productID in the cart. Products keep the order
// they were first added in. Non-positive quantities are ignored.
func (s *Store) Add(telegramID int64, productID, qty int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines := s.carts[telegramID]
	for i := range lines {
		if lines[i].ProductID == productID {
			if qty > 0 {
				lines[i].Quantity += qty
			}
			return lines[i].Quantity
		}
	}
	if qty <= 0 {
		return 0
	}
	s.carts[telegramID] = append(lines, models.OrderLine{ProductID: productID, Quantity: qty})
	return qty
}

// Remove drops a product from the cart.
func (s *Store) Remove(telegramID int64, productID int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines := s.carts[telegramID]
	for i := range lines {
		if lines[i].ProductID == productID {
			s.carts[telegramID] = append(lines[:i:i], lines[i+1:]...)
			return
		}
	}
}

// Lines returns a copy of the cart.
func (s *Store) Lines(telegramID int64) []models.OrderLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.OrderLine(nil), s.carts[telegramID]...)
}

// Quantity is how many units of productID are in the cart.
func (s *Store) Quantity(telegramID int64, productID int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.carts[telegramID] {
		if l.ProductID == productID {
			return l.Quantity
		}
	}
	return 0
}

// Clear empties the cart.
func (s *Store) Clear(telegramID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, telegramID)
}
