// Package cart keeps the shopping cart, one persisted partition per identity.
package cart

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"urbanharvest/internal/api"
	"urbanharvest/internal/storage"
)

// GuestKey is the partition used while nobody is logged in.
const GuestKey = "cart_guest"

// KeyFor returns the partition key for user (nil means guest).
func KeyFor(user *api.User) string {
	if user == nil || user.ID == "" {
		return GuestKey
	}
	return "cart_" + user.ID
}

// Product is the catalogue snapshot stored with a cart line.
type Product struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Image    string  `json:"image"`
	Category string  `json:"category"`
}

// FromAPI snapshots a catalogue product at its current unit price.
func FromAPI(p api.Product) Product {
	return Product{
		ID:       p.ID,
		Name:     p.Name,
		Price:    p.UnitPrice(),
		Image:    p.Image,
		Category: p.Category,
	}
}

type Item struct {
	Product
	Quantity int `json:"quantity"`
}

// Store holds the cart for the current identity. Every mutation is written to
// storage before it returns. Ids are unique and quantities stay >= 1.
type Store struct {
	storage storage.Storage

	mu         sync.Mutex
	ownerKey   string
	items      []Item
	persisting bool
}

// New opens the guest partition.
func New(s storage.Storage) *Store {
	st := &Store{storage: s, ownerKey: GuestKey}
	st.items = st.load(GuestKey)
	st.persisting = true
	return st
}

// IdentityChanged swaps to user's partition. Nothing is written while the
// switch is in progress, so the new partition is never overwritten with the
// previous identity's items.
func (s *Store) IdentityChanged(user *api.User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.persisting = false
	s.ownerKey = KeyFor(user)
	s.items = s.load(s.ownerKey)
	s.persisting = true

	log.Printf("[CART] [INFO] switched to partition %s (%d items)", s.ownerKey, len(s.items))
}

// AddToCart adds quantity units of p, merging with an existing line. A
// quantity below 1 adds a single unit.
func (s *Store) AddToCart(p Product, quantity int) error {
	if quantity < 1 {
		quantity = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.copyItems()
	if i := s.indexOf(p.ID); i >= 0 {
		next[i].Quantity += quantity
	} else {
		next = append(next, Item{Product: p, Quantity: quantity})
	}
	return s.commit(next)
}

func (s *Store) RemoveFromCart(productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(productID)
	if i < 0 {
		return nil
	}
	next := s.copyItems()
	next = append(next[:i], next[i+1:]...)
	return s.commit(next)
}

// UpdateQuantity sets the quantity of an existing line. Values below 1 are
// ignored; use RemoveFromCart to drop a line.
func (s *Store) UpdateQuantity(productID string, quantity int) error {
	if quantity < 1 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(productID)
	if i < 0 {
		return nil
	}
	next := s.copyItems()
	next[i].Quantity = quantity
	return s.commit(next)
}

func (s *Store) ClearCart() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.commit(nil)
}

// Snapshot returns the partition key and its lines as one consistent pair.
func (s *Store) Snapshot() (string, []Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ownerKey, s.copyItems()
}

// Items returns a copy of the cart lines.
func (s *Store) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyItems()
}

// Total is the sum of price * quantity.
func (s *Store) Total() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total float64
	for _, it := range s.items {
		total += it.Price * float64(it.Quantity)
	}
	return total
}

// Count is the number of units in the cart, not the number of lines.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, it := range s.items {
		count += it.Quantity
	}
	return count
}

func (s *Store) OwnerKey() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ownerKey
}

func (s *Store) indexOf(productID string) int {
	for i, it := range s.items {
		if it.ID == productID {
			return i
		}
	}
	return -1
}

func (s *Store) copyItems() []Item {
	return append([]Item(nil), s.items...)
}

// commit saves next under the current key and only then makes it the cart,
// so a failed save leaves memory matching what is stored.
func (s *Store) commit(next []Item) error {
	if err := s.persist(next); err != nil {
		return err
	}
	s.items = next
	return nil
}

func (s *Store) persist(items []Item) error {
	if !s.persisting {
		return nil
	}

	if items == nil {
		items = []Item{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := s.storage.SetItem(s.ownerKey, string(raw)); err != nil {
		log.Printf("[CART] [ERROR] save %s failed: %v", s.ownerKey, err)
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

// load reads a partition. Missing or unreadable partitions load as empty;
// stored lines are repaired so ids stay unique and quantities positive.
func (s *Store) load(key string) []Item {
	raw, ok, err := s.storage.GetItem(key)
	if err != nil {
		log.Printf("[CART] [ERROR] load %s failed: %v", key, err)
		return nil
	}
	if !ok || raw == "" {
		return nil
	}

	var stored []Item
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		log.Printf("[CART] [WARN] partition %s is corrupt, starting empty: %v", key, err)
		return nil
	}

	items := make([]Item, 0, len(stored))
	seen := make(map[string]int, len(stored))
	for _, it := range stored {
		if it.ID == "" || it.Quantity < 1 {
			continue
		}
		if i, dup := seen[it.ID]; dup {
			items[i].Quantity += it.Quantity
			continue
		}
		seen[it.ID] = len(items)
		items = append(items, it)
	}
	return items
}
