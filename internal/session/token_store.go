package session

import (
	"log"

	"urbanharvest/internal/storage"
)

// TokenKey is the storage slot holding the bearer token.
const TokenKey = "token"

// TokenStore is the single persisted bearer-token slot. It satisfies
// api.TokenSource so every authenticated request reads the same slot.
type TokenStore struct {
	store storage.Storage
}

func NewTokenStore(store storage.Storage) *TokenStore {
	return &TokenStore{store: store}
}

func (t *TokenStore) Token() string {
	token, ok, err := t.store.GetItem(TokenKey)
	if err != nil {
		log.Println("[SESSION] [ERROR] read token failed:", err)
		return ""
	}
	if !ok {
		return ""
	}
	return token
}

func (t *TokenStore) Set(token string) error {
	return t.store.SetItem(TokenKey, token)
}

func (t *TokenStore) Clear() error {
	return t.store.RemoveItem(TokenKey)
}
