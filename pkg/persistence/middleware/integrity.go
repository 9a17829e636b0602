package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/aretw0/stateguard/pkg/domain"
	"github.com/aretw0/stateguard/pkg/ports"
)

const sealMAC = "hmac-sha256"

type integrityMiddleware struct {
	next ports.PageStore
	key  []byte
}

// NewIntegrityMiddleware creates a middleware that signs pages with HMAC-SHA256.
// Pages whose MAC is missing or wrong load as domain.ErrPageNotFound.
func NewIntegrityMiddleware(key []byte) Middleware {
	if len(key) < 16 {
		panic("integrity key must be at least 16 bytes")
	}
	return func(next ports.PageStore) ports.PageStore {
		return &integrityMiddleware{next: next, key: key}
	}
}

func (m *integrityMiddleware) sign(scope string, page *domain.Page) (string, error) {
	unsigned := page.Clone()
	delete(unsigned.Seals, sealMAC)
	data, err := json.Marshal(unsigned)
	if err != nil {
		return "", fmt.Errorf("failed to marshal page: %w", err)
	}
	mac := hmac.New(sha256.New, m.key)
	mac.Write(binding(scope, page.Name))
	mac.Write(data)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

func (m *integrityMiddleware) SavePage(ctx context.Context, scope string, page *domain.Page) error {
	sig, err := m.sign(scope, page)
	if err != nil {
		return err
	}
	signed := page.Clone()
	if signed.Seals == nil {
		signed.Seals = make(map[string]string, 1)
	}
	signed.Seals[sealMAC] = sig
	return m.next.SavePage(ctx, scope, signed)
}

func (m *integrityMiddleware) LoadPage(ctx context.Context, scope, name string) (*domain.Page, error) {
	page, err := m.next.LoadPage(ctx, scope, name)
	if err != nil {
		return nil, err
	}
	got, ok := page.Seals[sealMAC]
	if !ok || page.Name != name {
		return nil, fmt.Errorf("%w: %s has no valid signature", domain.ErrPageNotFound, name)
	}
	want, err := m.sign(scope, page)
	if err != nil {
		return nil, err
	}
	if !hmac.Equal([]byte(got), []byte(want)) {
		return nil, fmt.Errorf("%w: %s has no valid signature", domain.ErrPageNotFound, name)
	}
	delete(page.Seals, sealMAC)
	if len(page.Seals) == 0 {
		page.Seals = nil
	}
	return page, nil
}

func (m *integrityMiddleware) DeletePage(ctx context.Context, scope, name string) error {
	return m.next.DeletePage(ctx, scope, name)
}

func (m *integrityMiddleware) ListPages(ctx context.Context, scope string) ([]string, error) {
	return m.next.ListPages(ctx, scope)
}

func (m *integrityMiddleware) NextPageID(ctx context.Context, scope string) (int64, error) {
	return m.next.NextPageID(ctx, scope)
}
