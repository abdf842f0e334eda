package store

import (
	"context"
	"strings"
	"time"

	"order_video/internal/apperr"
	"order_video/internal/model"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SessionStore keeps one offline access token per shop domain.
type SessionStore struct {
	db   *gorm.DB
	log  *zap.Logger
	gate gate
}

func NewSessionStore(db *gorm.DB, log *zap.Logger) *SessionStore {
	return &SessionStore{db: db, log: log.Named("session_store")}
}

func (s *SessionStore) Ready() error {
	return s.gate.await(func() error {
		if err := s.db.AutoMigrate(&model.ShopSession{}); err != nil {
			s.log.Error("ensure shopify_sessions table", zap.Error(err))
			return apperr.Storage("session store unavailable", err)
		}
		return nil
	})
}

// Get returns the session for shop, or an auth error when none is stored.
func (s *SessionStore) Get(ctx context.Context, shop string) (*model.ShopSession, error) {
	shop = normalizeShop(shop)
	if shop == "" {
		return nil, apperr.Validation("shop is required")
	}
	if err := s.Ready(); err != nil {
		return nil, err
	}

	var sess model.ShopSession
	res := s.db.WithContext(ctx).Where("shop = ?", shop).Limit(1).Find(&sess)
	if res.Error != nil {
		return nil, apperr.Storage("failed to load session", res.Error)
	}
	if res.RowsAffected == 0 || sess.AccessToken == "" {
		return nil, apperr.Auth("no active session for shop")
	}
	return &sess, nil
}

// Save inserts or refreshes a shop's token.
func (s *SessionStore) Save(ctx context.Context, shop, accessToken, scope string) error {
	shop = normalizeShop(shop)
	if shop == "" || strings.TrimSpace(accessToken) == "" {
		return apperr.Validation("shop and access token are required")
	}
	if err := s.Ready(); err != nil {
		return err
	}

	now := time.Now().UTC()
	sess := model.ShopSession{
		Shop:        shop,
		AccessToken: accessToken,
		Scope:       scope,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "shop"}},
			DoUpdates: clause.AssignmentColumns([]string{"access_token", "scope", "updated_at"}),
		}).
		Create(&sess).Error
	if err != nil {
		return apperr.Storage("failed to save session", err)
	}
	return nil
}

// Delete drops a shop's session. Deleting a missing session is not an error.
func (s *SessionStore) Delete(ctx context.Context, shop string) error {
	shop = normalizeShop(shop)
	if shop == "" {
		return apperr.Validation("shop is required")
	}
	if err := s.Ready(); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Where("shop = ?", shop).Delete(&model.ShopSession{}).Error; err != nil {
		return apperr.Storage("failed to delete session", err)
	}
	return nil
}

func normalizeShop(shop string) string {
	return strings.ToLower(strings.TrimSpace(shop))
}
