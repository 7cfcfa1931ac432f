package services

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/base64"
	"fmt"
	"image/png"
	"net/url"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/skip2/go-qrcode"
	"github.com/spf13/viper"
)

// ReferralService renders the donation link a messenger shares with
// prospective members as a QR code. Payments made through the link carry the
// messenger ID, which is how commission attribution happens.
type ReferralService struct {
	db    *sql.DB
	redis *redis.Client
}

func NewReferralService(db *sql.DB, redisClient *redis.Client) *ReferralService {
	viper.SetDefault("referral.base_url", "https://donate.amider.org")
	return &ReferralService{
		db:    db,
		redis: redisClient,
	}
}

// ReferralLink builds the donation URL for a messenger. A positive amount is
// pre-filled on the donation page; zero leaves the amount open.
func (s *ReferralService) ReferralLink(messengerID string, amount int64) string {
	link := fmt.Sprintf("%s/m/%s", viper.GetString("referral.base_url"), url.PathEscape(messengerID))
	if amount > 0 {
		link = fmt.Sprintf("%s?amount=%d", link, amount)
	}
	return link
}

// GenerateReferralQR returns the donation link and its QR image as base64
// PNG. Images are cached in Redis; the link is deterministic so the cache
// never serves a stale code.
func (s *ReferralService) GenerateReferralQR(ctx context.Context, messengerID string, amount int64) (string, string, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM messenger_accounts WHERE messenger_id = $1 AND is_active)`,
		messengerID).Scan(&exists)
	if err != nil {
		return "", "", err
	}
	if !exists {
		return "", "", fmt.Errorf("%w: no active account for messenger %s", ErrValidation, messengerID)
	}

	link := s.ReferralLink(messengerID, amount)

	cacheKey := fmt.Sprintf("referral_qr:%s:%d", messengerID, amount)
	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, cacheKey).Result(); err == nil {
			return link, cached, nil
		}
	}

	qr, err := qrcode.New(link, qrcode.Medium)
	if err != nil {
		return "", "", err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, qr.Image(256)); err != nil {
		return "", "", err
	}

	qrImage := base64.StdEncoding.EncodeToString(buf.Bytes())

	if s.redis != nil {
		s.redis.Set(ctx, cacheKey, qrImage, 24*time.Hour)
	}

	return link, qrImage, nil
}
