package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/viper"
)

// RevenueService computes read-side rollups by scanning completed ledger
// entries. It never mutates state; a failed query is a reporting error and
// nothing more.
type RevenueService struct {
	db    *sql.DB
	redis *redis.Client
	loc   *time.Location
}

func NewRevenueService(db *sql.DB, redisClient *redis.Client) *RevenueService {
	viper.SetDefault("business.timezone", "Asia/Jerusalem")

	loc, err := time.LoadLocation(viper.GetString("business.timezone"))
	if err != nil {
		log.Printf("[REVENUE] Unknown business timezone, falling back to UTC: %v", err)
		loc = time.UTC
	}

	return &RevenueService{
		db:    db,
		redis: redisClient,
		loc:   loc,
	}
}

// MonthlyRollup is one month of system-wide growth counts.
type MonthlyRollup struct {
	Month         string `json:"month"` // YYYY-MM
	NewDonors     int64  `json:"newDonors"`
	NewMessengers int64  `json:"newMessengers"`
	NewPrayers    int64  `json:"newPrayers"`
}

// TotalEarned sums a messenger's completed commission credits.
func (s *RevenueService) TotalEarned(messengerID string) (int64, error) {
	var total int64
	err := s.db.QueryRow(`
		SELECT COALESCE(SUM(amount), 0)
		FROM ledger_entries
		WHERE messenger_id = $1 AND kind = 'messenger_commission' AND status = 'completed'`,
		messengerID).Scan(&total)
	return total, err
}

// CurrentMonthEarned sums completed commission credits whose settlement fell
// inside the current calendar month in the business timezone.
func (s *RevenueService) CurrentMonthEarned(messengerID string) (int64, error) {
	now := time.Now().In(s.loc)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, s.loc)
	nextMonth := monthStart.AddDate(0, 1, 0)

	var total int64
	err := s.db.QueryRow(`
		SELECT COALESCE(SUM(amount), 0)
		FROM ledger_entries
		WHERE messenger_id = $1 AND kind = 'messenger_commission' AND status = 'completed'
		  AND status_changed_at >= $2 AND status_changed_at < $3`,
		messengerID, monthStart, nextMonth).Scan(&total)
	return total, err
}

// SystemWideRollup produces per-month growth counts for the last monthsBack
// calendar months, oldest first. Windowed queries, not materialized views:
// this only feeds dashboards, so correctness wins over latency. Results are
// parked in Redis briefly to spare the database on dashboard refreshes.
func (s *RevenueService) SystemWideRollup(ctx context.Context, monthsBack int) ([]MonthlyRollup, error) {
	cacheKey := fmt.Sprintf("rollup:%d", monthsBack)
	if s.redis != nil {
		if data, err := s.redis.Get(ctx, cacheKey).Bytes(); err == nil {
			var cached []MonthlyRollup
			if err := json.Unmarshal(data, &cached); err == nil {
				return cached, nil
			}
		}
	}

	now := time.Now().In(s.loc)
	currentMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, s.loc)

	rollups := make([]MonthlyRollup, 0, monthsBack)
	for i := monthsBack - 1; i >= 0; i-- {
		start := currentMonth.AddDate(0, -i, 0)
		end := start.AddDate(0, 1, 0)

		rollup := MonthlyRollup{Month: start.Format("2006-01")}

		err := s.db.QueryRow(`SELECT COUNT(*) FROM members WHERE created_at >= $1 AND created_at < $2`,
			start, end).Scan(&rollup.NewDonors)
		if err != nil {
			return nil, err
		}

		err = s.db.QueryRow(`SELECT COUNT(*) FROM messengers WHERE created_at >= $1 AND created_at < $2`,
			start, end).Scan(&rollup.NewMessengers)
		if err != nil {
			return nil, err
		}

		err = s.db.QueryRow(`SELECT COUNT(*) FROM prayers WHERE created_at >= $1 AND created_at < $2`,
			start, end).Scan(&rollup.NewPrayers)
		if err != nil {
			return nil, err
		}

		rollups = append(rollups, rollup)
	}

	if s.redis != nil {
		if data, err := json.Marshal(rollups); err == nil {
			if err := s.redis.Set(ctx, cacheKey, data, 5*time.Minute).Err(); err != nil {
				log.Printf("[REVENUE] Failed to cache rollup: %v", err)
			}
		}
	}

	return rollups, nil
}

// GetTotalEarned returns the messenger's lifetime commission earnings
// @Summary Total earned
// @Description Sum of the authenticated messenger's completed commission credits
// @Tags revenue
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{totalEarned=int64}
// @Failure 401 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Router /revenue/total [get]
func (s *RevenueService) GetTotalEarned(w http.ResponseWriter, r *http.Request) {
	messengerID, ok := r.Context().Value("messengerID").(string)
	if !ok || messengerID == "" {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	total, err := s.TotalEarned(messengerID)
	if err != nil {
		log.Printf("[REVENUE] Total earned query failed for messenger %s: %v", messengerID, err)
		SendErrorResponse(w, "Failed to compute earnings", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"totalEarned": total})
}

// GetCurrentMonthEarned returns this month's commission earnings
// @Summary Current month earned
// @Description Sum of the authenticated messenger's commission credits completed this calendar month
// @Tags revenue
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{currentMonthEarned=int64}
// @Failure 401 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Router /revenue/month [get]
func (s *RevenueService) GetCurrentMonthEarned(w http.ResponseWriter, r *http.Request) {
	messengerID, ok := r.Context().Value("messengerID").(string)
	if !ok || messengerID == "" {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	total, err := s.CurrentMonthEarned(messengerID)
	if err != nil {
		log.Printf("[REVENUE] Month earned query failed for messenger %s: %v", messengerID, err)
		SendErrorResponse(w, "Failed to compute earnings", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"currentMonthEarned": total})
}

// GetRollup returns system-wide monthly growth counts
// @Summary System-wide rollup
// @Description Per-month counts of new donors, messengers and prayer requests
// @Tags revenue
// @Produce json
// @Security BearerAuth
// @Param months query int false "Months back (default: 6, max: 24)"
// @Success 200 {object} object{rollups=[]MonthlyRollup}
// @Failure 500 {object} services.ErrorResponse
// @Router /admin/revenue/rollup [get]
func (s *RevenueService) GetRollup(w http.ResponseWriter, r *http.Request) {
	monthsBack := 6
	if monthsStr := r.URL.Query().Get("months"); monthsStr != "" {
		if m, err := strconv.Atoi(monthsStr); err == nil && m > 0 && m <= 24 {
			monthsBack = m
		}
	}

	rollups, err := s.SystemWideRollup(r.Context(), monthsBack)
	if err != nil {
		log.Printf("[REVENUE] Rollup query failed: %v", err)
		SendErrorResponse(w, "Failed to compute rollup", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"rollups": rollups})
}
