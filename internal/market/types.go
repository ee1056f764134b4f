package market

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/curvefleet/internal/domain"
)

// flexFloat unmarshals from a JSON number or numeric string so launchpad
// responses work whether prices are sent as numbers or strings.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	var v float64
	if err := json.Unmarshal(data, &v); err == nil {
		*f = flexFloat(v)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if strings.TrimSpace(s) == "" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}

// APIToken represents a token row as returned by the launchpad API.
type APIToken struct {
	Address        string    `json:"address"`
	Symbol         string    `json:"symbol"`
	Name           string    `json:"name"`
	CreatedAt      time.Time `json:"created_at"`
	Price          flexFloat `json:"price"`
	ReserveMon     flexFloat `json:"reserve_mon"`
	HolderCount    int       `json:"holder_count"`
	CurveProgress  flexFloat `json:"curve_progress"`
	Volume1h       flexFloat `json:"volume_1h"`
	PriceChange1h  flexFloat `json:"price_change_1h"`
	PriceChange24h flexFloat `json:"price_change_24h"`
	Graduated      bool      `json:"graduated"`
}

// ToDomainSummary converts an APIToken to a domain.TokenSummary.
func (t *APIToken) ToDomainSummary() domain.TokenSummary {
	return domain.TokenSummary{
		Address:        domain.NormalizeToken(t.Address),
		Symbol:         t.Symbol,
		Name:           t.Name,
		CreatedAt:      t.CreatedAt,
		Price:          float64(t.Price),
		ReserveMon:     float64(t.ReserveMon),
		HolderCount:    t.HolderCount,
		CurveProgress:  float64(t.CurveProgress),
		Volume1h:       float64(t.Volume1h),
		PriceChange1h:  float64(t.PriceChange1h),
		PriceChange24h: float64(t.PriceChange24h),
		Graduated:      t.Graduated,
	}
}

// ToDomainSnapshot converts an APIToken to a domain.MarketSnapshot.
func (t *APIToken) ToDomainSnapshot() domain.MarketSnapshot {
	return domain.MarketSnapshot{
		Price:          float64(t.Price),
		Volume1h:       float64(t.Volume1h),
		PriceChange1h:  float64(t.PriceChange1h),
		PriceChange24h: float64(t.PriceChange24h),
		HolderCount:    t.HolderCount,
		ReserveMon:     float64(t.ReserveMon),
		CurveProgress:  float64(t.CurveProgress),
		Graduated:      t.Graduated,
	}
}

// APICandle represents one price/volume bucket from the chart endpoint.
type APICandle struct {
	Timestamp time.Time `json:"timestamp"`
	Price     flexFloat `json:"price"`
	Volume    flexFloat `json:"volume"`
}

// ToDomainPoint converts an APICandle to a domain.PricePoint.
func (c *APICandle) ToDomainPoint() domain.PricePoint {
	return domain.PricePoint{
		Timestamp: c.Timestamp,
		Price:     float64(c.Price),
		Volume:    float64(c.Volume),
	}
}

// APIHolder represents one holder row from the holders endpoint.
type APIHolder struct {
	Address string    `json:"address"`
	Pct     flexFloat `json:"pct"`
}

// ToDomainBalance converts an APIHolder to a domain.HolderBalance.
func (h *APIHolder) ToDomainBalance() domain.HolderBalance {
	return domain.HolderBalance{
		Address: domain.NormalizeToken(h.Address),
		Pct:     float64(h.Pct),
	}
}

// TokenCreatedMessage is the websocket payload announcing a fresh launch.
type TokenCreatedMessage struct {
	Event string   `json:"event"`
	Token APIToken `json:"token"`
}
