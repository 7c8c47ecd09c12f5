package terms

import "fmt"

// DateRange is an inclusive range of calendar dates (YYYY-MM-DD).
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// ExportRequest is the body of POST /exports.
type ExportRequest struct {
	Format      string    `json:"format"`
	DateRange   DateRange `json:"dateRange"`
	Metrics     []string  `json:"metrics"`
	ContractIDs []string  `json:"contractIds"`
}

// Threshold triggers an alert when Metric compares true against Value.
type Threshold struct {
	Metric   string  `json:"metric"`
	Operator string  `json:"operator"`
	Value    float64 `json:"value"`
}

// AlertConfig is the body of POST /alerts.
type AlertConfig struct {
	ContractID           string      `json:"contractId"`
	Thresholds           []Threshold `json:"thresholds"`
	NotificationChannels []string    `json:"notificationChannels"`
}

// Kind discriminates negotiation terms.
type Kind string

const (
	KindFlatFee        Kind = "flat_fee"
	KindCPM            Kind = "cpm"
	KindRevenueShare   Kind = "revenue_share"
	KindProductGifting Kind = "product_gifting"
)

// definition returns the CUE definition for k, or "" if k is unknown.
func (k Kind) definition() string {
	switch k {
	case KindFlatFee:
		return "#FlatFee"
	case KindCPM:
		return "#CPM"
	case KindRevenueShare:
		return "#RevenueShare"
	case KindProductGifting:
		return "#ProductGifting"
	default:
		return ""
	}
}

// Terms are the negotiated compensation terms of a collaboration.
// Which fields apply depends on Kind.
type Terms struct {
	Kind Kind `json:"kind"`

	// flat_fee
	Amount       float64  `json:"amount,omitempty"`
	Deliverables []string `json:"deliverables,omitempty"`

	// cpm
	Rate           float64 `json:"rate,omitempty"`
	MaxImpressions int     `json:"maxImpressions,omitempty"`

	// revenue_share
	Percentage float64 `json:"percentage,omitempty"`
	CookieDays int     `json:"cookieDays,omitempty"`

	// product_gifting
	Products    []string `json:"products,omitempty"`
	RetailValue float64  `json:"retailValue,omitempty"`

	// flat_fee, cpm, product_gifting
	Currency string `json:"currency,omitempty"`
}

// Summary renders the terms on one line.
func (t Terms) Summary() string {
	switch t.Kind {
	case KindFlatFee:
		return fmt.Sprintf("flat fee %.2f %s", t.Amount, t.Currency)
	case KindCPM:
		return fmt.Sprintf("%.2f %s per 1000 impressions", t.Rate, t.Currency)
	case KindRevenueShare:
		return fmt.Sprintf("%.1f%% revenue share", t.Percentage)
	case KindProductGifting:
		return fmt.Sprintf("%d gifted product(s)", len(t.Products))
	default:
		return string(t.Kind)
	}
}
