package reporting

import (
	"context"
	"sort"
	"time"

	"github.com/moja-pay/moja_pay/internal/purchase"
)

// Service aggregates the purchase feed for revenue and spending reports. It
// is strictly read-only over the append-only records; it never mutates them.
type Service struct {
	purchases purchase.Repository
}

// NewService builds a reporting service over the purchase feed.
func NewService(purchases purchase.Repository) *Service {
	return &Service{purchases: purchases}
}

// RevenueLine is aggregate revenue for one service category.
type RevenueLine struct {
	Category string
	Total    int64
	Count    int
}

// Spender is aggregate spending for one wallet.
type Spender struct {
	WalletID string
	Total    int64
	Count    int
}

// Revenue sums succeeded purchases per category within [from, to). Zero
// bounds mean unbounded on that side.
func (s *Service) Revenue(ctx context.Context, from, to time.Time) ([]RevenueLine, error) {
	purchases, err := s.purchases.List(ctx)
	if err != nil {
		return nil, err
	}

	byCategory := make(map[string]*RevenueLine)
	for _, p := range purchases {
		if !s.included(p, from, to) {
			continue
		}
		line, ok := byCategory[p.Category]
		if !ok {
			line = &RevenueLine{Category: p.Category}
			byCategory[p.Category] = line
		}
		line.Total += p.Amount
		line.Count++
	}

	lines := make([]RevenueLine, 0, len(byCategory))
	for _, line := range byCategory {
		lines = append(lines, *line)
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].Total > lines[j].Total })
	return lines, nil
}

// TopSpenders returns the n wallets with the highest succeeded-purchase
// volume within [from, to).
func (s *Service) TopSpenders(ctx context.Context, n int, from, to time.Time) ([]Spender, error) {
	purchases, err := s.purchases.List(ctx)
	if err != nil {
		return nil, err
	}

	byWallet := make(map[string]*Spender)
	for _, p := range purchases {
		if !s.included(p, from, to) {
			continue
		}
		sp, ok := byWallet[p.WalletID]
		if !ok {
			sp = &Spender{WalletID: p.WalletID}
			byWallet[p.WalletID] = sp
		}
		sp.Total += p.Amount
		sp.Count++
	}

	spenders := make([]Spender, 0, len(byWallet))
	for _, sp := range byWallet {
		spenders = append(spenders, *sp)
	}
	sort.Slice(spenders, func(i, j int) bool {
		if spenders[i].Total != spenders[j].Total {
			return spenders[i].Total > spenders[j].Total
		}
		return spenders[i].WalletID < spenders[j].WalletID
	})
	if n > 0 && len(spenders) > n {
		spenders = spenders[:n]
	}
	return spenders, nil
}

func (s *Service) included(p purchase.ServicePurchase, from, to time.Time) bool {
	if p.Status != purchase.StatusSucceeded {
		return false
	}
	if !from.IsZero() && p.CreatedAt.Before(from) {
		return false
	}
	if !to.IsZero() && !p.CreatedAt.Before(to) {
		return false
	}
	return true
}
