// Package cascade locates candidate tenders for a free-text query by
// trying progressively looser searches until one yields results.
package cascade

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/pricemine/internal/model"
	"github.com/sells-group/pricemine/pkg/pncp"
)

// Tier identifies which search strategy produced the candidate set.
type Tier string

const (
	TierExact    Tier = "exact"
	TierFlexible Tier = "flexible"
	TierExpanded Tier = "expanded"
	TierFailed   Tier = "failed"
)

// Controller runs the multi-tier search cascade. It holds no state
// across invocations.
type Controller struct {
	client pncp.Client
}

// NewController creates a cascade controller over the given catalog client.
func NewController(client pncp.Client) *Controller {
	return &Controller{client: client}
}

// Search tries each tier in order and returns the first non-empty
// candidate set together with the tier that produced it. Total failure
// is (nil, TierFailed), never an error: the caller distinguishes
// "nothing found" from "something broke" by this contract.
func (c *Controller) Search(ctx context.Context, query string, pageBudget int) ([]model.Tender, Tier) {
	exact := strings.TrimSpace(stripQuotes(query))
	if exact == "" {
		return nil, TierFailed
	}

	if tenders := c.paginate(ctx, exact, pageBudget, true); len(tenders) > 0 {
		return tenders, TierExact
	}

	flexible := StripStopWords(exact)
	if flexible != "" && flexible != exact {
		if tenders := c.paginate(ctx, flexible, pageBudget, true); len(tenders) > 0 {
			return tenders, TierFlexible
		}
	} else {
		flexible = exact
	}

	if tenders := c.paginate(ctx, flexible, pageBudget, false); len(tenders) > 0 {
		return tenders, TierExpanded
	}

	return nil, TierFailed
}

// paginate requests pages until the budget is spent, a page comes back
// empty, or a call fails. Transport faults end the tier quietly; the
// cascade falls through to the next tier.
func (c *Controller) paginate(ctx context.Context, query string, pageBudget int, editalOnly bool) []model.Tender {
	var tenders []model.Tender
	for page := 1; page <= pageBudget; page++ {
		var (
			res *pncp.SearchPage
			err error
		)
		if editalOnly {
			res, err = c.client.SearchEditais(ctx, query, page)
		} else {
			res, err = c.client.SearchAll(ctx, query, page)
		}
		if err != nil {
			zap.L().Warn("cascade: search page failed, ending tier",
				zap.String("query", query),
				zap.Int("page", page),
				zap.Error(err),
			)
			break
		}
		if len(res.Items) == 0 {
			break
		}
		for _, it := range res.Items {
			tenders = append(tenders, toTender(it))
		}
	}
	return tenders
}

// toTender maps a raw search item to a Tender. Publication dates come
// back as RFC 3339 timestamps or bare dates; only the date matters.
func toTender(it pncp.SearchItem) model.Tender {
	t := model.Tender{
		OrgID:    it.OrganizationID(),
		OrgName:  it.OrganizationName(),
		Year:     int(it.Year),
		Sequence: int(it.Sequence),
	}
	if len(it.PublishedPNCP) >= 10 {
		if d, err := time.Parse("2006-01-02", it.PublishedPNCP[:10]); err == nil {
			t.Published = d
		}
	}
	return t
}
