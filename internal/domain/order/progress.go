package order

import (
	"math"
	"time"
)

// StalenessThreshold is how long an undelivered item may sit in one status before it needs attention.
const StalenessThreshold = 72 * time.Hour

type Progress struct {
	Overall              Status
	CompletionPercentage int
	NeedsAttention       bool
	StaleItemIDs         []string
	Counts               map[ItemStatus]int
	ActiveCount          int
	TotalCount           int
}

// DeriveProgress recomputes the aggregate view from scratch. now is supplied by the caller.
func DeriveProgress(items []Item, createdAt, now time.Time) Progress {
	p := Progress{
		Counts:     make(map[ItemStatus]int, len(ItemStatuses)),
		TotalCount: len(items),
	}
	weight := 0
	for _, it := range items {
		if it.Cancelled() {
			p.Counts[ItemCancelled]++
			continue
		}
		p.ActiveCount++
		p.Counts[it.Status]++
		weight += stageWeight(it.Status)

		if it.Status == ItemDelivered {
			continue
		}
		since := createdAt
		if last, ok := it.LastChangedAt(); ok {
			since = last
		}
		if now.Sub(since) > StalenessThreshold {
			p.NeedsAttention = true
			p.StaleItemIDs = append(p.StaleItemIDs, it.ID)
		}
	}

	if p.ActiveCount == 0 {
		p.CompletionPercentage = 100
	} else {
		p.CompletionPercentage = int(math.Round(float64(weight) / float64(p.ActiveCount)))
	}
	p.Overall = overallProgress(p)
	return p
}

func overallProgress(p Progress) Status {
	switch {
	case p.TotalCount > 0 && p.Counts[ItemCancelled] == p.TotalCount:
		return StatusCancelled
	case p.ActiveCount > 0 && p.Counts[ItemDelivered] == p.ActiveCount:
		return StatusDelivered
	case p.Counts[ItemShippedToCustomer]+p.Counts[ItemDelivered] > 0:
		return StatusShipped
	case p.ActiveCount > 0 && p.Counts[ItemArrivedIsrael] == p.ActiveCount:
		return StatusReadyToShip
	case p.Counts[ItemOrdered]+p.Counts[ItemInTransit]+p.Counts[ItemArrivedIsrael] > 0:
		return StatusInProgress
	}
	return StatusPending
}
