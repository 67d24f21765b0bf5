// Package dashboard aggregates the landing view from several resource lists
// fetched concurrently.
package dashboard

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"staffdesk/internal/api"
	"staffdesk/internal/client/listing"
	"staffdesk/internal/client/services"
	"staffdesk/internal/client/storage"
	"staffdesk/internal/models"
)

type Stats struct {
	TotalEmployees    int `json:"totalEmployees" yaml:"totalEmployees"`
	TotalDocuments    int `json:"totalDocuments" yaml:"totalDocuments"`
	PendingDocuments  int `json:"pendingDocuments" yaml:"pendingDocuments"`
	VerifiedDocuments int `json:"verifiedDocuments" yaml:"verifiedDocuments"`
	RejectedDocuments int `json:"rejectedDocuments" yaml:"rejectedDocuments"`
	TotalLocations    int `json:"totalLocations" yaml:"totalLocations"`
}

type Snapshot struct {
	Admin          bool                    `json:"admin" yaml:"admin"`
	Stats          Stats                   `json:"stats" yaml:"stats"`
	CurrentCheckIn *models.LocationCheckIn `json:"currentCheckIn,omitempty" yaml:"currentCheckIn,omitempty"`
	FetchedAt      time.Time               `json:"fetchedAt" yaml:"fetchedAt"`
}

func count[T any](env *api.Envelope[[]T]) int {
	if env == nil {
		return 0
	}
	if env.Count != nil {
		return *env.Count
	}
	return len(env.Data)
}

// Summarize derives the figures from already fetched lists. employees is nil
// for non-admin views.
func Summarize(admin bool, employees *api.Envelope[[]models.Employee], docs *api.Envelope[[]models.Document], locs *api.Envelope[[]models.LocationCheckIn]) Snapshot {
	s := Snapshot{Admin: admin}
	if admin {
		s.Stats.TotalEmployees = count(employees)
	}
	if docs != nil {
		s.Stats.TotalDocuments = len(docs.Data)
		for _, d := range docs.Data {
			switch d.VerificationStatus {
			case models.DocumentPending:
				s.Stats.PendingDocuments++
			case models.DocumentVerified:
				s.Stats.VerifiedDocuments++
			case models.DocumentRejected:
				s.Stats.RejectedDocuments++
			}
		}
	}
	s.Stats.TotalLocations = count(locs)
	if !admin && locs != nil {
		if open, ok := listing.OpenCheckIn(locs.Data); ok {
			s.CurrentCheckIn = &open
		}
	}
	return s
}

type Loader struct {
	Services *services.Services
	Now      func() time.Time
}

// Load fetches every list the view needs in parallel. The first failure
// cancels the rest.
func (l *Loader) Load(ctx context.Context, admin bool) (*Snapshot, error) {
	var (
		employees *api.Envelope[[]models.Employee]
		docs      *api.Envelope[[]models.Document]
		locs      *api.Envelope[[]models.LocationCheckIn]
	)
	g, gctx := errgroup.WithContext(ctx)
	if admin {
		g.Go(func() (err error) {
			employees, err = l.Services.Employees.List(gctx)
			return wrap("employees", err)
		})
	}
	g.Go(func() (err error) {
		docs, err = l.Services.Documents.List(gctx, services.DocumentFilter{})
		return wrap("documents", err)
	})
	g.Go(func() (err error) {
		locs, err = l.Services.Locations.List(gctx, services.LocationFilter{})
		return wrap("locations", err)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	s := Summarize(admin, employees, docs, locs)
	s.FetchedAt = time.Now()
	if l.Now != nil {
		s.FetchedAt = l.Now()
	}
	return &s, nil
}

func wrap(what string, err error) error {
	if err != nil {
		return fmt.Errorf("load %s: %w", what, err)
	}
	return nil
}

// ChangePoll is how often Watch looks at the location status key.
const ChangePoll = 500 * time.Millisecond

// Watch loads once, then again every interval and whenever another process
// touches the location status key. Each result goes to fn; a failed load
// does not stop the loop. Watch returns when ctx ends.
func (l *Loader) Watch(ctx context.Context, admin bool, interval time.Duration, store storage.Storage, fn func(*Snapshot, error)) {
	last, _ := store.Get(storage.KeyLocationStatusChanged)
	fn(l.Load(ctx, admin))

	refresh := time.NewTicker(interval)
	defer refresh.Stop()
	poll := time.NewTicker(min(ChangePoll, interval))
	defer poll.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-refresh.C:
		case <-poll.C:
			cur, _ := store.Get(storage.KeyLocationStatusChanged)
			if cur == last {
				continue
			}
			last = cur
		}
		if ctx.Err() != nil {
			return
		}
		fn(l.Load(ctx, admin))
	}
}
