package businessflow

import (
	"context"
	"log"

	"github.com/amirphl/Kusanagi/app/scheduler"
	"github.com/amirphl/Kusanagi/app/services"
	"github.com/amirphl/Kusanagi/repository"
)

// ClickSink receives redirect events for asynchronous recording
type ClickSink interface {
	Track(event scheduler.ClickEvent)
}

// ResolveFlow resolves a short code to its destination URL
// Precedence depends on identity: authenticated visitors only see the
// persistent store, anonymous visitors check their guest store first and
// fall through to the persistent store on a miss
// Public flow, no authentication required
type ResolveFlow interface {
	Resolve(ctx context.Context, code string, customerID *uint, metadata *ClientMetadata) (string, error)
}

type ResolveFlowImpl struct {
	linkRepo   repository.ShortLinkRepository
	guestStore services.GuestLinkStore
	clicks     ClickSink
}

func NewResolveFlow(linkRepo repository.ShortLinkRepository, guestStore services.GuestLinkStore, clicks ClickSink) ResolveFlow {
	return &ResolveFlowImpl{linkRepo: linkRepo, guestStore: guestStore, clicks: clicks}
}

func (f *ResolveFlowImpl) Resolve(ctx context.Context, code string, customerID *uint, metadata *ClientMetadata) (string, error) {
	code = NormalizeCode(code)
	if code == "" {
		return "", ErrLinkNotFound
	}

	if customerID == nil {
		// Guest store errors degrade to a miss so the persistent store can still answer
		guest, err := f.guestStore.Get(ctx, code)
		if err != nil {
			log.Printf("resolve: guest store lookup failed for %s: %v", code, err)
		}
		if guest != nil {
			return guest.Destination, nil
		}
	}

	row, err := f.linkRepo.ByCode(ctx, code)
	if err != nil {
		return "", NewBusinessError(ErrCodeBackendError, "Failed to lookup short link", err)
	}
	if row == nil {
		return "", ErrLinkNotFound
	}

	// Click recording must never delay or fail the redirect
	if err := f.linkRepo.IncrementClicks(ctx, row.ID); err != nil {
		log.Printf("resolve: failed to increment clicks for %s: %v", code, err)
	}
	if f.clicks != nil {
		event := scheduler.ClickEvent{ShortLinkID: row.ID, Code: row.Code}
		if metadata != nil {
			event.UserAgent = metadata.UserAgent
			event.Referrer = metadata.Referrer
			event.IP = metadata.IPAddress
		}
		f.clicks.Track(event)
	}

	return row.Destination, nil
}
