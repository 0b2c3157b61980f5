package server

import (
	"context"
	"log"
	"strconv"

	"github.com/gravitas-games/logistics/internal/inventory"
	"github.com/gravitas-games/logistics/internal/network"
	"github.com/gravitas-games/logistics/internal/stash"
)

// Owners resolves the platform account owning a servant.
type Owners interface {
	OwnerPlatformID(servant stash.EntityID) (uint64, error)
}

// ReportNotifier pushes stash reports to the servant owner's connection.
// Reports for owners that are offline are dropped.
type ReportNotifier struct {
	session  *Session
	owners   Owners
	registry *inventory.Registry
}

// Notifier returns a recorder that forwards stash reports to players.
func (s *Server) Notifier() *ReportNotifier {
	return &ReportNotifier{session: s.session, owners: s.world, registry: s.registry}
}

func (n *ReportNotifier) Record(_ context.Context, r stash.Report) error {
	pid, err := n.owners.OwnerPlatformID(r.Unit)
	if err != nil {
		return err
	}
	playerID := strconv.FormatUint(pid, 10)
	if !n.session.SendTo(playerID, &network.ServerMessage{
		Type:    network.MsgTypeStashReport,
		Payload: reportPayload(r, n.registry),
	}) {
		log.Printf("Player %s offline, stash report %s not delivered", playerID, r.RunID)
	}
	return nil
}

func reportPayload(r stash.Report, reg *inventory.Registry) network.StashReportPayload {
	t := r.Totals()
	p := network.StashReportPayload{
		RunID:       r.RunID,
		Servant:     string(r.Unit),
		Moved:       t.Added,
		Restored:    t.Restored,
		Lost:        t.Lost,
		NoInventory: r.NoInventory,
		Aborted:     r.Aborted,
		Legs:        make([]network.StashLegPayload, 0, len(r.Legs)),
	}
	for _, leg := range r.Legs {
		p.Legs = append(p.Legs, network.StashLegPayload{
			Item:      string(leg.Item),
			ItemName:  reg.Name(leg.Item),
			Container: string(leg.Destination.Container),
			Overflow:  leg.Overflow,
			Amount:    leg.Amount,
			State:     leg.State.String(),
		})
	}
	return p
}
