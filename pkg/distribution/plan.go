package distribution

import (
	"fmt"
	"math"

	"github.com/Sternrassler/ladder-ingest/pkg/league"
)

// Target is the number of entries to ingest for one bracket.
type Target struct {
	Bracket    league.Bracket
	MaxEntries int
}

// Plan splits total entries across servers, tiers and divisions in proportion
// to the player base. Server shares are renormalized over the selected
// servers and rank shares over the tiers the entries endpoint serves.
// Brackets that round to zero are dropped.
func Plan(total int, queue league.Queue, servers []league.Server) ([]Target, error) {
	if total <= 0 {
		return nil, fmt.Errorf("plan total must be positive (got %d)", total)
	}
	if _, err := league.ParseQueue(string(queue)); err != nil {
		return nil, err
	}
	if len(servers) == 0 {
		servers = league.Servers()
	}

	// A server listed twice is planned once.
	seen := make(map[league.Server]bool, len(servers))
	unique := make([]league.Server, 0, len(servers))
	var serverTotal float64
	for _, s := range servers {
		if _, err := league.ParseServer(string(s)); err != nil {
			return nil, err
		}
		if seen[s] {
			continue
		}
		seen[s] = true
		unique = append(unique, s)
		serverTotal += ServerShare(s)
	}
	servers = unique

	var targets []Target
	for _, s := range servers {
		serverShare := ServerShare(s) / serverTotal
		for _, tier := range league.Tiers() {
			for _, d := range league.Divisions() {
				share := serverShare * RankShare(tier, d) / rankTotal
				n := int(math.Round(float64(total) * share))
				if n == 0 {
					continue
				}
				targets = append(targets, Target{
					Bracket: league.Bracket{
						Server:   s,
						Queue:    queue,
						Tier:     tier,
						Division: d,
					},
					MaxEntries: n,
				})
			}
		}
	}
	return targets, nil
}
