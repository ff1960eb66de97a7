// Package distribution holds static estimates of how the ranked player base is
// spread across tiers, divisions and servers, and uses them to split an
// ingestion budget into per-bracket targets.
//
// Rank shares come from leagueofgraphs.com (December 2020); server populations
// are ranked player counts from 2020. Shares outside the top tiers barely vary
// between servers, so one rank table serves every server.
package distribution

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/Sternrassler/ladder-ingest/pkg/league"
)

// Tolerance is the accepted deviation of a normalized table from 1.0.
const Tolerance = 1e-9

// ErrInvalidTable is returned by Validate for incomplete or malformed tables.
var ErrInvalidTable = errors.New("invalid distribution table")

// rankShares is the fraction of all ranked players in each tier and division.
// Master and above are excluded, so the table sums to slightly below 1.
var rankShares = map[league.Tier]map[league.Division]float64{
	league.TierDiamond: {
		league.DivisionI: 0.0014, league.DivisionII: 0.0027,
		league.DivisionIII: 0.0050, league.DivisionIV: 0.0150,
	},
	league.TierPlatinum: {
		league.DivisionI: 0.013, league.DivisionII: 0.013,
		league.DivisionIII: 0.021, league.DivisionIV: 0.067,
	},
	league.TierGold: {
		league.DivisionI: 0.029, league.DivisionII: 0.051,
		league.DivisionIII: 0.068, league.DivisionIV: 0.140,
	},
	league.TierSilver: {
		league.DivisionI: 0.059, league.DivisionII: 0.085,
		league.DivisionIII: 0.073, league.DivisionIV: 0.110,
	},
	league.TierBronze: {
		league.DivisionI: 0.070, league.DivisionII: 0.059,
		league.DivisionIII: 0.031, league.DivisionIV: 0.033,
	},
	league.TierIron: {
		league.DivisionI: 0.0160, league.DivisionII: 0.0086,
		league.DivisionIII: 0.0050, league.DivisionIV: 0.0019,
	},
}

// serverPopulations are ranked player counts per server. KR is scaled down by
// 100 to keep it from dominating the data set.
var serverPopulations = map[league.Server]int{
	league.ServerKR:   3_878_509 / 100,
	league.ServerEUW:  3_112_127,
	league.ServerNA:   1_726_310,
	league.ServerEUNE: 1_560_010,
	league.ServerBR:   1_370_524,
	league.ServerTR:   820_695,
	league.ServerLAN:  689_731,
	league.ServerLAS:  688_672,
	league.ServerRU:   214_561,
	league.ServerOCE:  210_306,
	league.ServerJP:   115_552,
}

var (
	serverShares map[league.Server]float64
	rankTotal    float64
)

func init() {
	if err := validateRankShares(rankShares); err != nil {
		panic(err)
	}
	shares, err := Normalize(serverPopulations)
	if err != nil {
		panic(err)
	}
	serverShares = shares

	for _, divisions := range rankShares {
		for _, share := range divisions {
			rankTotal += share
		}
	}
}

// RankShare returns the fraction of ranked players in tier and division.
func RankShare(tier league.Tier, division league.Division) float64 {
	return rankShares[tier][division]
}

// TierShare returns the fraction of ranked players in tier.
func TierShare(tier league.Tier) float64 {
	var total float64
	for _, share := range rankShares[tier] {
		total += share
	}
	return total
}

// RankTotal returns the sum of all rank shares.
func RankTotal() float64 {
	return rankTotal
}

// ServerShare returns the fraction of ranked players on server.
func ServerShare(server league.Server) float64 {
	return serverShares[server]
}

// Normalize converts populations into shares summing to 1. Every server must
// be present with a positive population.
func Normalize(populations map[league.Server]int) (map[league.Server]float64, error) {
	var total int
	for _, s := range league.Servers() {
		n, ok := populations[s]
		if !ok {
			return nil, fmt.Errorf("%w: missing server %s", ErrInvalidTable, s)
		}
		if n <= 0 {
			return nil, fmt.Errorf("%w: server %s has population %d", ErrInvalidTable, s, n)
		}
		total += n
	}
	if len(populations) != len(league.Servers()) {
		return nil, fmt.Errorf("%w: unknown servers in table", ErrInvalidTable)
	}

	shares := make(map[league.Server]float64, len(populations))
	for s, n := range populations {
		shares[s] = float64(n) / float64(total)
	}
	return shares, Validate(shares)
}

// Validate checks that a server table covers every server and sums to 1.
func Validate(shares map[league.Server]float64) error {
	var total float64
	for _, s := range league.Servers() {
		share, ok := shares[s]
		if !ok {
			return fmt.Errorf("%w: missing server %s", ErrInvalidTable, s)
		}
		if share < 0 {
			return fmt.Errorf("%w: server %s has negative share", ErrInvalidTable, s)
		}
		total += share
	}
	if len(shares) != len(league.Servers()) {
		return fmt.Errorf("%w: unknown servers in table", ErrInvalidTable)
	}
	if math.Abs(total-1) > Tolerance {
		return fmt.Errorf("%w: shares sum to %v", ErrInvalidTable, total)
	}
	return nil
}

func validateRankShares(table map[league.Tier]map[league.Division]float64) error {
	var total float64
	for _, tier := range league.Tiers() {
		divisions, ok := table[tier]
		if !ok {
			return fmt.Errorf("%w: missing tier %s", ErrInvalidTable, tier)
		}
		for _, d := range league.Divisions() {
			share, ok := divisions[d]
			if !ok || share <= 0 {
				return fmt.Errorf("%w: tier %s division %s", ErrInvalidTable, tier, d)
			}
			total += share
		}
	}
	if total > 1+Tolerance {
		return fmt.Errorf("%w: rank shares sum to %v", ErrInvalidTable, total)
	}
	return nil
}

// Describe renders the tables, one tier or server per line.
func Describe() string {
	var b strings.Builder
	for _, tier := range league.Tiers() {
		fmt.Fprintf(&b, "%s (%.2f%%):", tier, TierShare(tier)*100)
		for _, d := range league.Divisions() {
			fmt.Fprintf(&b, " %s: %.2f%%", d, RankShare(tier, d)*100)
		}
		b.WriteByte('\n')
	}

	servers := league.Servers()
	sort.SliceStable(servers, func(i, j int) bool {
		return serverShares[servers[i]] > serverShares[servers[j]]
	})
	for _, s := range servers {
		fmt.Fprintf(&b, "%s: %.2f%%\n", s.Name(), serverShares[s]*100)
	}
	return b.String()
}
