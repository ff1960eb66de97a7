// Package league defines the ranked-ladder vocabulary of the Riot League API:
// servers, queues, tiers and divisions, plus the raw Record type the API
// returns.
//
// Every enum is a closed set. Parsing an unknown code fails rather than
// passing the value through.
package league

import (
	"errors"
	"fmt"
)

// ErrUnknownCode is returned when an API code is not a member of its enum.
var ErrUnknownCode = errors.New("unknown code")

// Server is a platform routing value of the League API.
type Server string

// Servers, named by their community abbreviation.
const (
	ServerBR   Server = "BR1"
	ServerEUNE Server = "EUN1"
	ServerEUW  Server = "EUW1"
	ServerJP   Server = "JP1"
	ServerKR   Server = "KR"
	ServerLAN  Server = "LA1"
	ServerLAS  Server = "LA2"
	ServerNA   Server = "NA1"
	ServerOCE  Server = "OC1"
	ServerRU   Server = "RU"
	ServerTR   Server = "TR1"
)

var servers = []Server{
	ServerBR, ServerEUNE, ServerEUW, ServerJP, ServerKR, ServerLAN,
	ServerLAS, ServerNA, ServerOCE, ServerRU, ServerTR,
}

var serverNames = map[Server]string{
	ServerBR:   "BR",
	ServerEUNE: "EUNE",
	ServerEUW:  "EUW",
	ServerJP:   "JP",
	ServerKR:   "KR",
	ServerLAN:  "LAN",
	ServerLAS:  "LAS",
	ServerNA:   "NA",
	ServerOCE:  "OCE",
	ServerRU:   "RU",
	ServerTR:   "TR",
}

// Servers returns every server in declaration order.
func Servers() []Server {
	return append([]Server(nil), servers...)
}

// Name returns the community abbreviation, e.g. "EUW" for EUW1.
func (s Server) Name() string {
	return serverNames[s]
}

// ParseServer accepts either the routing value ("EUW1") or the community
// abbreviation ("EUW").
func ParseServer(code string) (Server, error) {
	for _, s := range servers {
		if string(s) == code || serverNames[s] == code {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: server %q", ErrUnknownCode, code)
}

// Queue is a ranked queue.
type Queue string

// Ranked queues.
const (
	QueueSoloDuo Queue = "RANKED_SOLO_5x5"
	QueueFlexSR  Queue = "RANKED_FLEX_SR"
	QueueFlexTT  Queue = "RANKED_FLEX_TT"
)

var queues = []Queue{QueueSoloDuo, QueueFlexSR, QueueFlexTT}

// ParseQueue validates a queue code.
func ParseQueue(code string) (Queue, error) {
	for _, q := range queues {
		if string(q) == code {
			return q, nil
		}
	}
	return "", fmt.Errorf("%w: queue %q", ErrUnknownCode, code)
}

// Tier is a competitive tier reachable through the paginated entries
// endpoint. Master and above are served by a different endpoint.
type Tier string

// Tiers, from highest to lowest.
const (
	TierDiamond  Tier = "DIAMOND"
	TierPlatinum Tier = "PLATINUM"
	TierGold     Tier = "GOLD"
	TierSilver   Tier = "SILVER"
	TierBronze   Tier = "BRONZE"
	TierIron     Tier = "IRON"
)

var tiers = []Tier{TierDiamond, TierPlatinum, TierGold, TierSilver, TierBronze, TierIron}

// Tiers returns every tier from highest to lowest.
func Tiers() []Tier {
	return append([]Tier(nil), tiers...)
}

// ParseTier validates a tier code.
func ParseTier(code string) (Tier, error) {
	for _, t := range tiers {
		if string(t) == code {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: tier %q", ErrUnknownCode, code)
}

// Division is a division within a tier. I is the highest.
type Division string

// Divisions, from highest to lowest.
const (
	DivisionI   Division = "I"
	DivisionII  Division = "II"
	DivisionIII Division = "III"
	DivisionIV  Division = "IV"
)

var divisions = []Division{DivisionI, DivisionII, DivisionIII, DivisionIV}

// Divisions returns every division from highest to lowest.
func Divisions() []Division {
	return append([]Division(nil), divisions...)
}

// ParseDivision validates a division code.
func ParseDivision(code string) (Division, error) {
	for _, d := range divisions {
		if string(d) == code {
			return d, nil
		}
	}
	return "", fmt.Errorf("%w: division %q", ErrUnknownCode, code)
}

// Bracket identifies one paginated slice of the ladder.
type Bracket struct {
	Server   Server
	Queue    Queue
	Tier     Tier
	Division Division
}

func (b Bracket) String() string {
	return fmt.Sprintf("%s/%s/%s %s", b.Server, b.Queue, b.Tier, b.Division)
}

// Validate checks that every field is a known enum member.
func (b Bracket) Validate() error {
	if _, err := ParseServer(string(b.Server)); err != nil {
		return err
	}
	if _, err := ParseQueue(string(b.Queue)); err != nil {
		return err
	}
	if _, err := ParseTier(string(b.Tier)); err != nil {
		return err
	}
	if _, err := ParseDivision(string(b.Division)); err != nil {
		return err
	}
	return nil
}
