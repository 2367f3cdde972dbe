package allocation

import (
	"sort"

	"github.com/dalemusser/seatplan/internal/domain/errs"
)

// RankedChoice is one entry of a member's preference list.
type RankedChoice struct {
	MemberID  string
	ProjectID string
	Rank      int // 1 = most preferred
}

// PreferenceIndex maps each member to their choices sorted by rank.
type PreferenceIndex struct {
	byMember map[string][]RankedChoice
}

// NewPreferenceIndex groups choices by member and sorts each list by rank.
//
// Returns *errs.InvalidInputError when a rank is below 1, when a member uses
// the same rank twice, or when a member ranks the same project twice.
// Gaps in a member's ranks are allowed.
func NewPreferenceIndex(choices []RankedChoice) (PreferenceIndex, error) {
	idx := PreferenceIndex{byMember: make(map[string][]RankedChoice)}

	type memberRank struct {
		member string
		rank   int
	}
	type memberProject struct {
		member  string
		project string
	}
	seenRank := make(map[memberRank]struct{}, len(choices))
	seenProject := make(map[memberProject]struct{}, len(choices))

	for _, c := range choices {
		if c.MemberID == "" || c.ProjectID == "" {
			return PreferenceIndex{}, errs.InvalidInput("preference with empty member or project id")
		}
		if c.Rank < 1 {
			return PreferenceIndex{}, errs.InvalidInput("member %s has rank %d; ranks start at 1", c.MemberID, c.Rank)
		}
		mr := memberRank{c.MemberID, c.Rank}
		if _, dup := seenRank[mr]; dup {
			return PreferenceIndex{}, errs.InvalidInput("member %s uses rank %d more than once", c.MemberID, c.Rank)
		}
		mp := memberProject{c.MemberID, c.ProjectID}
		if _, dup := seenProject[mp]; dup {
			return PreferenceIndex{}, errs.InvalidInput("member %s ranks project %s more than once", c.MemberID, c.ProjectID)
		}
		seenRank[mr] = struct{}{}
		seenProject[mp] = struct{}{}
		idx.byMember[c.MemberID] = append(idx.byMember[c.MemberID], c)
	}

	for _, list := range idx.byMember {
		sort.Slice(list, func(i, j int) bool { return list[i].Rank < list[j].Rank })
	}
	return idx, nil
}

// For returns a member's choices in rank order. The slice must not be modified.
func (p PreferenceIndex) For(memberID string) []RankedChoice {
	return p.byMember[memberID]
}

// AtRank returns the project a member ranked at exactly rank, if any.
func (p PreferenceIndex) AtRank(memberID string, rank int) (string, bool) {
	for _, c := range p.byMember[memberID] {
		if c.Rank == rank {
			return c.ProjectID, true
		}
		if c.Rank > rank {
			break
		}
	}
	return "", false
}

// Members returns the number of members with at least one choice.
func (p PreferenceIndex) Members() int { return len(p.byMember) }

// ValidatePool checks a member pool for empty or duplicate IDs.
func ValidatePool(members []string) error {
	seen := make(map[string]struct{}, len(members))
	for i, m := range members {
		if m == "" {
			return errs.InvalidInput("member at position %d has an empty id", i)
		}
		if _, dup := seen[m]; dup {
			return errs.InvalidInput("member %s appears more than once in the pool", m)
		}
		seen[m] = struct{}{}
	}
	return nil
}
