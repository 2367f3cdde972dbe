package allocation

// ExtraRounds is added to the project count to bound the number of rounds.
const ExtraRounds = 5

// ProjectMembers is one project's proposed member list.
type ProjectMembers struct {
	ProjectID string
	MemberIDs []string
}

// Result is a proposed assignment: one list per project in listing order
// (possibly empty) plus the members that could not be seated, in pool order.
type Result struct {
	Projects []ProjectMembers
	Unplaced []string
}

// Match runs the greedy round-based matcher.
//
// The algorithm:
//  1. Every member of the pool starts pending, in pool order
//  2. For round r = 1 .. len(projects)+ExtraRounds, visit pending members in order:
//     a member with a choice ranked exactly r tries only that project; a member
//     without one tries every project in listing order and takes the first free seat
//  3. A placed member leaves the pending set; the set for the next round is
//     rebuilt from those still unplaced
//  4. Stop when nothing is pending or the round limit is reached
//
// Ties are broken by pool order: when two members want the last seat in the
// same round, the earlier one gets it. Projects with no seats and projects
// missing from the snapshot are never chosen. Match never fails; callers
// validate inputs when building them.
//
// Example:
//
//	snap, _ := allocation.NewCapacitySnapshot([]allocation.ProjectSeats{{ProjectID: "a", Remaining: 2}})
//	prefs, _ := allocation.NewPreferenceIndex(choices)
//	res := allocation.Match([]string{"u1", "u2"}, prefs, snap)
func Match(members []string, prefs PreferenceIndex, capacity CapacitySnapshot) Result {
	seats := capacity.seats()
	lists := make(map[string][]string, capacity.Len())
	order := capacity.order

	pending := make([]string, len(members))
	copy(pending, members)

	maxRounds := len(order) + ExtraRounds
	for round := 1; round <= maxRounds && len(pending) > 0; round++ {
		next := pending[:0:0]
		for _, member := range pending {
			if pid, ok := place(member, round, prefs, order, seats); ok {
				lists[pid] = append(lists[pid], member)
				continue
			}
			next = append(next, member)
		}
		pending = next
	}

	res := Result{
		Projects: make([]ProjectMembers, 0, len(order)),
		Unplaced: pending,
	}
	for _, pid := range order {
		ids := lists[pid]
		if ids == nil {
			ids = []string{}
		}
		res.Projects = append(res.Projects, ProjectMembers{ProjectID: pid, MemberIDs: ids})
	}
	if res.Unplaced == nil {
		res.Unplaced = []string{}
	}
	return res
}

// place tries to seat one member for the given round and decrements the
// chosen project's seats on success.
func place(member string, round int, prefs PreferenceIndex, order []string, seats map[string]int) (string, bool) {
	if pid, ok := prefs.AtRank(member, round); ok {
		if seats[pid] > 0 {
			seats[pid]--
			return pid, true
		}
		return "", false
	}
	for _, pid := range order {
		if seats[pid] > 0 {
			seats[pid]--
			return pid, true
		}
	}
	return "", false
}

// Members returns every placed member, grouped by project in listing order.
func (r Result) Members() []string {
	var out []string
	for _, p := range r.Projects {
		out = append(out, p.MemberIDs...)
	}
	return out
}

// ProjectOf returns the project a member was placed in.
func (r Result) ProjectOf(memberID string) (string, bool) {
	for _, p := range r.Projects {
		for _, m := range p.MemberIDs {
			if m == memberID {
				return p.ProjectID, true
			}
		}
	}
	return "", false
}

// Lists returns the result as a project → members map.
func (r Result) Lists() map[string][]string {
	out := make(map[string][]string, len(r.Projects))
	for _, p := range r.Projects {
		out[p.ProjectID] = p.MemberIDs
	}
	return out
}

// Placed returns the number of seated members.
func (r Result) Placed() int {
	n := 0
	for _, p := range r.Projects {
		n += len(p.MemberIDs)
	}
	return n
}
