// Package reconcile implements head selection, fork detection, and
// the advisory diff between a local and remote policy feed.
package reconcile

import (
	"sort"

	"xdao.co/villages/policyfeed"
	"xdao.co/villages/policyupdate"
)

// Head returns the update maximizing (created_at, policy_hash). The
// empty-list case returns ok=false.
func Head(list []policyupdate.Update) (policyupdate.Update, bool) {
	if len(list) == 0 {
		return nil, false
	}
	sorted := make([]policyupdate.Update, len(list))
	copy(sorted, list)
	policyfeed.SortByCreatedAtThenHash(sorted)
	return sorted[len(sorted)-1], true
}

// ForkChild is one entry in a Fork's children list.
type ForkChild struct {
	PolicyHash     string
	CreatedAt      string
	UpdateHash     string
	LifecycleState string
}

// Fork groups the distinct children sharing one previous_policy_hash.
type Fork struct {
	PreviousPolicyHash string
	Children           []ForkChild
}

// DetectForks groups list by previous_policy_hash (excluding the
// root/empty case) and reports every group with >= 2 distinct
// policy_hash children, sorted by (created_at, policy_hash).
func DetectForks(list []policyupdate.Update) ([]Fork, error) {
	groups := make(map[string][]policyupdate.Update)
	var order []string
	for _, u := range list {
		prev, _ := u["previous_policy_hash"].(string)
		if prev == "" {
			continue
		}
		if _, ok := groups[prev]; !ok {
			order = append(order, prev)
		}
		groups[prev] = append(groups[prev], u)
	}
	sort.Strings(order)

	var forks []Fork
	for _, prev := range order {
		members := groups[prev]
		distinct := make(map[string]bool)
		for _, u := range members {
			h, _ := u["policy_hash"].(string)
			distinct[h] = true
		}
		if len(distinct) < 2 {
			continue
		}
		policyfeed.SortByCreatedAtThenHash(members)
		children := make([]ForkChild, 0, len(distinct))
		added := make(map[string]bool, len(distinct))
		for _, u := range members {
			h := strField(u, "policy_hash")
			if added[h] {
				continue
			}
			added[h] = true
			uh, err := policyupdate.ComputeUpdateHash(u)
			if err != nil {
				return nil, err
			}
			children = append(children, ForkChild{
				PolicyHash:     h,
				CreatedAt:      strField(u, "created_at"),
				UpdateHash:     uh,
				LifecycleState: strField(u, "lifecycle_state"),
			})
		}
		forks = append(forks, Fork{PreviousPolicyHash: prev, Children: children})
	}
	return forks, nil
}

func strField(u policyupdate.Update, key string) string {
	s, _ := u[key].(string)
	return s
}

// Report is the result of reconciling a local and remote feed for one
// village.
type Report struct {
	VillageID     string
	LocalHead     string
	RemoteHead    string
	Drift         bool
	Forks         []Fork
	MissingLocal  []string
	MissingRemote []string
}

// Reconcile compares local and remote feeds for villageID.
func Reconcile(local, remote []policyupdate.Update, villageID string) (Report, error) {
	localHeadU, _ := Head(local)
	remoteHeadU, _ := Head(remote)
	localHead := strField(localHeadU, "policy_hash")
	remoteHead := strField(remoteHeadU, "policy_hash")

	localSet := hashSet(local)
	remoteSet := hashSet(remote)

	missingLocal := sortedDiff(remoteSet, localSet)
	missingRemote := sortedDiff(localSet, remoteSet)

	combined := append(append([]policyupdate.Update{}, local...), remote...)
	forks, err := DetectForks(combined)
	if err != nil {
		return Report{}, err
	}

	return Report{
		VillageID:     villageID,
		LocalHead:     localHead,
		RemoteHead:    remoteHead,
		Drift:         localHead != remoteHead,
		Forks:         forks,
		MissingLocal:  missingLocal,
		MissingRemote: missingRemote,
	}, nil
}

func hashSet(list []policyupdate.Update) map[string]bool {
	set := make(map[string]bool, len(list))
	for _, u := range list {
		h, _ := u["policy_hash"].(string)
		if h != "" {
			set[h] = true
		}
	}
	return set
}

// sortedDiff returns, sorted, the members of a that are not in b.
func sortedDiff(a, b map[string]bool) []string {
	var out []string
	for h := range a {
		if !b[h] {
			out = append(out, h)
		}
	}
	sort.Strings(out)
	return out
}
