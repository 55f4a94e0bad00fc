package ta

// Merge reconciles two versions of the full application snapshot using
// per-collection, per-record last-updated-wins merging.
//
// For every collection independently: records present only on one side
// survive; records present on both sides resolve to whichever has the
// strictly greater updatedAt, with ties keeping the local record (local is
// the device the user is looking at right now). Output order within a
// collection is not a correctness property; callers must not depend on it.
//
// Settings merge shallowly with the opposite priority: every key present in
// the remote settings overrides local, keys absent remotely are preserved.
// The asymmetry is deliberate — it lets another device push preference
// changes without a timestamp race.
func Merge(local, remote *Snapshot) *Snapshot {
	if remote == nil {
		return local
	}
	if local == nil {
		return remote
	}

	merged := &Snapshot{}
	for _, c := range Collections {
		merged.SetCollection(c, mergeRecords(local.Collection(c), remote.Collection(c)))
	}

	merged.Settings = mergeSettings(local.Settings, remote.Settings)
	merged.LastSynced = local.LastSynced
	if remote.LastSynced > merged.LastSynced {
		merged.LastSynced = remote.LastSynced
	}
	return merged
}

// mergeRecords joins two record slices on id. Duplicate ids within one side
// cannot occur by construction; if violated upstream, last-inserted wins
// silently.
func mergeRecords(local, remote []Record) []Record {
	byID := make(map[string]Record, len(local)+len(remote))
	order := make([]string, 0, len(local)+len(remote))

	for _, rec := range local {
		if _, seen := byID[rec.ID]; !seen {
			order = append(order, rec.ID)
		}
		byID[rec.ID] = rec
	}

	for _, rec := range remote {
		existing, seen := byID[rec.ID]
		if !seen {
			order = append(order, rec.ID)
			byID[rec.ID] = rec
			continue
		}
		if rec.UpdatedAt > existing.UpdatedAt {
			byID[rec.ID] = rec
		}
	}

	out := make([]Record, 0, len(order))
	for _, id := range order {
		out = append(out, byID[id])
	}
	return out
}

// mergeSettings overlays remote keys onto local. Neither input is mutated.
func mergeSettings(local, remote Settings) Settings {
	if local == nil && remote == nil {
		return nil
	}
	out := make(Settings, len(local)+len(remote))
	for k, v := range local {
		out[k] = v
	}
	for k, v := range remote {
		out[k] = v
	}
	return out
}
