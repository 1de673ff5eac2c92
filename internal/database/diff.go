package database

import "sort"

// DiffResult describes the structural change between two snapshots of
// the same case.
type DiffResult struct {
	// Older and Newer identify the compared snapshots by run ID.
	Older, Newer string

	// ChangedKeys lists fingerprint keys (instance IDs and tab names)
	// whose first-document fingerprint differs.
	ChangedKeys []string

	// AddedKeys and RemovedKeys list fingerprint keys present in only
	// one snapshot: new instances or tabs, and vanished ones.
	AddedKeys   []string
	RemovedKeys []string

	// DocumentDelta is newer total minus older total.
	DocumentDelta int
}

// Changed reports whether anything differs.
func (d *DiffResult) Changed() bool {
	return len(d.ChangedKeys) > 0 || len(d.AddedKeys) > 0 ||
		len(d.RemovedKeys) > 0 || d.DocumentDelta != 0
}

// DiffSnapshots compares two snapshots, older against newer. Comparing
// fingerprints answers "did the case grow" without re-parsing anything:
// a new document at the head of an instance changes that instance's
// fingerprint.
func DiffSnapshots(older, newer Snapshot) *DiffResult {
	d := &DiffResult{
		Older:         older.RunID,
		Newer:         newer.RunID,
		DocumentDelta: newer.TotalDocuments - older.TotalDocuments,
	}

	for k, newFP := range newer.Fingerprints {
		oldFP, ok := older.Fingerprints[k]
		switch {
		case !ok:
			d.AddedKeys = append(d.AddedKeys, k)
		case oldFP != newFP:
			d.ChangedKeys = append(d.ChangedKeys, k)
		}
	}
	for k := range older.Fingerprints {
		if _, ok := newer.Fingerprints[k]; !ok {
			d.RemovedKeys = append(d.RemovedKeys, k)
		}
	}

	sort.Strings(d.ChangedKeys)
	sort.Strings(d.AddedKeys)
	sort.Strings(d.RemovedKeys)
	return d
}
