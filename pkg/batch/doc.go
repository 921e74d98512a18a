// Package batch splits keyed items into conflict-free groups.
//
// Cargo refuses two versions of the same package in one [dependencies]
// table, yet a lockfile routinely pins several. [Partition] divides the
// packages into batches in which every name occurs at most once, using as
// few batches as the most repeated name allows.
//
// # Ordering
//
// Each pass scans the remaining items in input order. The first item seen
// for a key goes into the current batch; later items with the same key are
// deferred to the next pass in their original relative order. Batch
// contents are therefore a pure function of the input order.
//
//	items := []batch.Item[string, string]{
//	    {Key: "serde", Value: "1.0.0"},
//	    {Key: "serde", Value: "2.0.0"},
//	}
//	for b := range batch.Partition(items) {
//	    fmt.Println(b.Values())
//	}
package batch
