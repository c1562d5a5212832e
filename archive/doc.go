// Package archive glues the bounded history metadata log to the out-of-line
// blob store for one generation domain (images, audio, transcriptions).
//
// The two stores are physically separate and hold no shared locks; the
// Archive composes them purely via explicit return values, most importantly
// the evicted-entries list returned by HistoryStore.Add. The ordering
// discipline is fixed: metadata removal happens first, blob cleanup follows.
// A crash between the two steps can leave an orphaned blob (a space leak)
// but never a live entry referencing a deleted blob, because the entry is
// already gone from the list readers observe.
package archive
