// Package netmon watches connectivity to the media server by probing a
// lightweight HTTP endpoint on a fixed cadence.
//
// The Monitor exposes the last observed state and notifies subscribers on
// transitions. Loss of connectivity is debounced across consecutive probe
// failures so a single dropped request on a flaky site uplink does not tear
// down an in-flight sync pass; recovery is reported on the first successful
// probe.
package netmon
