// Package lifecycle holds the rules that govern service tickets: who may act
// on a ticket, which status transitions are legal, how tickets are ranked for
// display, and how SLA countdowns are derived.
//
// Everything here is storage-free. Services call these functions before
// writing, and views call the same functions to decide which actions to offer,
// so the two can never disagree.
package lifecycle
