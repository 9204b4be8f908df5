// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package gmain

import (
	"sort"
	"sync/atomic"
)

// pollTagSeq hands out poll-record tags; a tag never changes once assigned,
// so one returned by AddUnixFD stays valid across a later attach.
var pollTagSeq atomic.Uint64

// pollRecord is one entry of a [Context]'s sorted poll-record list: a
// descriptor, the events a [Source] asked to monitor on it, the priority at
// which that monitoring matters, and an opaque tag identifying it to the
// owning source's ModifyUnixFD/RemoveUnixFD/QueryUnixFD calls.
type pollRecord struct {
	fd       int
	events   PollEvent
	revents  PollEvent
	priority int32
	tag      uint64
	owner    *Source
}

// pollRecordList keeps records sorted by fd ascending, the order [query]
// relies on to coalesce records sharing a descriptor in one linear pass and
// to merge revents back in another.
type pollRecordList struct {
	records []*pollRecord
	changed bool
}

func (l *pollRecordList) insert(r *pollRecord) {
	if r.tag == 0 {
		r.tag = pollTagSeq.Add(1)
	}
	i := sort.Search(len(l.records), func(i int) bool { return l.records[i].fd >= r.fd })
	l.records = append(l.records, nil)
	copy(l.records[i+1:], l.records[i:])
	l.records[i] = r
	l.changed = true
}

func (l *pollRecordList) remove(r *pollRecord) {
	for i, rec := range l.records {
		if rec == r {
			l.records = append(l.records[:i], l.records[i+1:]...)
			l.changed = true
			return
		}
	}
}

func (l *pollRecordList) findByTag(owner *Source, tag uint64) *pollRecord {
	for _, r := range l.records {
		if r.owner == owner && r.tag == tag {
			return r
		}
	}
	return nil
}

// query fills buf with up to len(buf) coalesced entries for records with
// priority <= maxPriority, masking off ERR/HUP/NVAL from the requested
// events (those bits are always reported regardless of whether asked for),
// and returns the number of entries actually required -- which may exceed
// len(buf), in which case the caller must retry with a bigger buffer.
func (l *pollRecordList) query(maxPriority int32, buf []PollFD) (required int) {
	l.changed = false
	var lastFD = -1
	for _, r := range l.records {
		if r.priority > maxPriority {
			continue
		}
		events := r.events &^ (PollErr | PollHup | PollNval)
		if required > 0 && lastFD == r.fd {
			if required-1 < len(buf) {
				buf[required-1].Events |= events
			}
			continue
		}
		if required < len(buf) {
			buf[required] = PollFD{FD: r.fd, Events: events}
		}
		required++
		lastFD = r.fd
	}
	return required
}

// mergeRevents writes the revents observed for each polled fd back onto the
// records sharing that fd, in a single linear pass over both (sorted) lists.
func (l *pollRecordList) mergeRevents(fds []PollFD) {
	j := 0
	for _, r := range l.records {
		for j < len(fds) && fds[j].FD < r.fd {
			j++
		}
		if j < len(fds) && fds[j].FD == r.fd {
			r.revents = fds[j].REvents
		} else {
			r.revents = 0
		}
	}
}
