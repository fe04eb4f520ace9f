package room

// The sequencer is the room's single source of event order. Sequence numbers
// reflect assignment order, not audio capture time: transcription latency
// varies per chunk, so capture-time ordering would need buffering and
// reordering on the hot path. Capture timestamps stay on the record as display
// metadata.

// nextSeqLocked assigns the next sequence number. The caller holds r.mu, which
// makes assignment atomic per room. The monotonicity check cannot fire with a
// locked counter; if it ever does, the room is poisoned and must be recreated.
func (r *Room) nextSeqLocked() (uint64, error) {
	r.seq++
	if r.seq <= r.lastPublished {
		return 0, ErrSequencerFault
	}
	r.lastPublished = r.seq
	return r.seq, nil
}

// LastSeq returns the highest sequence number assigned so far.
func (r *Room) LastSeq() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seq
}
