package webgraph

// DedupBuffer is the extra slack HostBacklinksQuery scans past limit before
// giving up on finding limit distinct hosts (§4.8's DEDUPLICATION_BUFFER).
const DedupBuffer = 20

// HostBacklinksQuery returns up to limit backlinks into node, deduplicated
// by FromHost: once a host has contributed one backlink, further backlinks
// from that same host are skipped. The scan short-circuits after examining
// limit+DedupBuffer candidate edges even if fewer than limit distinct hosts
// were found, trading completeness for a bounded worst case. When
// skipSelfLinks is set, edges whose FromHost equals node's own host (the
// edge's To, since node is itself queried at the host granularity a caller
// may already be treating as a host id) are dropped before counting toward
// either limit.
func HostBacklinksQuery(s *Store, node NodeID, limit int, skipSelfLinks bool) ([]Edge, error) {
	if limit <= 0 {
		return nil, nil
	}

	candidates, err := s.Incoming(node)
	if err != nil {
		return nil, err
	}

	seenHosts := make(map[NodeID]struct{}, limit)
	out := make([]Edge, 0, limit)
	scanned := 0
	maxScan := limit + DedupBuffer

	for _, e := range candidates {
		if scanned >= maxScan {
			break
		}
		scanned++

		if skipSelfLinks && e.FromHost == node {
			continue
		}
		if !e.FromHost.IsZero() {
			if _, dup := seenHosts[e.FromHost]; dup {
				continue
			}
			seenHosts[e.FromHost] = struct{}{}
		}

		out = append(out, e)
		if len(out) >= limit {
			break
		}
	}

	return out, nil
}
