package store

// Candidates is an ordered list of collection names probed when
// reading or writing leads. Deployments are inconsistent about which
// collection the site's form writes into, so both reads and writes
// walk this list in priority order and stop at the first success.
type Candidates []string

// DefaultCandidates is the fixed global probe order.
var DefaultCandidates = Candidates{"leads", "forms", "submissions", "contacts", "formSubmissions"}

// WriteOrder returns the probe order for persisting a mutation to a
// lead: its provenance collection first, then the remaining candidates
// in fixed order. A lead with no recorded provenance just gets the
// fixed order.
func (c Candidates) WriteOrder(provenance string) []string {
	if provenance == "" {
		return append([]string(nil), c...)
	}
	order := make([]string, 0, len(c)+1)
	order = append(order, provenance)
	for _, name := range c {
		if name != provenance {
			order = append(order, name)
		}
	}
	return order
}
