package doctree

// Reconcile rewrites the live subtree at id so that it matches spec, keeping
// as many existing nodes as it can.
//
// A node survives when its type and leafness match; surviving leaves get their
// text updated in place. Children are matched by common prefix and suffix,
// first on identical text and then on type alone. A middle run of equal length
// is reconciled pairwise and any other middle run is rebuilt. A node whose type
// changed is replaced.
func (tx *Tx) Reconcile(id NodeID, spec Spec) error {
	if err := tx.checkLive(id); err != nil {
		return err
	}
	return tx.reconcile(id, spec)
}

func (tx *Tx) matches(id NodeID, spec Spec) bool {
	n := &tx.doc.nodes[id]
	return n.typ == spec.Type && n.leaf == spec.IsLeaf()
}

func (tx *Tx) identical(id NodeID, spec Spec) bool {
	return tx.matches(id, spec) && tx.doc.Text(id) == spec.Source()
}

// commonEnds counts the leading and trailing pairs accepted by eq without the
// two runs overlapping.
func commonEnds(old []NodeID, want []Spec, eq func(NodeID, Spec) bool) (prefix, suffix int) {
	limit := min(len(old), len(want))
	for prefix < limit && eq(old[prefix], want[prefix]) {
		prefix++
	}
	for suffix < limit-prefix && eq(old[len(old)-1-suffix], want[len(want)-1-suffix]) {
		suffix++
	}
	return prefix, suffix
}

func (tx *Tx) reconcile(id NodeID, spec Spec) error {
	d := tx.doc
	if !tx.matches(id, spec) {
		return tx.Replace(id, tx.Build(spec))
	}
	if d.nodes[id].leaf {
		return tx.SetText(id, spec.Text)
	}

	old := append([]NodeID(nil), d.nodes[id].children...)
	want := spec.Children

	// Identical siblings anchor the diff first so an insertion does not shift
	// every following node onto its neighbour.
	p1, s1 := commonEnds(old, want, tx.identical)
	oldMid := old[p1 : len(old)-s1]
	wantMid := want[p1 : len(want)-s1]

	pairs := make([][2]int, 0, len(old))
	for i := 0; i < p1; i++ {
		pairs = append(pairs, [2]int{i, i})
	}
	for i := 0; i < s1; i++ {
		pairs = append(pairs, [2]int{len(old) - 1 - i, len(want) - 1 - i})
	}

	if len(oldMid) == len(wantMid) {
		for i := range oldMid {
			pairs = append(pairs, [2]int{p1 + i, p1 + i})
		}
	} else {
		p2, s2 := commonEnds(oldMid, wantMid, tx.matches)
		for i := 0; i < p2; i++ {
			pairs = append(pairs, [2]int{p1 + i, p1 + i})
		}
		for i := 0; i < s2; i++ {
			pairs = append(pairs, [2]int{p1 + len(oldMid) - 1 - i, p1 + len(wantMid) - 1 - i})
		}
		for _, c := range oldMid[p2 : len(oldMid)-s2] {
			if err := tx.Remove(c); err != nil {
				return err
			}
		}
		for i, s := range wantMid[p2 : len(wantMid)-s2] {
			if err := tx.Insert(id, p1+p2+i, tx.Build(s)); err != nil {
				return err
			}
		}
	}

	for _, pair := range pairs {
		if err := tx.reconcile(old[pair[0]], want[pair[1]]); err != nil {
			return err
		}
	}
	return nil
}

// Reparse reconciles the whole document against a freshly parsed shape in one
// transaction.
func (d *Document) Reparse(spec Spec) error {
	return d.Apply(func(tx *Tx) error {
		return tx.Reconcile(d.root, spec)
	})
}
