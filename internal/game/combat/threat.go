package combat

// Ledger is the threat table of one encounter. It reads and writes the
// encounter's aggro entries in place and keeps every enemy's cached Target
// current after each change.
type Ledger struct {
	enc *Encounter
}

// NewLedger wraps enc's aggro entries.
func NewLedger(enc *Encounter) Ledger {
	return Ledger{enc: enc}
}

// Add accumulates amount threat from h on enemyID and recomputes that enemy's target.
// A zero amount still creates the entry.
//
// Postcondition: the enemy's Target equals Target(enemyID).
func (l Ledger) Add(enemyID int64, h Holder, amount int) {
	if e := l.entry(enemyID, h); e != nil {
		e.Value += amount
	} else {
		l.enc.NextSeq++
		l.enc.Aggro = append(l.enc.Aggro, AggroEntry{EnemyID: enemyID, Holder: h, Value: amount, Seq: l.enc.NextSeq})
	}
	l.Refresh(enemyID)
}

// AddToLiving adds amount threat from h on every living enemy.
func (l Ledger) AddToLiving(h Holder, amount int) {
	for _, en := range l.enc.LivingEnemies() {
		l.Add(en.ID, h, amount)
	}
}

// Value returns the threat h holds on enemyID.
func (l Ledger) Value(enemyID int64, h Holder) int {
	if e := l.entry(enemyID, h); e != nil {
		return e.Value
	}
	return 0
}

// Target returns the holder with the most threat on enemyID among holders
// still able to fight. Ties go to the entry created first.
func (l Ledger) Target(enemyID int64) (Holder, bool) {
	var best *AggroEntry
	for i := range l.enc.Aggro {
		e := &l.enc.Aggro[i]
		if e.EnemyID != enemyID || !l.alive(e.Holder) {
			continue
		}
		if best == nil || e.Value > best.Value || (e.Value == best.Value && e.Seq < best.Seq) {
			best = e
		}
	}
	if best == nil {
		return Holder{}, false
	}
	return best.Holder, true
}

// Refresh recomputes the cached target of enemyID.
func (l Ledger) Refresh(enemyID int64) {
	en := l.enc.Enemy(enemyID)
	if en == nil {
		return
	}
	h, _ := l.Target(enemyID)
	en.Target = h
}

// RefreshAll recomputes every enemy's cached target.
func (l Ledger) RefreshAll() {
	for i := range l.enc.Enemies {
		l.Refresh(l.enc.Enemies[i].ID)
	}
}

// RemoveHolder drops every entry held by h.
func (l Ledger) RemoveHolder(h Holder) {
	kept := l.enc.Aggro[:0]
	for _, e := range l.enc.Aggro {
		if e.Holder != h {
			kept = append(kept, e)
		}
	}
	l.enc.Aggro = kept
	l.RefreshAll()
}

// RemoveEnemy drops every entry on enemyID and clears its target.
func (l Ledger) RemoveEnemy(enemyID int64) {
	kept := l.enc.Aggro[:0]
	for _, e := range l.enc.Aggro {
		if e.EnemyID != enemyID {
			kept = append(kept, e)
		}
	}
	l.enc.Aggro = kept
	if en := l.enc.Enemy(enemyID); en != nil {
		en.Target = Holder{}
	}
}

func (l Ledger) entry(enemyID int64, h Holder) *AggroEntry {
	for i := range l.enc.Aggro {
		if l.enc.Aggro[i].EnemyID == enemyID && l.enc.Aggro[i].Holder == h {
			return &l.enc.Aggro[i]
		}
	}
	return nil
}

func (l Ledger) alive(h Holder) bool {
	switch h.Kind {
	case HolderCharacter:
		return l.enc.HasActive(h.ID)
	case HolderPet:
		p := l.enc.Pet(h.ID)
		return p != nil && !p.Dead
	}
	return false
}
