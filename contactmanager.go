package physics

// contactManager owns the broad-phase and every contact. Contacts live in an
// arena indexed by Contact.index; bodies refer to them by index.
type contactManager struct {
	broadPhase *BroadPhase

	contacts []*Contact
	free     []int
	count    int

	// pairs finds the contact for a pair of fixture children.
	pairs *HashSet[*Contact]

	filter   ContactFilter
	listener ContactListener

	// Touch transitions since the counters were last reset.
	begins, ends int
}

func contactSetEql(a, b *Contact) bool {
	if a.fixtureA == b.fixtureA && a.childA == b.childA && a.fixtureB == b.fixtureB && a.childB == b.childB {
		return true
	}
	return a.fixtureA == b.fixtureB && a.childA == b.childB && a.fixtureB == b.fixtureA && a.childB == b.childA
}

func contactHash(fA *Fixture, childA int, fB *Fixture, childB int) HashValue {
	return hashPair(fA.id<<10^childA, fB.id<<10^childB)
}

func newContactManager(settings *Settings) *contactManager {
	return &contactManager{
		broadPhase: NewBroadPhase(settings.AABBExtension, settings.AABBMultiplier),
		pairs:      NewHashSet(contactSetEql),
		filter:     DefaultContactFilter{},
	}
}

// each visits live contacts in arena order.
func (cm *contactManager) each(f func(c *Contact)) {
	for _, c := range cm.contacts {
		if c != nil {
			f(c)
		}
	}
}

// addPair is the broad-phase callback for a new overlapping pair of proxies.
func (cm *contactManager) addPair(a, b interface{}) {
	proxyA := a.(*fixtureProxy)
	proxyB := b.(*fixtureProxy)

	fA, childA := proxyA.fixture, proxyA.child
	fB, childB := proxyB.fixture, proxyB.child
	bodyA := fA.body
	bodyB := fB.body

	if bodyA == bodyB {
		return
	}

	key := &Contact{fixtureA: fA, childA: childA, fixtureB: fB, childB: childB}
	hash := contactHash(fA, childA, fB, childB)
	if _, ok := cm.pairs.Find(hash, key); ok {
		return
	}

	if !bodyB.shouldCollide(bodyA) {
		return
	}
	if cm.filter != nil && !cm.filter.ShouldCollide(fA, fB) {
		return
	}

	// Order the fixtures so the collide table has an entry for (A, B).
	typeA, typeB := fA.shape.Type(), fB.shape.Type()
	if collideRegistry[typeA][typeB] == nil {
		if collideRegistry[typeB][typeA] == nil {
			return
		}
		fA, fB = fB, fA
		childA, childB = childB, childA
		bodyA, bodyB = bodyB, bodyA
	}

	c := newContact(fA, childA, fB, childB)
	if n := len(cm.free); n > 0 {
		c.index = cm.free[n-1]
		cm.free = cm.free[:n-1]
		cm.contacts[c.index] = c
	} else {
		c.index = len(cm.contacts)
		cm.contacts = append(cm.contacts, c)
	}
	cm.count++
	cm.pairs.Insert(hash, c)

	bodyA.contacts = append(bodyA.contacts, c.index)
	bodyB.contacts = append(bodyB.contacts, c.index)
}

// FindNewContacts creates contacts for proxies that moved since the last call.
func (cm *contactManager) FindNewContacts() {
	cm.broadPhase.UpdatePairs(cm.addPair)
}

// Destroy removes a contact, reporting EndContact if it was touching.
func (cm *contactManager) Destroy(c *Contact) {
	fA := c.fixtureA
	fB := c.fixtureB
	bodyA := fA.body
	bodyB := fB.body

	if c.IsTouching() {
		cm.ends++
		if cm.listener != nil {
			cm.listener.EndContact(c)
		}
	}

	cm.pairs.Remove(contactHash(fA, c.childA, fB, c.childB), c)
	bodyA.removeContact(c.index)
	bodyB.removeContact(c.index)

	cm.contacts[c.index] = nil
	cm.free = append(cm.free, c.index)
	cm.count--
}

// Collide updates every contact whose bodies are awake and destroys the
// ones whose fat boxes no longer overlap or that are now filtered out.
func (cm *contactManager) Collide() {
	for i := 0; i < len(cm.contacts); i++ {
		c := cm.contacts[i]
		if c == nil {
			continue
		}
		fA := c.fixtureA
		fB := c.fixtureB
		bodyA := fA.body
		bodyB := fB.body

		if c.flags&contactFilterFlag != 0 {
			if !bodyB.shouldCollide(bodyA) || (cm.filter != nil && !cm.filter.ShouldCollide(fA, fB)) {
				cm.Destroy(c)
				continue
			}
			c.flags &^= contactFilterFlag
		}

		activeA := bodyA.IsAwake() && bodyA.typ != StaticBody
		activeB := bodyB.IsAwake() && bodyB.typ != StaticBody
		// At least one body must be awake and it must be dynamic or kinematic.
		if !activeA && !activeB {
			continue
		}

		if !cm.broadPhase.TestOverlap(fA.proxies[c.childA].proxyID, fB.proxies[c.childB].proxyID) {
			cm.Destroy(c)
			continue
		}

		began, ended := c.update(cm.listener)
		if began {
			cm.begins++
		}
		if ended {
			cm.ends++
		}
	}
}
