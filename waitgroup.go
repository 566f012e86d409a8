package fetchwork

// waitGroup is the cooperative fan-in join for a batch: every unit's
// task calls done when it finishes, and the orchestrating task blocks
// once in wait until the whole batch is accounted for. Adding to the
// counter after a waiter has been released panics, as does a negative
// counter.
type waitGroup struct {
	noCopy  noCopy
	count   int32
	waiters uint32
	sema    sema
}

// add adds delta to the counter, waking all waiters when it reaches
// zero.
func (wg *waitGroup) add(delta int) {
	wg.count += int32(delta)

	if wg.count < 0 {
		panic("fetchwork: negative waitGroup counter")
	}

	if wg.waiters != 0 && delta > 0 && wg.count == int32(delta) {
		panic("fetchwork: waitGroup misuse: add called concurrently with wait")
	}

	if wg.count > 0 || wg.waiters == 0 {
		return
	}

	for ; wg.waiters != 0; wg.waiters-- {
		wg.sema.release()
	}
}

// done decrements the counter by one.
func (wg *waitGroup) done() {
	wg.add(-1)
}

// wait parks t until the counter is zero. If it already is, wait
// returns immediately.
func (wg *waitGroup) wait(t *task) {
	if wg.count == 0 {
		return
	}

	wg.waiters++
	wg.sema.acquire(t)
}
