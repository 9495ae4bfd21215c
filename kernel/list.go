package kernel

// listAppend adds id to the tail of l, unconditionally. Called directly
// only for the sleep list (listInsertOrdered also uses it for a tail
// insert), whose order spec.md defines by remaining-time aging, not by
// list position — the blocked list is always priority-ordered via
// listInsertOrdered instead, ties among equal-priority waiters broken by
// arrival order within that ordered insert, not by a separate unordered
// append.
func (k *Kernel) listAppend(l *taskList, id TaskID) {
	t := &k.tasks[id]
	t.prev = l.tail
	t.next = NoTask
	if l.tail != NoTask {
		k.tasks[l.tail].next = id
	} else {
		l.head = id
	}
	l.tail = id
}

// listInsertOrdered inserts id into l immediately before the first task
// whose priority is strictly greater (numerically; greater means lower
// importance) than id's, or at the tail if none exists. This gives
// priority-ordered placement with FIFO tie-breaking among equal
// priorities, matching the ready list's documented round-robin-among-
// equals behavior: a newly readied task joins the back of its own
// priority band rather than jumping ahead of tasks that have been
// waiting as long or longer at the same priority.
func (k *Kernel) listInsertOrdered(l *taskList, id TaskID) {
	pri := k.tasks[id].priority

	cursor := l.head
	for cursor != NoTask {
		if k.tasks[cursor].priority > pri {
			break
		}
		cursor = k.tasks[cursor].next
	}

	if cursor == NoTask {
		k.listAppend(l, id)
		return
	}

	t := &k.tasks[id]
	prev := k.tasks[cursor].prev
	t.prev = prev
	t.next = cursor
	k.tasks[cursor].prev = id
	if prev != NoTask {
		k.tasks[prev].next = id
	} else {
		l.head = id
	}
}

// listRemove unlinks id from l. id must currently be a member of l; the
// caller (always a state-transition helper that just changed
// taskRecord.state) is responsible for that invariant.
func (k *Kernel) listRemove(l *taskList, id TaskID) {
	t := &k.tasks[id]
	if t.prev != NoTask {
		k.tasks[t.prev].next = t.next
	} else {
		l.head = t.next
	}
	if t.next != NoTask {
		k.tasks[t.next].prev = t.prev
	} else {
		l.tail = t.prev
	}
	t.next, t.prev = NoTask, NoTask
}
