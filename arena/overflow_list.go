package arena

import (
	"github.com/dolthub/swiss"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/pkg/errors"
)

// overflowNode is one out-of-band allocation. buf is the exact slice returned by the SystemAllocator,
// which is reserved bytes of payload followed by the debug margin. size is the requested size.
type overflowNode struct {
	buf      []byte
	addr     uintptr
	size     int
	reserved int

	next *overflowNode
	prev *overflowNode
}

// overflowList tracks every live overflow allocation so it can be released by address and so that
// Destroy can return all of them. The swiss index makes release O(1); the list is the source of truth
// for iteration.
type overflowList struct {
	count int
	bytes int
	head  *overflowNode
	tail  *overflowNode
	index *swiss.Map[uintptr, *overflowNode]
}

func (l *overflowList) Init() {
	l.index = swiss.NewMap[uintptr, *overflowNode](16)
}

func (l *overflowList) Validate() error {
	declaredCount := l.count
	actualCount := 0
	actualBytes := 0

	for node := l.head; node != nil; node = node.next {
		actualCount++
		actualBytes += node.size

		if node.reserved < node.size || len(node.buf) < node.reserved {
			return errors.Errorf("the overflow allocation at %#x has %d requested bytes, %d reserved and a %d byte buffer", node.addr, node.size, node.reserved, len(node.buf))
		}

		indexed, ok := l.index.Get(node.addr)
		if !ok || indexed != node {
			return errors.Errorf("the overflow allocation at %#x is in the list but not in the address index", node.addr)
		}

		if node.next != nil && node.next.prev != node {
			return errors.Errorf("the overflow allocation at %#x lists a next allocation, but the reverse reference is broken", node.addr)
		}
	}

	if declaredCount != actualCount {
		return errors.Errorf("the listed number of overflow allocations in the list (%d) does not match the actual number of allocations (%d)", declaredCount, actualCount)
	}

	if l.index.Count() != actualCount {
		return errors.Errorf("the overflow address index holds %d allocations but the list holds %d", l.index.Count(), actualCount)
	}

	if l.bytes != actualBytes {
		return errors.Errorf("the overflow list declares %d bytes but its allocations add up to %d", l.bytes, actualBytes)
	}

	return nil
}

func (l *overflowList) IsEmpty() bool {
	return l.count == 0
}

func (l *overflowList) Find(addr uintptr) (*overflowNode, bool) {
	return l.index.Get(addr)
}

func (l *overflowList) Register(node *overflowNode) {
	l.pushNode(node)
	l.index.Put(node.addr, node)
}

func (l *overflowList) Unregister(node *overflowNode) {
	l.removeNode(node)
	l.index.Delete(node.addr)
}

func (l *overflowList) BuildStatsString(s *jwriter.ArrayState) {
	for node := l.head; node != nil; node = node.next {
		o := s.Object()
		o.Name("Size").Int(node.size)
		o.End()
	}
}

func (l *overflowList) removeNode(node *overflowNode) {
	prev := node.prev
	next := node.next

	if prev != nil {
		prev.next = next
	} else {
		l.head = next
	}

	if next != nil {
		next.prev = prev
	} else {
		l.tail = prev
	}

	node.next = nil
	node.prev = nil

	l.count--
	l.bytes -= node.size
}

func (l *overflowList) pushNode(node *overflowNode) {
	if l.count == 0 {
		l.head = node
		l.tail = node
	} else {
		node.prev = l.tail
		l.tail.next = node
		l.tail = node
	}

	l.count++
	l.bytes += node.size
}
