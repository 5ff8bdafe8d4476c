package arena

// usedNode is the used-list entry stored in every page slot. Owner is set on every page of a live
// slab so an address can be mapped to its slab by page number. Next and Prev are only meaningful in
// the slab's start page.
type usedNode struct {
	Owner pageRef
	Next  pageRef
	Prev  pageRef
}

func (p *Pool) used(ref pageRef) *usedNode {
	return &p.slots[ref.page()].Used
}

// owner returns the slab containing page, if any
func (p *Pool) owner(page int) pageRef {
	return p.slots[page].Used.Owner
}

func (p *Pool) pushUsed(ref pageRef) {
	node := p.used(ref)
	node.Prev = noPage
	node.Next = p.header.UsedHead
	if node.Next != noPage {
		p.used(node.Next).Prev = ref
	}

	p.header.UsedHead = ref
	p.header.UsedCount++
}

func (p *Pool) unlinkUsed(ref pageRef) {
	node := p.used(ref)

	if node.Prev != noPage {
		p.used(node.Prev).Next = node.Next
	} else {
		p.header.UsedHead = node.Next
	}

	if node.Next != noPage {
		p.used(node.Next).Prev = node.Prev
	}

	node.Next = noPage
	node.Prev = noPage
	p.header.UsedCount--
}

// visitSlabs calls visit for every live slab, most recently created first
func (p *Pool) visitSlabs(visit func(ref pageRef, s *slabHeader) error) error {
	for ref := p.header.UsedHead; ref != noPage; ref = p.used(ref).Next {
		err := visit(ref, p.slab(ref))
		if err != nil {
			return err
		}
	}

	return nil
}
