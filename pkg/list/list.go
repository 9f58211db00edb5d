// Package list implements a generic doubly-linked list, used as the free
// list of reclaimed page ids backing disk.FileManager's page allocator.
package list

// List is a doubly-linked list of values of type T.
type List[T any] struct {
	head *Link[T]
	tail *Link[T]
}

// NewList constructs an empty list.
func NewList[T any]() *List[T] {
	return &List[T]{}
}

// PeekHead returns the list's head link, or nil if the list is empty.
func (list *List[T]) PeekHead() *Link[T] {
	return list.head
}

// PushTail appends value to the end of the list and returns its link.
func (list *List[T]) PushTail(value T) *Link[T] {
	newlink := &Link[T]{list: list, prev: list.tail, value: value}
	if list.tail != nil {
		list.tail.next = newlink
	}
	list.tail = newlink
	if list.head == nil {
		list.head = newlink
	}
	return newlink
}

// Link is one node of a List.
type Link[T any] struct {
	list  *List[T]
	prev  *Link[T]
	next  *Link[T]
	value T
}

// Value returns the link's value.
func (link *Link[T]) Value() T {
	return link.value
}

// PopSelf removes the link that calls PopSelf() from its list.
func (link *Link[T]) PopSelf() {
	if link.prev == nil && link.next == nil {
		link.list.head = nil
		link.list.tail = nil
	} else if link.prev == nil {
		link.next.prev = nil
		link.list.head = link.next
	} else if link.next == nil {
		link.prev.next = nil
		link.list.tail = link.prev
	} else {
		link.prev.next = link.next
		link.next.prev = link.prev
	}
	link.list = nil
	link.prev = nil
	link.next = nil
}
