package queue

import (
	"bytes"
	"container/list"
	"fmt"
	"sync"
)

// List is a bounded, concurrency-safe list. Pushing onto a full list drops
// the oldest element.
type List[T any] struct {
	inner *list.List
	max   int
	lock  sync.Mutex
}

func NewList[T any](m int) *List[T] {
	l := new(List[T])
	l.inner = list.New()
	l.max = m
	return l
}

func (l *List[T]) Push(data T) {
	l.lock.Lock()
	l.push(data)
	l.lock.Unlock()
}

func (l *List[T]) push(data T) {
	if l.max > 0 && l.inner.Len() >= l.max {
		l.inner.Remove(l.inner.Front())
	}
	l.inner.PushBack(data)
}

// PushIfAbsent pushes data unless an element matching exists, and reports
// whether it was pushed.
func (l *List[T]) PushIfAbsent(data T, match func(v T) bool) bool {
	l.lock.Lock()
	defer l.lock.Unlock()
	if l.search(match) != nil {
		return false
	}
	l.push(data)
	return true
}

// SearchFunc returns the most recently pushed element matching ok.
func (l *List[T]) SearchFunc(ok func(v T) bool) *T {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.search(ok)
}

func (l *List[T]) search(ok func(v T) bool) *T {
	for e := l.inner.Back(); e != nil; e = e.Prev() {
		v := e.Value.(T)
		if ok(v) {
			return &v
		}
	}
	return nil
}

func (l *List[T]) Len() int {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.inner.Len()
}

func (l *List[T]) String() string {
	l.lock.Lock()
	defer l.lock.Unlock()
	var result bytes.Buffer
	result.WriteByte('[')
	for e := l.inner.Front(); e != nil; {
		result.WriteString(fmt.Sprintf("%v", e.Value))
		e = e.Next()
		if e != nil {
			result.WriteByte(' ')
		}
	}
	result.WriteByte(']')
	return result.String()
}
