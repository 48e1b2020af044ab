package game

import "sync"

// roomLocks 按房间粒度的互斥锁
// 不同房间完全独立，同一房间的推进串行化
type roomLocks struct {
	locks sync.Map // roomID -> *sync.Mutex
}

func newRoomLocks() *roomLocks {
	return &roomLocks{}
}

// Lock 锁定房间并返回解锁函数
func (l *roomLocks) Lock(roomID uint) func() {
	actual, _ := l.locks.LoadOrStore(roomID, &sync.Mutex{})
	mu := actual.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
