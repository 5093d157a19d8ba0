package database

import "sync"

// vehicleLocks hands out one mutex per vehicle id so that the
// check-and-insert sequence in CreateBookingWithLock serializes only
// writers of the same vehicle. There is deliberately no global lock;
// bookings on different vehicles never contend.
type vehicleLocks struct {
	locks sync.Map // map[string]*sync.Mutex
}

func newVehicleLocks() *vehicleLocks {
	return &vehicleLocks{}
}

func (l *vehicleLocks) get(vehicleID string) *sync.Mutex {
	if v, ok := l.locks.Load(vehicleID); ok {
		return v.(*sync.Mutex)
	}
	mu := &sync.Mutex{}
	actual, loaded := l.locks.LoadOrStore(vehicleID, mu)
	if loaded {
		return actual.(*sync.Mutex)
	}
	return mu
}

// Lock acquires the per-vehicle mutex and returns its unlock func.
func (l *vehicleLocks) Lock(vehicleID string) func() {
	mu := l.get(vehicleID)
	mu.Lock()
	return mu.Unlock
}
