package sse

import (
	"context"
	"sync"

	"travel-booking/internal/models"
)

// AvailabilityEmitter fans capacity snapshots out to clients watching a tour.
type AvailabilityEmitter struct {
	clients map[int64][]chan models.CapacitySnapshot
	mu      sync.RWMutex
}

func NewAvailabilityEmitter() *AvailabilityEmitter {
	return &AvailabilityEmitter{
		clients: make(map[int64][]chan models.CapacitySnapshot),
	}
}

// Subscribe registers a client for one tour. The channel is closed and
// removed once ctx is done.
func (e *AvailabilityEmitter) Subscribe(ctx context.Context, tourID int64) <-chan models.CapacitySnapshot {
	clientChan := make(chan models.CapacitySnapshot, 10)

	e.mu.Lock()
	e.clients[tourID] = append(e.clients[tourID], clientChan)
	e.mu.Unlock()

	go func() {
		<-ctx.Done()
		e.remove(tourID, clientChan)
	}()

	return clientChan
}

// Broadcast never blocks: a client whose buffer is full misses this snapshot.
func (e *AvailabilityEmitter) Broadcast(snapshot models.CapacitySnapshot) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, clientChan := range e.clients[snapshot.TourID] {
		select {
		case clientChan <- snapshot:
		default:
		}
	}
}

func (e *AvailabilityEmitter) ClientCount(tourID int64) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.clients[tourID])
}

func (e *AvailabilityEmitter) remove(tourID int64, clientChan chan models.CapacitySnapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()

	clients := e.clients[tourID]
	for i, ch := range clients {
		if ch == clientChan {
			e.clients[tourID] = append(clients[:i], clients[i+1:]...)
			close(clientChan)
			break
		}
	}
	if len(e.clients[tourID]) == 0 {
		delete(e.clients, tourID)
	}
}
