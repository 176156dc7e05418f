package audiocore

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/audiophile-labs/mastering-engine/internal/errors"
	"github.com/audiophile-labs/mastering-engine/internal/logger"
)

// ResourceTracker helps prevent resource leaks by tracking allocations
type ResourceTracker struct {
	resources map[string]*TrackedResource
	mu        sync.RWMutex
	logger    *slog.Logger
	
	// Lifecycle management
	ctx          context.Context
	cancel       context.CancelFunc
	cleanupQueue chan cleanupTask
	wg           sync.WaitGroup
	
	// Statistics
	totalAllocated atomic.Int64
	totalReleased  atomic.Int64
	activeCount    atomic.Int32
}

// cleanupTask represents a scheduled resource cleanup
type cleanupTask struct {
	resourceID string
	cleanupAt  time.Time
}

// TrackedResource represents a tracked resource
type TrackedResource struct {
	ID           string
	Type         string
	AllocatedAt  time.Time
	Stack        string
	Finalizer    func() // Cleanup function
	Released     atomic.Bool
	ReleasedAt   time.Time
}

// NewResourceTracker creates a new resource tracker
func NewResourceTracker() *ResourceTracker {
	logger := logger.ForModule("audiocore")
	if logger == nil {
		logger = slog.Default()
	}
	
	ctx, cancel := context.WithCancel(context.Background())
	
	tracker := &ResourceTracker{
		resources:    make(map[string]*TrackedResource),
		logger:       logger.With("component", "resource_tracker"),
		ctx:          ctx,
		cancel:       cancel,
		cleanupQueue: make(chan cleanupTask, 100),
	}
	
	// Start leak detector
	tracker.wg.Add(1)
	go tracker.leakDetector()
	
	// Start cleanup worker
	tracker.wg.Add(1)
	go tracker.cleanupWorker()
	
	return tracker
}

// Track registers a resource for tracking
func (rt *ResourceTracker) Track(id, resourceType string, finalizer func()) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	
	// Capture stack trace for debugging
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)
	stack := string(buf[:n])
	
	resource := &TrackedResource{
		ID:          id,
		Type:        resourceType,
		AllocatedAt: time.Now(),
		Stack:       stack,
		Finalizer:   finalizer,
	}
	
	rt.resources[id] = resource
	rt.totalAllocated.Add(1)
	rt.activeCount.Add(1)
	
	// Set finalizer to detect leaks
	runtime.SetFinalizer(resource, func(r *TrackedResource) {
		if !r.Released.Load() {
			rt.logger.Error("resource leaked - not properly closed",
				"resource_id", r.ID,
				"resource_type", r.Type,
				"allocated_at", r.AllocatedAt,
				"stack", r.Stack)
			
			// Call the cleanup function
			if r.Finalizer != nil {
				r.Finalizer()
			}
		}
	})
}

// Release marks a resource as released
func (rt *ResourceTracker) Release(id string) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	
	resource, exists := rt.resources[id]
	if !exists {
		return errors.New(nil).
			Component(ComponentAudioCore).
			Category(errors.CategoryNotFound).
			Context("resource_id", id).
			Context("error", "resource not found").
			Build()
	}
	
	if resource.Released.Load() {
		return errors.New(nil).
			Component(ComponentAudioCore).
			Category(errors.CategoryState).
			Context("resource_id", id).
			Context("error", "resource already released").
			Build()
	}
	
	resource.Released.Store(true)
	resource.ReleasedAt = time.Now()
	rt.totalReleased.Add(1)
	rt.activeCount.Add(-1)
	
	// Remove finalizer
	runtime.SetFinalizer(resource, nil)
	
	// Call cleanup function
	if resource.Finalizer != nil {
		resource.Finalizer()
	}
	
	// Schedule cleanup after a delay (for debugging)
	select {
	case rt.cleanupQueue <- cleanupTask{
		resourceID: id,
		cleanupAt:  time.Now().Add(5 * time.Minute),
	}:
	case <-rt.ctx.Done():
		// Tracker is shutting down
	}
	
	return nil
}

// leakDetector periodically checks for potential leaks
func (rt *ResourceTracker) leakDetector() {
	defer rt.wg.Done()
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	
	for {
		select {
		case <-ticker.C:
			rt.checkForLeaks()
		case <-rt.ctx.Done():
			return
		}
	}
}

// checkForLeaks checks for resources that haven't been released
func (rt *ResourceTracker) checkForLeaks() {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	
	now := time.Now()
	threshold := 5 * time.Minute
	
	for id, resource := range rt.resources {
		if !resource.Released.Load() && now.Sub(resource.AllocatedAt) > threshold {
			rt.logger.Warn("potential resource leak detected",
				"resource_id", id,
				"resource_type", resource.Type,
				"age", now.Sub(resource.AllocatedAt),
				"allocated_at", resource.AllocatedAt)
		}
	}
}

// cleanupWorker processes scheduled resource cleanups
func (rt *ResourceTracker) cleanupWorker() {
	defer rt.wg.Done()
	
	// Use a map to track pending cleanups by time
	pending := make(map[string]time.Time)
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	
	for {
		select {
		case task := <-rt.cleanupQueue:
			// Add to pending cleanups
			pending[task.resourceID] = task.cleanupAt
			
		case <-ticker.C:
			// Process due cleanups
			now := time.Now()
			for id, cleanupTime := range pending {
				if now.After(cleanupTime) {
					rt.mu.Lock()
					delete(rt.resources, id)
					rt.mu.Unlock()
					delete(pending, id)
				}
			}
			
		case <-rt.ctx.Done():
			return
		}
	}
}

// Close stops the resource tracker and cleans up
func (rt *ResourceTracker) Close() error {
	rt.cancel()
	rt.wg.Wait()
	return nil
}

// Stats returns resource tracking statistics
func (rt *ResourceTracker) Stats() map[string]any {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	
	activeByType := make(map[string]int)
	for _, resource := range rt.resources {
		if !resource.Released.Load() {
			activeByType[resource.Type]++
		}
	}
	
	return map[string]any{
		"total_allocated": rt.totalAllocated.Load(),
		"total_released":  rt.totalReleased.Load(),
		"active_count":    rt.activeCount.Load(),
		"active_by_type":  activeByType,
		"leak_rate":       float64(rt.activeCount.Load()) / float64(rt.totalAllocated.Load()),
	}
}
