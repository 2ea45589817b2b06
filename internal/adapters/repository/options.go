package repository

// JobStoreOption applies a configuration option to the MemoryJobStore.
type JobStoreOption func(*MemoryJobStore)

// WithRetention caps how many jobs are kept. Finished jobs are evicted
// oldest first once the cap is exceeded.
func WithRetention(n int) JobStoreOption {
	return func(s *MemoryJobStore) {
		if n > 0 {
			s.retention = n
		}
	}
}
