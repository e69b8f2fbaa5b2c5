package core

// ThreadStats represents runtime observability state for one WorkThread.
type ThreadStats struct {
	Name        string
	QueueDepth  int
	Outstanding int
	Capacity    int
	Stopped     bool
}

// PoolStats represents runtime observability state for a WorkThreadPool.
type PoolStats struct {
	Size        int
	QueueDepth  int // summed across threads
	Outstanding int // summed across threads
	Stopped     bool
	Threads     []ThreadStats
}
