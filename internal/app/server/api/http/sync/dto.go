package sync

import (
	"bizsync/internal/domain/sync"
)

// Request/Response структуры для Pull
type pullInput struct {
	Body sync.PullRequest
}

type pullOutput struct {
	Body sync.PullResponse
}

// Request/Response для Push
type pushInput struct {
	Body sync.PushRequest
}

type pushOutput struct {
	Body sync.PushResponse
}

// Request/Response для FullSync
type fullSyncInput struct {
	Body sync.FullSyncRequest
}

type fullSyncOutput struct {
	Body sync.FullSyncResponse
}

// Request/Response для GetConflicts
type getConflictsInput struct {
}

type getConflictsOutput struct {
	Body sync.GetConflictsResponse
}

// Request/Response для ResolveConflict
type resolveConflictInput struct {
	ID   int64 `path:"id"`
	Body sync.ResolveConflictRequest
}

type resolveConflictOutput struct {
	Body sync.ResolveConflictResponse
}

// Request/Response для GetHistory
type getHistoryInput struct {
	DeviceID string `query:"device_id"`
	Limit    int    `query:"limit" minimum:"0" maximum:"500"`
}

type getHistoryOutput struct {
	Body sync.GetHistoryResponse
}

// Request/Response для SetStrategy
type setStrategyInput struct {
	Body sync.SetStrategyRequest
}

type setStrategyOutput struct {
	Body sync.SetStrategyResponse
}
