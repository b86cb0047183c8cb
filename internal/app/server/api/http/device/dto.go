package device

import (
	"bizsync/internal/domain/device"
)

// Request/Response структуры для Register
type registerInput struct {
	Body device.RegisterRequest
}

type registerOutput struct {
	Body device.RegisterResponse
}

// Request/Response для List
type listInput struct {
	OwnerUserID string `query:"owner_user_id"`
}

type listOutput struct {
	Body device.ListResponse
}

// Request/Response для Remove
type removeInput struct {
	ID string `path:"id"`
}

type removeOutput struct {
	Body device.RemoveResponse
}

// Request/Response для Status
type statusInput struct {
	ID string `path:"id"`
}

type statusOutput struct {
	Body device.StatusResponse
}
