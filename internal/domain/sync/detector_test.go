package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectConflict(t *testing.T) {
	tests := []struct {
		name         string
		existing     Record
		incoming     Record
		wantConflict bool
		wantSoft     bool
	}{
		{
			name:         "existing without timestamp is overwritten silently",
			existing:     Record{"id": "c1", "name": "A"},
			incoming:     Record{"id": "c1", "name": "B", "updated_at": int64(200)},
			wantConflict: false,
			wantSoft:     false,
		},
		{
			name:         "incoming without timestamp is not a conflict",
			existing:     Record{"id": "c1", "name": "A", "updated_at": int64(100)},
			incoming:     Record{"id": "c1", "name": "B"},
			wantConflict: false,
			wantSoft:     false,
		},
		{
			name:         "same timestamp means same version",
			existing:     Record{"id": "c1", "name": "A", "updated_at": int64(100)},
			incoming:     Record{"id": "c1", "name": "A", "updated_at": int64(100)},
			wantConflict: false,
			wantSoft:     false,
		},
		{
			name:         "same timestamp with different content is still same version",
			existing:     Record{"id": "c1", "name": "A", "updated_at": int64(100)},
			incoming:     Record{"id": "c1", "name": "B", "updated_at": int64(100)},
			wantConflict: false,
			wantSoft:     false,
		},
		{
			name:         "identical content with different timestamps is a soft conflict",
			existing:     Record{"id": "c1", "name": "A", "updated_at": int64(100)},
			incoming:     Record{"id": "c1", "name": "A", "updated_at": int64(200)},
			wantConflict: false,
			wantSoft:     true,
		},
		{
			name:         "different content and timestamps is a real conflict",
			existing:     Record{"id": "c1", "name": "A", "updated_at": int64(100)},
			incoming:     Record{"id": "c1", "name": "B", "updated_at": int64(200)},
			wantConflict: true,
			wantSoft:     false,
		},
		{
			name:         "older incoming with different content is also a conflict",
			existing:     Record{"id": "c1", "name": "A", "updated_at": int64(200)},
			incoming:     Record{"id": "c1", "name": "B", "updated_at": int64(100)},
			wantConflict: true,
			wantSoft:     false,
		},
		{
			name:         "extra field on one side is a content difference",
			existing:     Record{"id": "c1", "name": "A", "updated_at": int64(100)},
			incoming:     Record{"id": "c1", "name": "A", "phone": "123", "updated_at": int64(200)},
			wantConflict: true,
			wantSoft:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conflict, soft := DetectConflict(tt.existing, tt.incoming)
			assert.Equal(t, tt.wantConflict, conflict)
			assert.Equal(t, tt.wantSoft, soft)
		})
	}
}

func TestContentEqual_IgnoresServiceFields(t *testing.T) {
	a := Record{"id": "c1", "name": "A", "created_at": int64(1), "updated_at": int64(100)}
	b := Record{"id": "c2", "name": "A", "created_at": int64(2), "updated_at": int64(200)}

	assert.True(t, contentEqual(a, b))
}

func TestRecord_TimestampDecoding(t *testing.T) {
	// После encoding/json числа приходят как float64
	rec := Record{"id": "c1", "updated_at": float64(1700000000123)}
	ts, ok := rec.UpdatedAt()
	assert.True(t, ok)
	assert.Equal(t, int64(1700000000123), ts)

	rec = Record{"id": "c1", "updated_at": "1700000000123"}
	ts, ok = rec.UpdatedAt()
	assert.True(t, ok)
	assert.Equal(t, int64(1700000000123), ts)

	rec = Record{"id": "c1", "updated_at": "not-a-number"}
	_, ok = rec.UpdatedAt()
	assert.False(t, ok)

	rec = Record{"id": "c1"}
	_, ok = rec.UpdatedAt()
	assert.False(t, ok)
}
