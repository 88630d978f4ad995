package pages

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusTransitions(t *testing.T) {
	checks := map[string]func(PageStatus) (bool, error){
		"edit":      canEdit,
		"publish":   canPublish,
		"schedule":  canSchedule,
		"unpublish": canUnpublish,
		"delete":    canDelete,
	}

	tests := []struct {
		op      string
		allowed []PageStatus
		denied  []PageStatus
	}{
		{op: "edit", allowed: []PageStatus{PageStatusDraft, PageStatusScheduled, PageStatusLive}, denied: []PageStatus{PageStatusDeleted}},
		{op: "publish", allowed: []PageStatus{PageStatusDraft, PageStatusScheduled}, denied: []PageStatus{PageStatusLive, PageStatusDeleted}},
		{op: "schedule", allowed: []PageStatus{PageStatusDraft, PageStatusScheduled}, denied: []PageStatus{PageStatusLive, PageStatusDeleted}},
		{op: "unpublish", allowed: []PageStatus{PageStatusLive, PageStatusScheduled}, denied: []PageStatus{PageStatusDraft, PageStatusDeleted}},
		{op: "delete", allowed: []PageStatus{PageStatusDraft, PageStatusScheduled, PageStatusLive}, denied: []PageStatus{PageStatusDeleted}},
	}

	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			check := checks[tt.op]
			for _, status := range tt.allowed {
				ok, err := check(status)
				assert.True(t, ok, "status %s", status)
				assert.NoError(t, err)
			}
			for _, status := range tt.denied {
				ok, err := check(status)
				assert.False(t, ok, "status %s", status)
				assert.ErrorIs(t, err, ErrInvalidTransition)
			}
			ok, err := check("archived")
			assert.False(t, ok)
			assert.ErrorIs(t, err, ErrInvalidPageStatus)
		})
	}
}
