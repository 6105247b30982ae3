package services

import (
	"testing"

	authorizer "github.com/localnerve/authorizer-go"
	"github.com/stretchr/testify/assert"
)

func TestSessionApproverID(t *testing.T) {
	tests := []struct {
		name string
		user *authorizer.User
		id   uint64
		ok   bool
	}{
		{"nil user", nil, 0, false},
		{"app data number", &authorizer.User{ID: "uuid", AppData: map[string]interface{}{"approverId": float64(9)}}, 9, true},
		{"app data string", &authorizer.User{ID: "uuid", AppData: map[string]interface{}{"approverId": " 12 "}}, 12, true},
		{"app data fraction", &authorizer.User{ID: "7", AppData: map[string]interface{}{"approverId": 1.5}}, 0, false},
		{"numeric user id", &authorizer.User{ID: "42"}, 42, true},
		{"opaque user id", &authorizer.User{ID: "0c6f-41aa"}, 0, false},
		{"zero", &authorizer.User{ID: "0"}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := SessionApproverID(tt.user)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.id, id)
		})
	}
}
