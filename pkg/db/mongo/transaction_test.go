package mongo

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestIsNoReplicaSet(t *testing.T) {
	standalone := mongo.CommandError{
		Code:    codeIllegalOperation,
		Message: "Transaction numbers are only allowed on a replica set member or mongos",
	}

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"standalone server", standalone, true},
		{"wrapped", fmt.Errorf("append item: %w", standalone), true},
		{"duplicate key", mongo.CommandError{Code: 11000}, false},
		{"plain error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isNoReplicaSet(tt.err))
		})
	}
}
