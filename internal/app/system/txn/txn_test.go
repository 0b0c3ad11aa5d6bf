package txn

import (
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/mongo"
)

func TestIsNotSupported(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error", nil, false},
		{"generic error", errors.New("some random error"), false},
		{
			"command error code 20",
			mongo.CommandError{Code: 20, Message: "Transaction numbers are only allowed on a replica set member"},
			true,
		},
		{
			"command error code 51",
			mongo.CommandError{Code: 51, Message: "Illegal operation"},
			true,
		},
		{
			"command error code 263",
			mongo.CommandError{Code: 263, Message: "Cannot run in a multi-document transaction"},
			true,
		},
		{
			"other command error code",
			mongo.CommandError{Code: 100, Message: "Some other error"},
			false,
		},
		{
			"transaction on non replica set",
			errors.New("transaction failed because this is not a replica set member"),
			true,
		},
		{
			"sessions unsupported",
			errors.New("session operations are not supported on this server"),
			true,
		},
		{
			"transaction alone is not enough",
			errors.New("transaction failed"),
			false,
		},
		{
			"transaction session state",
			errors.New("cannot start transaction in current session state"),
			true,
		},
		{
			"illegal operation in transaction",
			errors.New("illegal operation during transaction"),
			true,
		},
		{
			"case insensitive",
			errors.New("TRANSACTION FAILED on REPLICA SET"),
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNotSupported(tt.err); got != tt.want {
				t.Errorf("IsNotSupported(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsConflict(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error", nil, false},
		{"generic error", errors.New("boom"), false},
		{
			"transient label",
			mongo.CommandError{Code: 251, Labels: []string{"TransientTransactionError"}},
			true,
		},
		{
			"unknown commit result label",
			mongo.CommandError{Code: 0, Labels: []string{"UnknownTransactionCommitResult"}},
			true,
		},
		{
			"write conflict code",
			mongo.CommandError{Code: 112, Message: "WriteConflict"},
			true,
		},
		{
			"write conflict text",
			errors.New("write conflict detected, please retry"),
			true,
		},
		{
			"business error is not a conflict",
			errors.New("group not found"),
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsConflict(tt.err); got != tt.want {
				t.Errorf("IsConflict(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
