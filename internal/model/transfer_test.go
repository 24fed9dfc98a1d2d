package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransferRequestStatus(t *testing.T) {
	cases := []struct {
		status   TransferStatus
		pending  bool
		terminal bool
	}{
		{TransferStatusPending, true, false},
		{TransferStatusAccepted, false, true},
		{TransferStatusRejected, false, true},
	}

	for _, c := range cases {
		tr := &TransferRequest{Status: c.status}
		assert.Equal(t, c.pending, tr.IsPending(), c.status)
		assert.Equal(t, c.terminal, tr.IsTerminal(), c.status)
	}
}
