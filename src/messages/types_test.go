package messages

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notify-shell/src/toast"
)

func TestParseUpdate(t *testing.T) {
	tests := []struct {
		line    string
		want    Update
		wantErr bool
	}{
		{"40 working", Update{Kind: UpdateProgress, Percent: 40, Message: "working"}, false},
		{"75%", Update{Kind: UpdateProgress, Percent: 75}, false},
		{"  10   copying files  ", Update{Kind: UpdateProgress, Percent: 10, Message: "copying files"}, false},
		{"done", Update{Kind: UpdateComplete}, false},
		{"DONE all good", Update{Kind: UpdateComplete, Message: "all good"}, false},
		{"fail disk full", Update{Kind: UpdateFail, Message: "disk full"}, false},
		{"fail", Update{Kind: UpdateFail, Message: "failed"}, false},
		{"cancel", Update{Kind: UpdateCancel}, false},
		{"", Update{}, true},
		{"soon", Update{}, true},
	}
	for _, tt := range tests {
		got, err := ParseUpdate(tt.line)
		if tt.wantErr {
			assert.Error(t, err, tt.line)
			continue
		}
		require.NoError(t, err, tt.line)
		assert.Equal(t, tt.want, got, tt.line)
	}
}

func TestRequestValidate(t *testing.T) {
	assert.NoError(t, Request{Op: OpToast, Toast: &toast.Request{Title: "x"}}.Validate())
	assert.NoError(t, Request{Op: OpList}.Validate())
	assert.NoError(t, Request{Op: OpSelfTest, ShowAll: true}.Validate())
	assert.Error(t, Request{Op: OpToast}.Validate())
	assert.Error(t, Request{Op: OpConfirm}.Validate())
	assert.Error(t, Request{}.Validate())
	assert.Error(t, Request{Op: "explode"}.Validate())
	assert.Equal(t, OpList, Request{Op: OpList}.Type())
}
