package model

import "testing"

func TestDownloadState_IsActive(t *testing.T) {
	tests := []struct {
		state    DownloadState
		expected bool
	}{
		{StatePreparing, true},
		{StateDownloading, true},
		{StateConverting, true},
		{StateMerging, true},
		{StateCompleted, false},
		{StateCanceled, false},
		{StateFailed, false},
	}

	for _, test := range tests {
		result := test.state.IsActive()
		if result != test.expected {
			t.Errorf("DownloadState(%s).IsActive() = %v, expected %v", test.state, result, test.expected)
		}
	}
}

func TestDownloadState_IsFinished(t *testing.T) {
	tests := []struct {
		state    DownloadState
		expected bool
	}{
		{StatePreparing, false},
		{StateDownloading, false},
		{StateConverting, false},
		{StateMerging, false},
		{StateCompleted, true},
		{StateCanceled, true},
		{StateFailed, true},
	}

	for _, test := range tests {
		result := test.state.IsFinished()
		if result != test.expected {
			t.Errorf("DownloadState(%s).IsFinished() = %v, expected %v", test.state, result, test.expected)
		}
	}
}

func TestDownloadState_Ordinal(t *testing.T) {
	ordered := []DownloadState{
		StatePreparing,
		StateDownloading,
		StateConverting,
		StateMerging,
		StateCompleted,
		StateCanceled,
		StateFailed,
	}

	for i, state := range ordered {
		if state.Ordinal() != i {
			t.Errorf("DownloadState(%s).Ordinal() = %d, expected %d", state, state.Ordinal(), i)
		}
	}

	if DownloadState("PAUSED").Ordinal() != -1 {
		t.Error("unknown state should have ordinal -1")
	}
}

func TestDownloadState_String(t *testing.T) {
	if StateMerging.String() != "MERGING" {
		t.Errorf("DownloadState.String() = %s, expected MERGING", StateMerging.String())
	}
}
