package prompt

import (
	"errors"
	"testing"

	"github.com/charmbracelet/huh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var options = []Option{
	{ID: "quickjs", Label: "QuickJS", Selected: true},
	{ID: "graaljs", Label: "GraalJS"},
	{ID: "v8", Label: "V8", Selected: true},
}

func TestSelectEnginesRequiresTerminal(t *testing.T) {
	s := &Selector{
		isTerminal: func() bool { return false },
		run: func(*huh.Form) error {
			t.Fatal("form must not run without a terminal")
			return nil
		},
	}
	_, err := s.SelectEngines(options)
	assert.ErrorIs(t, err, ErrNotInteractive)
}

func TestSelectEnginesKeepsDefaults(t *testing.T) {
	ran := false
	s := &Selector{
		isTerminal: func() bool { return true },
		run: func(f *huh.Form) error {
			ran = true
			require.NotNil(t, f)
			return nil
		},
	}
	got, err := s.SelectEngines(options)
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, []string{"quickjs", "v8"}, got)
}

func TestSelectEnginesErrors(t *testing.T) {
	tests := []struct {
		name    string
		runErr  error
		wantErr error
	}{
		{"aborted", huh.ErrUserAborted, ErrAborted},
		{"other", errors.New("tty gone"), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Selector{
				isTerminal: func() bool { return true },
				run:        func(*huh.Form) error { return tt.runErr },
			}
			_, err := s.SelectEngines(options)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.ErrorIs(t, err, tt.runErr)
			}
		})
	}
}

func TestDefaults(t *testing.T) {
	assert.Equal(t, []string{"quickjs", "v8"}, Defaults(options))
	assert.Nil(t, Defaults(nil))
}

func TestOrdered(t *testing.T) {
	assert.Equal(t, []string{"quickjs", "graaljs"}, ordered(options, []string{"graaljs", "quickjs", "unknown"}))
}
