package monitor_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prevairwatch/prevairwatch/internal/monitor"
)

func TestClampUpdateHours(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    int
		logsErr bool
	}{
		{name: "empty keeps default", raw: "", want: 1},
		{name: "valid", raw: "6", want: 6},
		{name: "padded", raw: " 12 ", want: 12},
		{name: "upper bound", raw: "24", want: 24},
		{name: "zero", raw: "0", want: 1, logsErr: true},
		{name: "negative", raw: "-3", want: 1, logsErr: true},
		{name: "too long", raw: "48", want: 24, logsErr: true},
		{name: "not a number", raw: "abc", want: 1, logsErr: true},
		{name: "decimal", raw: "1.5", want: 1, logsErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := zerolog.New(&buf)

			assert.Equal(t, tt.want, monitor.ClampUpdateHours(tt.raw, logger))
			if tt.logsErr {
				assert.Contains(t, buf.String(), `"level":"error"`)
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}

func TestConfig_Period(t *testing.T) {
	assert.Equal(t, 3*time.Hour, monitor.Config{UpdateHours: 3}.Period())
	assert.Equal(t, time.Hour, monitor.Config{}.Period())
}

func TestParseLocation(t *testing.T) {
	p, err := monitor.ParseLocation("48.8566;2.3522")
	require.NoError(t, err)
	assert.InDelta(t, 48.8566, p.Lat, 1e-9)
	assert.InDelta(t, 2.3522, p.Lon, 1e-9)

	p, err = monitor.ParseLocation(" 45.75 ; 4.85 ")
	require.NoError(t, err)
	assert.InDelta(t, 45.75, p.Lat, 1e-9)
	assert.InDelta(t, 4.85, p.Lon, 1e-9)
}

func TestParseLocation_Invalid(t *testing.T) {
	for _, s := range []string{"", "48.8", "48.8,2.3", "abc;2.3", "48.8;xyz", "91;0", "0;181", "NaN;2.35", "48.8;nan"} {
		_, err := monitor.ParseLocation(s)
		assert.ErrorIs(t, err, monitor.ErrInvalidLocation, s)
	}
}
