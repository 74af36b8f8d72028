package output

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSuccess(t *testing.T) {
	tests := []struct {
		name string
		data any
		want string
	}{
		{
			name: "version",
			data: map[string]string{"version": "v1.0.0"},
			want: `{"success":true,"data":{"version":"v1.0.0"},"error":null}`,
		},
		{
			name: "capabilities",
			data: map[string]any{"transcoder": false, "ytdlp": ""},
			want: `{"success":true,"data":{"transcoder":false,"ytdlp":""},"error":null}`,
		},
		{
			name: "nil data",
			data: nil,
			want: `{"success":true,"data":null,"error":null}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.JSONEq(t, tt.want, Success(tt.data))
		})
	}
}

func TestError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "pairing failure",
			err:  errors.New("authentication failed"),
			want: `{"success":false,"data":null,"error":"authentication failed"}`,
		},
		{
			name: "nil error",
			err:  nil,
			want: `{"success":false,"data":null,"error":"unknown error"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.JSONEq(t, tt.want, Error(tt.err))
		})
	}
}

func TestUnencodableDataBecomesError(t *testing.T) {
	got := Success(map[string]any{"ch": make(chan int)})

	assert.Contains(t, got, `"success":false`)
	assert.Contains(t, got, "failed to encode result")
}
