package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLocation(t *testing.T) {
	tests := []struct {
		name     string
		location string
		bucket   string
		want     string
		wantErr  bool
	}{
		{name: "valid", location: "s3://exports/character-exports/user-1/a.json", bucket: "exports", want: "character-exports/user-1/a.json"},
		{name: "any bucket", location: "s3://other/key.json", want: "key.json"},
		{name: "wrong scheme", location: "https://exports/key", bucket: "exports", wantErr: true},
		{name: "bucket mismatch", location: "s3://other/key", bucket: "exports", wantErr: true},
		{name: "missing key", location: "s3://exports", bucket: "exports", wantErr: true},
		{name: "empty key", location: "s3://exports/", bucket: "exports", wantErr: true},
		{name: "missing bucket", location: "s3:///key", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLocation(tt.location, tt.bucket)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLocationRoundTrip(t *testing.T) {
	loc := Location("exports", "/prefix/key.json")
	assert.Equal(t, "s3://exports/prefix/key.json", loc)

	key, err := ParseLocation(loc, "exports")
	require.NoError(t, err)
	assert.Equal(t, "prefix/key.json", key)
}
